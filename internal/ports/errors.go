package ports

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("not found")

// RemoteProtocolError: le serveur distant a renvoyé des erreurs au lieu de données.
type RemoteProtocolError struct {
	Messages []string
}

func (e *RemoteProtocolError) Error() string {
	if e == nil || len(e.Messages) == 0 {
		return "remote protocol error"
	}
	return strings.Join(e.Messages, ", ")
}

// ParamExtractionError: un paramètre attendu manque dans une référence opaque (url, scheme).
type ParamExtractionError struct {
	Key string
	Ref string
}

func (e *ParamExtractionError) Error() string {
	return "could not get param " + e.Key + " in " + e.Ref
}

// UnknownProcessError: état de workflow de rédemption non reconnu.
type UnknownProcessError struct {
	Process string
}

func (e *UnknownProcessError) Error() string {
	return `unknown process: "` + e.Process + `"`
}
