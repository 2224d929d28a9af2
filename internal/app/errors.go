package app

import (
	"errors"

	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

var ErrNotFound = ports.ErrNotFound

var (
	// ErrCooldown: le finder est en cooldown pour cette série et n'a rien trouvé.
	ErrCooldown = errors.New("ticket finder job is on a cooldown")
	// ErrExhausted: deux tentatives sans compte éligible.
	ErrExhausted = errors.New("not enough tickets")
)

// CodedError associe un code stable à une erreur, exposé par l'API HTTP.
//
// Codes: not_found, cooldown, exhausted, remote_error, unknown_process,
// param_extraction, invalid_params, internal.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }

// Classify renvoie le code stable d'une erreur remontée par le coordinateur.
func Classify(err error) string {
	var coded *CodedError
	var remote *ports.RemoteProtocolError
	var param *ports.ParamExtractionError
	var process *ports.UnknownProcessError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &coded):
		return coded.Code
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCooldown):
		return "cooldown"
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	case errors.As(err, &process):
		return "unknown_process"
	case errors.As(err, &param):
		return "param_extraction"
	case errors.As(err, &remote):
		return "remote_error"
	default:
		return "internal"
	}
}
