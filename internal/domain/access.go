package domain

import "errors"

// AccessState décrit l'étape courante d'une requête de contenu.
type AccessState string

const (
	AccessStart     AccessState = "start"
	AccessCacheHit  AccessState = "cache_hit"
	AccessFreePath  AccessState = "free_path"
	AccessWaitFree  AccessState = "wait_free_attempt"
	AccessPermanent AccessState = "permanent_attempt"
	AccessRescan    AccessState = "rescan"
	AccessDone      AccessState = "done"
	AccessFailed    AccessState = "failed"
)

func (s AccessState) IsTerminal() bool {
	return s == AccessDone || s == AccessFailed
}

var ErrInvalidTransition = errors.New("invalid access state transition")

func CanAdvance(from, to AccessState) bool {
	switch from {
	case AccessStart:
		return to == AccessCacheHit || to == AccessFreePath || to == AccessWaitFree || to == AccessPermanent
	case AccessCacheHit, AccessFreePath:
		return to == AccessDone || to == AccessFailed
	case AccessWaitFree, AccessPermanent:
		return to == AccessDone || to == AccessRescan || to == AccessFailed
	case AccessRescan:
		return to == AccessWaitFree || to == AccessPermanent || to == AccessFailed
	case AccessDone, AccessFailed:
		return false
	default:
		return false
	}
}
