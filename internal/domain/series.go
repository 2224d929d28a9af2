package domain

import "math"

// NoWaitFree indique qu'aucune lecture gratuite (wait-free) n'est en attente.
const NoWaitFree int64 = math.MaxInt64

type Ticket struct {
	// Permanent compte les tickets possédés + loués utilisables maintenant.
	Permanent int64 `json:"permanent"`
	// WaitFreeAt est le timestamp Unix à partir duquel le wait-free est dispo.
	WaitFreeAt int64 `json:"wait_free"`
}

// WaitFreeReady: 0 (jamais observé) et NoWaitFree ne sont jamais prêts.
func (t Ticket) WaitFreeReady(now int64) bool {
	return t.WaitFreeAt > 0 && t.WaitFreeAt != NoWaitFree && now > t.WaitFreeAt
}

// LedgerFrom calcule l'état local à partir des compteurs renvoyés par le serveur.
// Le ticket wait-free déjà chargé est inclus dans les compteurs distants, on le retire.
func LedgerFrom(own, rental, waitFreeAt, now int64) Ticket {
	permanent := own + rental
	if now > waitFreeAt {
		permanent--
	}
	if permanent < 0 {
		permanent = 0
	}
	return Ticket{Permanent: permanent, WaitFreeAt: waitFreeAt}
}

type ViewerKind string

const (
	ViewerImages ViewerKind = "images"
	ViewerHTML   ViewerKind = "html"
)

type Image struct {
	Size int64  `json:"size"`
	Kid  string `json:"kid"`
}

type Chapter struct {
	ChapterID int64  `json:"chapter_id"`
	ContentID int64  `json:"content_id"`
	Kid       string `json:"kid"`
}

// Viewer est une variante taguée: Images si Kind == images, Chapters si Kind == html.
type Viewer struct {
	Kind     ViewerKind `json:"kind"`
	Images   []Image    `json:"images,omitempty"`
	Chapters []Chapter  `json:"chapters,omitempty"`
}

type Content struct {
	Title  string `json:"title"`
	Viewer Viewer `json:"viewer"`
	Prev   *int64 `json:"prev,omitempty"`
	Next   *int64 `json:"next,omitempty"`
}

// SeriesRecord est la forme persistée d'une série.
type SeriesRecord struct {
	Singles map[int64]Content `json:"single_map"`
	Tickets map[int64]Ticket  `json:"ticket_map"`
}

// Tables regroupe les tables persistées (hors config).
type Tables struct {
	Accounts map[int64]Account
	Series   map[int64]SeriesRecord
}
