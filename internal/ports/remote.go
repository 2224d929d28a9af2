package ports

import (
	"context"
	"net/http"
)

// Doer est le handle de transport d'un compte (ou le client anonyme partagé).
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource donne accès au token de session d'un compte sans exposer le store.
type TokenSource interface {
	Token() string
	SetToken(token string)
}

// Identity décrit ce dont le transport a besoin pour construire le handle d'un compte.
type Identity struct {
	AccountID int64
	Agent     string
	Proxy     string
	Token     TokenSource
}

type SessionFactory func(id Identity) (Doer, error)

type TicketStatus struct {
	OwnCount    int64
	RentalCount int64
	// WaitFreeChargedAt est vide si aucun wait-free n'est en cours de recharge.
	WaitFreeChargedAt string
}

type Readiness struct {
	Status  TicketStatus
	Process string
	// Types proposés par le serveur, vides si absents.
	OwnType    string
	RentalType string
}

type UseResult struct {
	WaitFreeChargedAt string
}

type ViewerFile struct {
	Size      int64
	SecureURL string
}

type ViewerText struct {
	ChapterID int64
	ContentID int64
	SecureURL string
}

// ViewerInfo: Typename vaut "ImageViewerData" ou "TextViewerData" (autre = non supporté).
type ViewerInfo struct {
	Title    string
	Typename string
	Files    []ViewerFile
	Contents []ViewerText
	Prev     *int64
	Next     *int64
}

// ContentRemote regroupe les appels distants utilisés par le coordinateur et le finder.
type ContentRemote interface {
	CheckFreeTicket(ctx context.Context, s Doer, seriesID int64) error
	MyTickets(ctx context.Context, s Doer, seriesID int64) (TicketStatus, error)
	ReadyToUseTicket(ctx context.Context, s Doer, seriesID, singleID int64) (Readiness, error)
	UseTicket(ctx context.Context, s Doer, singleID int64, ticketType string) (UseResult, error)
	Viewer(ctx context.Context, s Doer, seriesID, singleID int64) (ViewerInfo, error)
}

type NewsEntry struct {
	LogName string
	Date    string
	Scheme  string
}

type Gift struct {
	Received  bool
	TicketUID int64
	Scheme    string
}

// AccountRemote regroupe les appels de maintenance par compte.
type AccountRemote interface {
	RefreshToken(ctx context.Context, s Doer) error
	Balance(ctx context.Context, s Doer) (int64, error)
	News(ctx context.Context, s Doer) ([]NewsEntry, error)
	DrawReward(ctx context.Context, s Doer, rewardID string) error
	TodayGifts(ctx context.Context, s Doer) ([]Gift, error)
	ReceiveGift(ctx context.Context, s Doer, ticketUID int64) error
}

type SearchItem struct {
	Thumbnail string
	Row1      string
	Row2      []string
	MetaList  []string
	Scheme    string
}

type SearchPage struct {
	Items []SearchItem
	IsEnd bool
}

type CatalogRemote interface {
	Search(ctx context.Context, s Doer, keyword string, page int) (SearchPage, error)
}
