package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"github.com/rs/zerolog"
)

// fakeSession identifie le compte appelant (0 = anonyme).
type fakeSession struct{ accountID int64 }

func (fakeSession) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("fake session: no network")
}

func fakeSessions(id ports.Identity) (ports.Doer, error) {
	return fakeSession{accountID: id.AccountID}, nil
}

func accountOf(s ports.Doer) int64 {
	if fs, ok := s.(fakeSession); ok {
		return fs.accountID
	}
	return -1
}

type call struct {
	method    string
	accountID int64
	arg       string
}

// fakeRemote joue le site distant: état des tickets par compte, et compte les appels.
type fakeRemote struct {
	mu    sync.Mutex
	calls []call

	status    map[int64]ports.TicketStatus
	ready     map[int64]ports.Readiness
	useResult map[int64]ports.UseResult
	useErr    map[int64]error
	viewer    ports.ViewerInfo

	// myTicketsGate, s'il est non nil, bloque MyTickets jusqu'à sa fermeture.
	myTicketsGate chan struct{}
	// myTicketsHold bloque MyTickets pour un compte donné seulement.
	myTicketsHold map[int64]chan struct{}
	// afterUse est appelé après chaque UseTicket réussi.
	afterUse func()

	news     []ports.NewsEntry
	drawErr  map[string]error
	gifts    []ports.Gift
	balance  int64
	tokenErr error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		status:    map[int64]ports.TicketStatus{},
		ready:     map[int64]ports.Readiness{},
		useResult: map[int64]ports.UseResult{},
		useErr:    map[int64]error{},
		drawErr:   map[string]error{},

		myTicketsHold: map[int64]chan struct{}{},
		viewer: ports.ViewerInfo{
			Title:    "Episode",
			Typename: "ImageViewerData",
			Files:    []ports.ViewerFile{{Size: 100, SecureURL: "https://cdn.example/img?kid=k1&x=1"}},
		},
	}
}

func (f *fakeRemote) record(method string, s ports.Doer, arg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: method, accountID: accountOf(s), arg: arg})
}

func (f *fakeRemote) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeRemote) callsTo(method string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRemote) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRemote) CheckFreeTicket(ctx context.Context, s ports.Doer, seriesID int64) error {
	f.record("CheckFreeTicket", s, "")
	return nil
}

func (f *fakeRemote) MyTickets(ctx context.Context, s ports.Doer, seriesID int64) (ports.TicketStatus, error) {
	f.record("MyTickets", s, "")
	if f.myTicketsGate != nil {
		select {
		case <-f.myTicketsGate:
		case <-ctx.Done():
			return ports.TicketStatus{}, ctx.Err()
		}
	}
	f.mu.Lock()
	hold := f.myTicketsHold[accountOf(s)]
	f.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ports.TicketStatus{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[accountOf(s)], nil
}

func (f *fakeRemote) ReadyToUseTicket(ctx context.Context, s ports.Doer, seriesID, singleID int64) (ports.Readiness, error) {
	f.record("ReadyToUseTicket", s, "")
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.ready[accountOf(s)]
	if !ok {
		return ports.Readiness{}, &ports.RemoteProtocolError{Messages: []string{"no ticket"}}
	}
	return r, nil
}

func (f *fakeRemote) UseTicket(ctx context.Context, s ports.Doer, singleID int64, ticketType string) (ports.UseResult, error) {
	f.record("UseTicket", s, ticketType)
	if err := ctx.Err(); err != nil {
		return ports.UseResult{}, err
	}
	f.mu.Lock()
	id := accountOf(s)
	err, res, hook := f.useErr[id], f.useResult[id], f.afterUse
	f.mu.Unlock()
	if err != nil {
		return ports.UseResult{}, err
	}
	if hook != nil {
		hook()
	}
	return res, nil
}

func (f *fakeRemote) Viewer(ctx context.Context, s ports.Doer, seriesID, singleID int64) (ports.ViewerInfo, error) {
	f.record("Viewer", s, "")
	if err := ctx.Err(); err != nil {
		return ports.ViewerInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewer, nil
}

func (f *fakeRemote) RefreshToken(ctx context.Context, s ports.Doer) error {
	f.record("RefreshToken", s, "")
	return f.tokenErr
}

func (f *fakeRemote) Balance(ctx context.Context, s ports.Doer) (int64, error) {
	f.record("Balance", s, "")
	return f.balance, nil
}

func (f *fakeRemote) News(ctx context.Context, s ports.Doer) ([]ports.NewsEntry, error) {
	f.record("News", s, "")
	return f.news, nil
}

func (f *fakeRemote) DrawReward(ctx context.Context, s ports.Doer, rewardID string) error {
	f.record("DrawReward", s, rewardID)
	return f.drawErr[rewardID]
}

func (f *fakeRemote) TodayGifts(ctx context.Context, s ports.Doer) ([]ports.Gift, error) {
	f.record("TodayGifts", s, "")
	return f.gifts, nil
}

func (f *fakeRemote) ReceiveGift(ctx context.Context, s ports.Doer, ticketUID int64) error {
	f.record("ReceiveGift", s, "")
	return nil
}

func accountsTable(ids ...int64) map[int64]domain.Account {
	out := make(map[int64]domain.Account, len(ids))
	for _, id := range ids {
		out[id] = domain.Account{Token: "tok", Agent: "kakaopage/test"}
	}
	return out
}

// recordingStats garde les événements de stats dans l'ordre.
type recordingStats struct {
	mu     sync.Mutex
	events []ports.StatsEvent
}

func (r *recordingStats) Record(_ context.Context, ev ports.StatsEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingStats) outcomes() []ports.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.Outcome, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Outcome)
	}
	return out
}

type harness struct {
	remote  *fakeRemote
	store   *Store
	solo    *SoloExecutor
	finder  *Finder
	content *ContentService
}

func newHarness(t *testing.T, tables domain.Tables, opts FinderOptions) *harness {
	t.Helper()
	if tables.Series == nil {
		tables.Series = map[int64]domain.SeriesRecord{}
	}
	remote := newFakeRemote()
	store := NewStore(tables, fakeSessions)
	solo := NewSoloExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	finder := NewFinder(ctx, zerolog.Nop(), store, remote, solo, nil, opts)
	content := NewContentService(zerolog.Nop(), store, remote, fakeSession{}, finder, solo, nil, nil, nil)
	return &harness{remote: remote, store: store, solo: solo, finder: finder, content: content}
}

// longCooldown garde la série en cooldown pendant toute la durée d'un test.
var longCooldown = FinderOptions{CooldownInterval: 50 * time.Millisecond, CooldownTicks: 2000}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
