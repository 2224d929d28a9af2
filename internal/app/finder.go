package app

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
)

type FinderOptions struct {
	// CooldownInterval sépare deux diffusions "cooldown" après un scan.
	CooldownInterval time.Duration
	// CooldownTicks est le nombre de diffusions avant de libérer la série.
	CooldownTicks int
}

func DefaultFinderOptions() FinderOptions {
	return FinderOptions{
		CooldownInterval: 100 * time.Millisecond,
		CooldownTicks:    3600,
	}
}

// Finder répond à "un compte du pool a-t-il un ticket pour cette série ?"
// en ne lançant qu'un seul scan distant à la fois par série, suivi d'une
// fenêtre de cooldown pendant laquelle la réponse est négative.
type Finder struct {
	parent context.Context

	logger zerolog.Logger
	store  *Store
	remote ports.ContentRemote
	solo   *SoloExecutor
	bus    ports.EventBus
	opts   FinderOptions
	now    func() time.Time

	mu     sync.Mutex
	active map[int64]*broadcaster
	scans  int
}

func NewFinder(parent context.Context, logger zerolog.Logger, store *Store, remote ports.ContentRemote, solo *SoloExecutor, bus ports.EventBus, opts FinderOptions) *Finder {
	if parent == nil {
		parent = context.Background()
	}
	if opts.CooldownInterval <= 0 {
		opts.CooldownInterval = DefaultFinderOptions().CooldownInterval
	}
	if opts.CooldownTicks <= 0 {
		opts.CooldownTicks = DefaultFinderOptions().CooldownTicks
	}
	return &Finder{
		parent: parent,
		logger: logger,
		store:  store,
		remote: remote,
		solo:   solo,
		bus:    bus,
		opts:   opts,
		now:    time.Now,
		active: make(map[int64]*broadcaster),
	}
}

// Scans renvoie le nombre de scans démarrés depuis la création.
func (f *Finder) Scans() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

// Active indique si un scan ou son cooldown est en cours pour la série.
func (f *Finder) Active(seriesID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.active[seriesID]
	return ok
}

func (f *Finder) subscribers(seriesID int64) int {
	f.mu.Lock()
	b, ok := f.active[seriesID]
	f.mu.Unlock()
	if !ok {
		return 0
	}
	return b.subscribers()
}

// FindAny s'abonne au scan en cours pour la série, ou en démarre un.
// checked liste les comptes déjà rafraîchis par l'appelant.
func (f *Finder) FindAny(ctx context.Context, seriesID int64, checked map[int64]struct{}) (bool, error) {
	f.mu.Lock()
	if b, ok := f.active[seriesID]; ok {
		sub := b.subscribe()
		f.mu.Unlock()
		sig, err := sub.recv(ctx)
		return sig.Found(), err
	}
	b := newBroadcaster()
	f.active[seriesID] = b
	f.scans++
	sub := b.subscribe()
	f.mu.Unlock()

	skip := make(map[int64]struct{}, len(checked))
	for id := range checked {
		skip[id] = struct{}{}
	}
	scanID := xid.New().String()
	f.solo.Go(func() {
		f.scan(scanID, seriesID, skip, b)
		f.solo.Go(func() { f.cooldown(scanID, seriesID, b) })
	})

	sig, err := sub.recv(ctx)
	return sig.Found(), err
}

func (f *Finder) scan(scanID string, seriesID int64, skip map[int64]struct{}, b *broadcaster) {
	logger := f.logger.With().Str("scan_id", scanID).Int64("series_id", seriesID).Logger()
	logger.Info().Msg("ticket scan started")
	f.publish("finder.scan.started", scanID, seriesID, false)

	ctx := f.parent
	srs := f.store.Series(seriesID)
	found := false
	for _, accountID := range f.store.AccountIDs() {
		if _, ok := skip[accountID]; ok {
			continue
		}
		ticket, err := f.refresh(ctx, srs, seriesID, accountID)
		if err != nil {
			logger.Warn().Err(err).Int64("account_id", accountID).Msg("ticket scan: account refresh failed")
			continue
		}
		if ticket.Permanent > 0 && !found {
			found = true
			b.publish(SignalFound)
		}
	}

	logger.Info().Bool("found", found).Msg("ticket scan finished")
	f.publish("finder.scan.finished", scanID, seriesID, found)
}

// refresh relit l'état distant des tickets d'un compte et met à jour son slot.
func (f *Finder) refresh(ctx context.Context, srs *Series, seriesID, accountID int64) (domain.Ticket, error) {
	session, err := f.store.Session(accountID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if !srs.HasTicket(accountID) {
		// Premier passage pour ce compte: déclenche l'attribution des tickets gratuits.
		if err := f.remote.CheckFreeTicket(ctx, session, seriesID); err != nil {
			return domain.Ticket{}, err
		}
	}
	status, err := f.remote.MyTickets(ctx, session, seriesID)
	if err != nil {
		return domain.Ticket{}, err
	}
	waitFreeAt, err := waitFreeFrom(status.WaitFreeChargedAt)
	if err != nil {
		return domain.Ticket{}, err
	}
	ticket := domain.LedgerFrom(status.OwnCount, status.RentalCount, waitFreeAt, f.now().Unix())
	srs.UpsertTicket(accountID, func(t *domain.Ticket) { *t = ticket })
	return ticket, nil
}

func (f *Finder) cooldown(scanID string, seriesID int64, b *broadcaster) {
	ticker := time.NewTicker(f.opts.CooldownInterval)
	defer ticker.Stop()
	for i := 0; i < f.opts.CooldownTicks; i++ {
		<-ticker.C
		b.publish(SignalCooldown)
	}

	f.mu.Lock()
	if f.active[seriesID] == b {
		delete(f.active, seriesID)
	}
	f.mu.Unlock()
	// Libère les abonnés arrivés après la dernière diffusion.
	b.publish(SignalCooldown)
	f.logger.Debug().Str("scan_id", scanID).Int64("series_id", seriesID).Msg("ticket scan cooldown over")
}

type scanEvent struct {
	ScanID   string `json:"scanId"`
	SeriesID int64  `json:"seriesId"`
	Found    bool   `json:"found"`
}

func (f *Finder) publish(topic, scanID string, seriesID int64, found bool) {
	if f.bus == nil {
		return
	}
	b, err := json.Marshal(scanEvent{ScanID: scanID, SeriesID: seriesID, Found: found})
	if err != nil {
		return
	}
	f.bus.Publish(topic, b)
}
