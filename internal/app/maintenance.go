package app

import (
	"context"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"github.com/rs/zerolog"
)

type MaintenanceOptions struct {
	TokenRefreshInterval time.Duration
	// RewardInterval et GiftInterval sont des bases: l'attente réelle est
	// tirée entre base et 2*base.
	RewardInterval   time.Duration
	GiftInterval     time.Duration
	SnapshotInterval time.Duration
}

func DefaultMaintenanceOptions() MaintenanceOptions {
	return MaintenanceOptions{
		TokenRefreshInterval: time.Hour,
		RewardInterval:       2400 * time.Second,
		GiftInterval:         9600 * time.Second,
		SnapshotInterval:     time.Hour,
	}
}

// Maintenance fait tourner les timers par compte (token, récompenses,
// tickets cadeaux) et le snapshot périodique. Les erreurs sont journalisées
// par compte et n'arrêtent jamais les autres boucles.
type Maintenance struct {
	logger    zerolog.Logger
	store     *Store
	remote    ports.AccountRemote
	solo      *SoloExecutor
	snapshots ports.SnapshotStore
	settings  *SettingsService
	opts      MaintenanceOptions
	now       func() time.Time
}

func NewMaintenance(logger zerolog.Logger, store *Store, remote ports.AccountRemote, solo *SoloExecutor, snapshots ports.SnapshotStore, settings *SettingsService, opts MaintenanceOptions) *Maintenance {
	def := DefaultMaintenanceOptions()
	if opts.TokenRefreshInterval <= 0 {
		opts.TokenRefreshInterval = def.TokenRefreshInterval
	}
	if opts.RewardInterval <= 0 {
		opts.RewardInterval = def.RewardInterval
	}
	if opts.GiftInterval <= 0 {
		opts.GiftInterval = def.GiftInterval
	}
	if opts.SnapshotInterval <= 0 {
		opts.SnapshotInterval = def.SnapshotInterval
	}
	return &Maintenance{
		logger:    logger,
		store:     store,
		remote:    remote,
		solo:      solo,
		snapshots: snapshots,
		settings:  settings,
		opts:      opts,
		now:       time.Now,
	}
}

// Start lance les boucles; elles s'arrêtent quand ctx se termine.
func (m *Maintenance) Start(ctx context.Context) {
	for _, id := range m.store.AccountIDs() {
		go m.tokenLoop(ctx, id)
		go m.rewardLoop(ctx, id)
		go m.giftLoop(ctx, id)
	}
	go m.snapshotLoop(ctx)
	m.logger.Info().Int("accounts", len(m.store.AccountIDs())).Msg("maintenance started")
}

func (m *Maintenance) tokenLoop(ctx context.Context, id int64) {
	interval := int64(m.opts.TokenRefreshInterval / time.Second)
	for {
		acc, err := m.store.Account(id)
		if err != nil {
			m.logger.Error().Err(err).Int64("account_id", id).Msg("token loop stopped")
			return
		}
		if diff := m.now().Unix() - acc.LastTokenRefresh; diff < interval {
			if !sleepCtx(ctx, time.Duration(interval-diff)*time.Second) {
				return
			}
		}
		_, _ = RunSolo(ctx, m.solo, func() (struct{}, error) {
			return struct{}{}, m.RefreshToken(ctx, id)
		})
		if ctx.Err() != nil {
			return
		}
	}
}

func (m *Maintenance) rewardLoop(ctx context.Context, id int64) {
	for {
		if !sleepCtx(ctx, jitter(m.opts.RewardInterval)) {
			return
		}
		m.solo.Go(func() {
			if err := m.ClaimRewards(ctx, id); err != nil {
				m.logger.Warn().Err(err).Int64("account_id", id).Msg("failed to claim rewards")
			}
			if err := m.CheckBalance(ctx, id); err != nil {
				m.logger.Warn().Err(err).Int64("account_id", id).Msg("failed to check balance")
			}
		})
	}
}

func (m *Maintenance) giftLoop(ctx context.Context, id int64) {
	for {
		if !sleepCtx(ctx, jitter(m.opts.GiftInterval)) {
			return
		}
		m.solo.Go(func() {
			if err := m.ClaimGifts(ctx, id); err != nil {
				m.logger.Warn().Err(err).Int64("account_id", id).Msg("failed to check gift tickets")
			}
		})
	}
}

// snapshotLoop tourne sur son propre thread pour ne pas gêner les requêtes.
func (m *Maintenance) snapshotLoop(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	ticker := time.NewTicker(m.opts.SnapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.SaveSnapshot(ctx); err != nil {
				m.logger.Error().Err(err).Msg("snapshot failed, retrying at next tick")
			}
		}
	}
}

// SaveSnapshot écrit les trois tables.
func (m *Maintenance) SaveSnapshot(ctx context.Context) error {
	if m.snapshots == nil {
		return nil
	}
	settings := domain.DefaultSettings()
	if m.settings != nil {
		s, err := m.settings.Get(ctx)
		if err != nil {
			return err
		}
		settings = s
	}
	return m.snapshots.Save(m.store.Snapshot(), settings)
}

// RefreshToken rafraîchit le cookie de session; la date est mise à jour même
// en cas d'échec pour ne pas boucler sur un compte cassé.
func (m *Maintenance) RefreshToken(ctx context.Context, id int64) error {
	logger := m.logger.With().Int64("account_id", id).Logger()
	session, err := m.store.Session(id)
	if err == nil {
		err = m.remote.RefreshToken(ctx, session)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to refresh token")
	} else {
		logger.Info().Msg("refreshed token")
	}
	now := m.now().Unix()
	if err2 := m.store.WithAccount(id, func(acc *domain.Account) error {
		acc.LastTokenRefresh = now
		return nil
	}); err2 != nil {
		return err2
	}
	return err
}

// ClaimRewards ouvre les récompenses ("Award") plus récentes que la dernière ouverte.
func (m *Maintenance) ClaimRewards(ctx context.Context, id int64) error {
	acc, err := m.store.Account(id)
	if err != nil {
		return err
	}
	session, err := m.store.Session(id)
	if err != nil {
		return err
	}
	news, err := m.remote.News(ctx, session)
	if err != nil {
		return err
	}

	logger := m.logger.With().Int64("account_id", id).Logger()
	last := acc.LastRewardClaim
	latest := last
	claimed := 0
	for _, entry := range news {
		if entry.LogName != "Award" {
			continue
		}
		date, err := ParseRemoteTime(entry.Date)
		if err != nil {
			logger.Warn().Err(err).Msg("reward: bad date")
			continue
		}
		if !date.After(last) {
			continue
		}
		rewardID, err := GetParam(entry.Scheme, "gotcha_id")
		if err != nil {
			logger.Warn().Err(err).Msg("reward: no gotcha id")
			continue
		}
		if err := m.remote.DrawReward(ctx, session, rewardID); err != nil {
			logger.Warn().Err(err).Str("reward_id", rewardID).Msg("reward: draw failed")
			continue
		}
		claimed++
		if date.After(latest) {
			latest = date
		}
	}

	if claimed > 0 {
		logger.Info().Int("claimed", claimed).Msg("rewards claimed")
	}
	return m.store.WithAccount(id, func(acc *domain.Account) error {
		if latest.After(acc.LastRewardClaim) {
			acc.LastRewardClaim = latest
		}
		return nil
	})
}

func (m *Maintenance) CheckBalance(ctx context.Context, id int64) error {
	session, err := m.store.Session(id)
	if err != nil {
		return err
	}
	balance, err := m.remote.Balance(ctx, session)
	if err != nil {
		return err
	}
	return m.store.WithAccount(id, func(acc *domain.Account) error {
		acc.Balance = balance
		return nil
	})
}

// ClaimGifts récupère les tickets cadeaux du jour non encore reçus.
func (m *Maintenance) ClaimGifts(ctx context.Context, id int64) error {
	session, err := m.store.Session(id)
	if err != nil {
		return err
	}
	gifts, err := m.remote.TodayGifts(ctx, session)
	if err != nil {
		return err
	}
	logger := m.logger.With().Int64("account_id", id).Logger()
	received := 0
	for _, gift := range gifts {
		if gift.Received {
			continue
		}
		if err := m.remote.ReceiveGift(ctx, session, gift.TicketUID); err != nil {
			logger.Warn().Err(err).Int64("ticket_uid", gift.TicketUID).Msg("gift: receive failed")
			continue
		}
		received++
	}
	if received > 0 {
		logger.Info().Int("received", received).Msg("gift tickets received")
	}
	return nil
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return base + time.Duration(rand.Int64N(int64(base)))
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
