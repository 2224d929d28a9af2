package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"github.com/rs/zerolog"
)

type SingleRequest struct {
	SeriesID int64
	SingleID int64
	WaitFree bool
	Free     bool
}

// ContentService sert les contenus: cache, chemin gratuit, puis jusqu'à deux
// tentatives de rédemption séparées par un scan du finder.
type ContentService struct {
	logger zerolog.Logger
	store  *Store
	remote ports.ContentRemote
	anon   ports.Doer
	finder *Finder
	solo   *SoloExecutor
	gate   *RequestGate
	stats  ports.StatsStore
	bus    ports.EventBus
	now    func() time.Time
}

// NewContentService: gate, stats et bus sont optionnels.
func NewContentService(logger zerolog.Logger, store *Store, remote ports.ContentRemote, anon ports.Doer, finder *Finder, solo *SoloExecutor, gate *RequestGate, stats ports.StatsStore, bus ports.EventBus) *ContentService {
	return &ContentService{
		logger: logger,
		store:  store,
		remote: remote,
		anon:   anon,
		finder: finder,
		solo:   solo,
		gate:   gate,
		stats:  stats,
		bus:    bus,
		now:    time.Now,
	}
}

// Single renvoie le contenu demandé. Toute la requête s'exécute sur un worker solo.
// ctx ne borne que l'attente de l'appelant: la tâche va jusqu'au bout même s'il
// part, pour qu'un ticket consommé donne toujours un contenu en cache.
func (s *ContentService) Single(ctx context.Context, req SingleRequest) (domain.Content, error) {
	taskCtx := context.WithoutCancel(ctx)
	return RunSolo(ctx, s.solo, func() (domain.Content, error) {
		return s.single(taskCtx, req)
	})
}

func (s *ContentService) single(ctx context.Context, req SingleRequest) (domain.Content, error) {
	trace := newAccessTrace(s.logger.With().Int64("series_id", req.SeriesID).Int64("single_id", req.SingleID).Logger())
	srs := s.store.Series(req.SeriesID)

	if content, ok := srs.Content(req.SingleID); ok {
		trace.advance(domain.AccessCacheHit)
		trace.advance(domain.AccessDone)
		s.record(ctx, ports.OutcomeCacheHit, req.SeriesID, 0)
		return content, nil
	}

	if s.gate != nil {
		leave, err := s.gate.Enter(ctx)
		if err != nil {
			return domain.Content{}, err
		}
		defer leave()
	}

	if req.Free {
		trace.advance(domain.AccessFreePath)
		content, err := s.fetch(ctx, s.anon, srs, req)
		if err != nil {
			trace.advance(domain.AccessFailed)
			s.record(ctx, ports.OutcomeError, req.SeriesID, 0)
			return domain.Content{}, err
		}
		trace.advance(domain.AccessDone)
		s.record(ctx, ports.OutcomeFree, req.SeriesID, 0)
		return content, nil
	}

	attempt, outcome := domain.AccessPermanent, ports.OutcomePermanent
	if req.WaitFree {
		attempt, outcome = domain.AccessWaitFree, ports.OutcomeWaitFree
	}

	// Comptes rafraîchis pendant cette requête, ignorés par le finder.
	checked := make(map[int64]struct{})
	for i := 0; i < 2; i++ {
		trace.advance(attempt)

		var (
			content   domain.Content
			accountID int64
			ok        bool
			err       error
		)
		if req.WaitFree {
			content, accountID, ok, err = s.tryWaitFree(ctx, srs, req)
		} else {
			content, accountID, ok, err = s.tryPermanent(ctx, srs, req, checked)
		}
		if err != nil {
			trace.advance(domain.AccessFailed)
			s.record(ctx, ports.OutcomeError, req.SeriesID, accountID)
			return domain.Content{}, err
		}
		if ok {
			trace.advance(domain.AccessDone)
			s.record(ctx, outcome, req.SeriesID, accountID)
			return content, nil
		}

		if i == 0 {
			trace.advance(domain.AccessRescan)
			found, err := s.finder.FindAny(ctx, req.SeriesID, checked)
			if err != nil {
				trace.advance(domain.AccessFailed)
				s.record(ctx, ports.OutcomeError, req.SeriesID, 0)
				return domain.Content{}, err
			}
			if !found {
				trace.advance(domain.AccessFailed)
				s.record(ctx, ports.OutcomeCooldown, req.SeriesID, 0)
				return domain.Content{}, ErrCooldown
			}
		}
	}

	trace.advance(domain.AccessFailed)
	s.record(ctx, ports.OutcomeExhausted, req.SeriesID, 0)
	return domain.Content{}, ErrExhausted
}

type cachedEvent struct {
	SeriesID int64  `json:"seriesId"`
	SingleID int64  `json:"singleId"`
	Title    string `json:"title"`
}

// fetch lit le contenu avec la session donnée et l'écrit dans le cache.
func (s *ContentService) fetch(ctx context.Context, session ports.Doer, srs *Series, req SingleRequest) (domain.Content, error) {
	info, err := s.remote.Viewer(ctx, session, req.SeriesID, req.SingleID)
	if err != nil {
		return domain.Content{}, fmt.Errorf("viewer %d/%d: %w", req.SeriesID, req.SingleID, err)
	}
	content, err := ContentFromViewer(info)
	if err != nil {
		return domain.Content{}, err
	}
	srs.PutContent(req.SingleID, content)
	s.publish("content.cached", cachedEvent{SeriesID: req.SeriesID, SingleID: req.SingleID, Title: content.Title})
	return content, nil
}

func (s *ContentService) record(ctx context.Context, outcome ports.Outcome, seriesID, accountID int64) {
	if s.stats == nil {
		return
	}
	ev := ports.StatsEvent{Outcome: outcome, SeriesID: seriesID, AccountID: accountID, At: s.now().UTC()}
	if err := s.stats.Record(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Debug().Err(err).Msg("stats record failed")
	}
}

// accessTrace suit les étapes d'une requête et journalise les transitions.
type accessTrace struct {
	logger zerolog.Logger
	state  domain.AccessState
}

func newAccessTrace(logger zerolog.Logger) *accessTrace {
	return &accessTrace{logger: logger, state: domain.AccessStart}
}

func (t *accessTrace) advance(to domain.AccessState) {
	if !domain.CanAdvance(t.state, to) {
		t.logger.Error().Err(domain.ErrInvalidTransition).Str("from", string(t.state)).Str("to", string(to)).Msg("access state")
	}
	t.logger.Debug().Str("from", string(t.state)).Str("to", string(to)).Msg("access state")
	t.state = to
}
