package ports

import (
	"context"
	"time"
)

type EventBus interface {
	Publish(topic string, payload []byte)
	// Subscribe filtre par préfixe de topic; sans préfixe, tout est reçu.
	Subscribe(prefixes ...string) (ch <-chan Event, cancel func())
}

type Event struct {
	Topic   string
	Payload []byte
}

// Outcome d'une requête de contenu, pour les statistiques.
type Outcome string

const (
	OutcomeCacheHit  Outcome = "cache_hit"
	OutcomeFree      Outcome = "free"
	OutcomeWaitFree  Outcome = "wait_free"
	OutcomePermanent Outcome = "permanent"
	OutcomeCooldown  Outcome = "cooldown"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeError     Outcome = "error"
)

type StatsEvent struct {
	Outcome   Outcome
	SeriesID  int64
	AccountID int64
	At        time.Time
}

// StatsStore persiste les statistiques; best-effort, une erreur ne fait pas échouer la requête.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

// StatsSummary: compteurs par issue, et rédemptions par compte.
type StatsSummary struct {
	Total     map[Outcome]int64 `json:"total"`
	ByAccount map[int64]int64   `json:"byAccount"`
}

type StatsReader interface {
	Summary(ctx context.Context) (StatsSummary, error)
}
