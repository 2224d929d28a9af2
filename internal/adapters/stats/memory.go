package stats

import (
	"context"
	"sync"

	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

var (
	_ ports.StatsStore  = (*MemoryStore)(nil)
	_ ports.StatsReader = (*MemoryStore)(nil)
)

// MemoryStore garde les compteurs en mémoire. Utilisé quand aucun Redis
// n'est configuré; les compteurs repartent de zéro au redémarrage.
type MemoryStore struct {
	mu        sync.Mutex
	total     map[ports.Outcome]int64
	byAccount map[int64]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		total:     make(map[ports.Outcome]int64),
		byAccount: make(map[int64]int64),
	}
}

func (s *MemoryStore) Record(_ context.Context, ev ports.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total[ev.Outcome]++
	if redeemed(ev) {
		s.byAccount[ev.AccountID]++
	}
	return nil
}

func (s *MemoryStore) Summary(_ context.Context) (ports.StatsSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := ports.StatsSummary{
		Total:     make(map[ports.Outcome]int64, len(s.total)),
		ByAccount: make(map[int64]int64, len(s.byAccount)),
	}
	for k, v := range s.total {
		out.Total[k] = v
	}
	for k, v := range s.byAccount {
		out.ByAccount[k] = v
	}
	return out, nil
}

// redeemed: issue ayant consommé un ticket d'un compte.
func redeemed(ev ports.StatsEvent) bool {
	if ev.AccountID == 0 {
		return false
	}
	return ev.Outcome == ports.OutcomeWaitFree || ev.Outcome == ports.OutcomePermanent
}
