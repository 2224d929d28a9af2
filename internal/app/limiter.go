package app

import (
	"context"
	"sync"
)

// RequestGate plafonne le nombre de requêtes de contenu qui parlent au
// serveur distant en même temps (les hits de cache ne passent pas par elle).
// Le plafond suit max_concurrent_requests de la table config, modifiable à chaud.
type RequestGate struct {
	mu       sync.Mutex
	limit    int
	inFlight int
	waiting  int
	// wake est fermé puis recréé à chaque libération de place.
	wake chan struct{}
}

func NewRequestGate(limit int) *RequestGate {
	return &RequestGate{limit: max(limit, 1), wake: make(chan struct{})}
}

func (g *RequestGate) Limit() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limit
}

func (g *RequestGate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// Waiting renvoie le nombre de requêtes bloquées dans Enter.
func (g *RequestGate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiting
}

func (g *RequestGate) SetLimit(limit int) {
	limit = max(limit, 1)
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.limit == limit {
		return
	}
	g.limit = limit
	g.wakeLocked()
}

// Enter attend une place. La fonction renvoyée libère la place; l'appeler
// plusieurs fois est sans effet.
func (g *RequestGate) Enter(ctx context.Context) (func(), error) {
	g.mu.Lock()
	for g.inFlight >= g.limit {
		wake := g.wake
		g.waiting++
		g.mu.Unlock()

		select {
		case <-ctx.Done():
			g.mu.Lock()
			g.waiting--
			g.mu.Unlock()
			return nil, ctx.Err()
		case <-wake:
		}

		g.mu.Lock()
		g.waiting--
	}
	g.inFlight++
	g.mu.Unlock()

	var once sync.Once
	return func() { once.Do(g.leave) }, nil
}

func (g *RequestGate) leave() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight--
	g.wakeLocked()
}

func (g *RequestGate) wakeLocked() {
	close(g.wake)
	g.wake = make(chan struct{})
}
