package app

import (
	"context"
	"sync"
)

// Signal est une valeur diffusée par le finder. Le tag distingue un résultat
// positif d'un simple battement de cooldown.
type Signal int

const (
	SignalFound Signal = iota + 1
	SignalCooldown
)

func (s Signal) Found() bool { return s == SignalFound }

func (s Signal) String() string {
	switch s {
	case SignalFound:
		return "found"
	case SignalCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// round est une génération de diffusion: sig est figé avant la fermeture de done.
type round struct {
	done chan struct{}
	sig  Signal
}

// broadcaster diffuse chaque valeur à tous les abonnés en attente à ce moment-là.
// Un abonné reçoit la prochaine valeur publiée après son abonnement.
type broadcaster struct {
	mu      sync.Mutex
	cur     *round
	waiting int
}

func newBroadcaster() *broadcaster {
	return &broadcaster{cur: &round{done: make(chan struct{})}}
}

// subscription est l'inscription d'un abonné à la prochaine génération.
type subscription struct {
	b *broadcaster
	r *round
}

func (b *broadcaster) subscribe() subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.waiting++
	return subscription{b: b, r: b.cur}
}

func (b *broadcaster) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waiting
}

func (b *broadcaster) publish(sig Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r := b.cur
	r.sig = sig
	close(r.done)
	b.cur = &round{done: make(chan struct{})}
	b.waiting = 0
}

func (sub subscription) recv(ctx context.Context) (Signal, error) {
	select {
	case <-sub.r.done:
		return sub.r.sig, nil
	case <-ctx.Done():
		sub.b.mu.Lock()
		if sub.b.cur == sub.r && sub.b.waiting > 0 {
			sub.b.waiting--
		}
		sub.b.mu.Unlock()
		return 0, ctx.Err()
	}
}
