package app

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// SoloExecutor exécute des tâches sur des workers dédiés, chacun verrouillé sur
// un thread OS. Une tâche n'est jamais déplacée d'un worker à l'autre.
//
// Les workers ne sont jamais arrêtés: une fois la tâche terminée, ils se
// réinscrivent dans la pile des workers inactifs (LIFO).
type SoloExecutor struct {
	mu      sync.Mutex
	idle    []chan func()
	workers int
}

func NewSoloExecutor() *SoloExecutor {
	return &SoloExecutor{}
}

// Workers renvoie le nombre de workers démarrés depuis la création.
func (e *SoloExecutor) Workers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workers
}

// Idle renvoie le nombre de workers en attente de travail.
func (e *SoloExecutor) Idle() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.idle)
}

// Go soumet une tâche sans attendre son résultat.
func (e *SoloExecutor) Go(task func()) {
	e.mu.Lock()
	n := len(e.idle)
	if n > 0 {
		reg := e.idle[n-1]
		e.idle = e.idle[:n-1]
		e.mu.Unlock()
		reg <- task
		return
	}
	e.workers++
	e.mu.Unlock()

	go e.work(task)
}

func (e *SoloExecutor) work(task func()) {
	runtime.LockOSThread()
	for {
		runTask(task)

		reg := make(chan func(), 1)
		e.mu.Lock()
		e.idle = append(e.idle, reg)
		e.mu.Unlock()

		task = <-reg
	}
}

// runTask isole le worker d'une panique dans une tâche lancée via Go.
func runTask(task func()) {
	defer func() { _ = recover() }()
	task()
}

type soloResult[T any] struct {
	val T
	err error
}

// RunSolo exécute task sur un worker dédié et attend son résultat.
// Si ctx se termine avant, RunSolo renvoie ctx.Err() mais la tâche continue
// jusqu'au bout sur son worker.
func RunSolo[T any](ctx context.Context, e *SoloExecutor, task func() (T, error)) (T, error) {
	done := make(chan soloResult[T], 1)
	e.Go(func() {
		var res soloResult[T]
		defer func() {
			if r := recover(); r != nil {
				res = soloResult[T]{err: fmt.Errorf("solo task panicked: %v", r)}
			}
			done <- res
		}()
		res.val, res.err = task()
	})

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
