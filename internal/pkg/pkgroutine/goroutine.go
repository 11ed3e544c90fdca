package pkgroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// DefaultMaxGoroutine is used when NewManager receives a non-positive limit.
const DefaultMaxGoroutine int = 10

// Manager runs functions in goroutines with a configurable concurrency limit.
//
// It collects errors returned by tasks and can be waited on using Wait.
type Manager struct {
	mu      sync.Mutex
	errs    []error
	wg      *sync.WaitGroup
	sema    chan struct{}
	running atomic.Int64
}

// NewManager creates a new Manager with the provided maximum concurrency.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = DefaultMaxGoroutine
	}

	return &Manager{
		wg:   &sync.WaitGroup{},
		sema: make(chan struct{}, maxGoroutine), // Semaphore to limit goroutines
	}
}

// Go schedules a named task to run in a goroutine once capacity is available
// and reports whether it was scheduled.
//
// Go blocks while the manager is at its concurrency limit. If pCtx is done
// before a slot frees up the task is dropped, a warning is logged and Go
// returns false. A scheduled task always runs; f observes pCtx itself.
func (g *Manager) Go(pCtx context.Context, name string, f func(ctx context.Context) error) bool {
	if pCtx.Err() != nil {
		slog.WarnContext(pCtx, "goroutine canceled before start", "task", name, "because", pCtx.Err())
		return false
	}

	select {
	case g.sema <- struct{}{}: // Acquire a semaphore slot
	case <-pCtx.Done():
		slog.WarnContext(pCtx, "goroutine canceled before start", "task", name, "because", pCtx.Err())
		return false
	}

	g.wg.Add(1)
	g.running.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			g.running.Add(-1)
			<-g.sema // Release semaphore slot

			if rvr := recover(); rvr != nil {
				stack := debug.Stack()
				slog.ErrorContext(pCtx, "panic occurred in goroutine", "task", name, "panic", rvr, "stack", string(stack))
			}
		}()

		if err := f(pCtx); err != nil {
			g.mu.Lock()
			g.errs = append(g.errs, err)
			g.mu.Unlock()
		}
	}()

	return true
}

// Running returns the number of tasks currently executing.
func (g *Manager) Running() int {
	return int(g.running.Load())
}

// Wait blocks until all scheduled goroutines finish and returns any collected errors.
func (g *Manager) Wait() error {
	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()

	return errors.Join(g.errs...)
}
