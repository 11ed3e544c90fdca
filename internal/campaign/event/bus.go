package event

import (
	"context"
	"errors"
	"sync"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
)

var (
	ErrBusClosed = errors.New("event bus is closed")
	ErrBusFull   = errors.New("event bus is full")
)

// Bus is a bounded in-process queue of insight requests. Publishing never
// blocks: a full queue is reported to the caller.
type Bus struct {
	mu     sync.RWMutex
	closed bool
	ch     chan entity.InsightRequested
}

func NewBus(buffer int) *Bus {
	return &Bus{
		ch: make(chan entity.InsightRequested, max(buffer, 1)),
	}
}

func (b *Bus) Publish(ctx context.Context, event entity.InsightRequested) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.ch <- event:
		return nil
	default:
		return ErrBusFull
	}
}

func (b *Bus) Subscribe() <-chan entity.InsightRequested {
	return b.ch
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int {
	return len(b.ch)
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}
