package event

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkglog"
)

type Handler interface {
	Handle(ctx context.Context, event entity.InsightRequested) error
}

// Discarder is implemented by handlers that record jobs the consumer will
// never run because it is shutting down.
type Discarder interface {
	Discard(ctx context.Context, event entity.InsightRequested, reason error)
}

// ErrConsumerStopped is the reason given to Discard for queued jobs left
// behind at shutdown.
var ErrConsumerStopped = errors.New("insight consumer stopped before the job started")

type ConsumerConfig struct {
	Workers     int
	MaxRetries  int
	BaseBackoff time.Duration
}

// InsightConsumer drains the bus with a fixed pool of workers. Each job is
// handled at most once per process; failed attempts are retried with
// exponential backoff up to MaxRetries.
type InsightConsumer struct {
	bus         *Bus
	handler     Handler
	workers     int
	maxRetries  int
	baseBackoff time.Duration

	seen      sync.Map
	wg        sync.WaitGroup
	quit      chan struct{}
	quitOnce  sync.Once
	baseCtx   context.Context
	abort     context.CancelFunc
	processed atomic.Int64
	failed    atomic.Int64
	discarded atomic.Int64
}

func NewInsightConsumer(bus *Bus, handler Handler, cfg ConsumerConfig) *InsightConsumer {
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}

	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	baseCtx, abort := context.WithCancel(context.Background())

	return &InsightConsumer{
		bus:         bus,
		handler:     handler,
		workers:     workers,
		maxRetries:  max(cfg.MaxRetries, 0),
		baseBackoff: baseBackoff,
		quit:        make(chan struct{}),
		baseCtx:     baseCtx,
		abort:       abort,
	}
}

func (c *InsightConsumer) Start() {
	for range c.workers {
		c.wg.Add(1)
		go c.worker()
	}
}

// Stop closes the bus and waits for in-flight jobs until ctx is done, at
// which point their contexts are canceled. Pending retries are abandoned.
func (c *InsightConsumer) Stop(ctx context.Context) error {
	if c.bus != nil {
		c.bus.Close()
	}
	c.quitOnce.Do(func() { close(c.quit) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		c.abort()
		<-done
		err = ctx.Err()
	}
	c.abort()

	slog.InfoContext(ctx, "insight consumer stopped", "processed", c.processed.Load(), "failed", c.failed.Load(), "discarded", c.discarded.Load())
	return err
}

// Processed returns how many distinct jobs were handled, successfully or not.
func (c *InsightConsumer) Processed() int64 {
	return c.processed.Load()
}

// Failed returns how many jobs exhausted their attempts.
func (c *InsightConsumer) Failed() int64 {
	return c.failed.Load()
}

// Discarded returns how many queued jobs were dropped at shutdown.
func (c *InsightConsumer) Discarded() int64 {
	return c.discarded.Load()
}

func (c *InsightConsumer) worker() {
	defer c.wg.Done()

	for event := range c.bus.Subscribe() {
		if c.stopping() {
			c.discard(event)
			continue
		}
		c.processEvent(event)
	}
}

func (c *InsightConsumer) stopping() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

func (c *InsightConsumer) discard(event entity.InsightRequested) {
	c.discarded.Add(1)
	slog.Warn("insight request discarded at shutdown", "job_id", event.JobID, "task", event.Task)

	if d, ok := c.handler.(Discarder); ok {
		d.Discard(context.WithoutCancel(c.baseCtx), event, ErrConsumerStopped)
	}
}

func (c *InsightConsumer) processEvent(event entity.InsightRequested) {
	if c.handler == nil {
		return
	}

	if _, loaded := c.seen.LoadOrStore(event.JobID, struct{}{}); loaded {
		slog.Info("skip duplicate insight request", "job_id", event.JobID, "task", event.Task)
		return
	}
	defer c.processed.Add(1)

	ctx := pkglog.SetCorrelationID(c.baseCtx, "insight-"+strconv.FormatInt(event.JobID, 10))

	backoff := c.baseBackoff
	for attempt := 0; ; attempt++ {
		err := c.handler.Handle(ctx, event)
		if err == nil {
			return
		}

		if attempt == c.maxRetries || ctx.Err() != nil {
			c.failed.Add(1)
			slog.ErrorContext(ctx, "insight failed", "job_id", event.JobID, "task", event.Task, "attempts", attempt+1, "error", err)
			return
		}

		if !c.sleepBackoff(backoff) {
			c.failed.Add(1)
			return
		}
		backoff *= 2
	}
}

// sleepBackoff waits d and reports false if the consumer is stopping.
func (c *InsightConsumer) sleepBackoff(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-c.quit:
		return false
	}
}
