package event

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkglog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type handlerFunc func(ctx context.Context, event entity.InsightRequested) error

func (h handlerFunc) Handle(ctx context.Context, event entity.InsightRequested) error {
	return h(ctx, event)
}

func TestInsightConsumerRetriesAndIdempotent(t *testing.T) {
	bus := NewBus(10)

	var attempts int32
	done := make(chan struct{})
	handler := handlerFunc(func(ctx context.Context, event entity.InsightRequested) error {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			return errors.New("temporary failure")
		}
		if got := pkglog.GetCorrelationID(ctx); got != "insight-42" {
			t.Errorf("unexpected correlation id %q", got)
		}
		close(done)
		return nil
	})

	consumer := NewInsightConsumer(bus, handler, ConsumerConfig{
		Workers:     1,
		MaxRetries:  2,
		BaseBackoff: time.Millisecond,
	})
	consumer.Start()

	event := entity.InsightRequested{JobID: 42, Task: entity.TaskAudit}
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish event: %v", err)
	}
	if err := bus.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish duplicate: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for handler")
	}

	if err := consumer.Stop(context.Background()); err != nil {
		t.Fatalf("stop consumer: %v", err)
	}

	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if consumer.Processed() != 1 || consumer.Failed() != 0 {
		t.Fatalf("expected 1 processed and 0 failed, got %d/%d", consumer.Processed(), consumer.Failed())
	}
}

func TestInsightConsumerNoRetryByDefault(t *testing.T) {
	bus := NewBus(1)

	var attempts int32
	handled := make(chan struct{})
	consumer := NewInsightConsumer(bus, handlerFunc(func(ctx context.Context, event entity.InsightRequested) error {
		atomic.AddInt32(&attempts, 1)
		close(handled)
		return errors.New("gateway down")
	}), ConsumerConfig{Workers: 1})
	consumer.Start()

	if err := bus.Publish(context.Background(), entity.InsightRequested{JobID: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	<-handled

	if err := consumer.Stop(context.Background()); err != nil {
		t.Fatalf("stop consumer: %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
	if consumer.Failed() != 1 {
		t.Fatalf("expected the job counted as failed, got %d", consumer.Failed())
	}
}

func TestInsightConsumerStopAbandonsBackoff(t *testing.T) {
	bus := NewBus(1)

	started := make(chan struct{}, 1)
	consumer := NewInsightConsumer(bus, handlerFunc(func(ctx context.Context, event entity.InsightRequested) error {
		started <- struct{}{}
		return errors.New("fail")
	}), ConsumerConfig{Workers: 1, MaxRetries: 5, BaseBackoff: time.Hour})
	consumer.Start()

	if err := bus.Publish(context.Background(), entity.InsightRequested{JobID: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := consumer.Stop(ctx); err != nil {
		t.Fatalf("stop consumer: %v", err)
	}
	if consumer.Failed() != 1 {
		t.Fatalf("expected abandoned job counted as failed, got %d", consumer.Failed())
	}
}

func TestInsightConsumerStopDeadlineCancelsInFlight(t *testing.T) {
	bus := NewBus(1)

	started := make(chan struct{})
	canceled := make(chan struct{})
	consumer := NewInsightConsumer(bus, handlerFunc(func(ctx context.Context, event entity.InsightRequested) error {
		close(started)
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	}), ConsumerConfig{Workers: 1, MaxRetries: 3, BaseBackoff: time.Millisecond})
	consumer.Start()

	if err := bus.Publish(context.Background(), entity.InsightRequested{JobID: 9}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := consumer.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	select {
	case <-canceled:
	default:
		t.Fatal("expected in-flight handler to observe cancellation")
	}
	if consumer.Failed() != 1 {
		t.Fatalf("expected canceled job counted as failed, got %d", consumer.Failed())
	}
}

type discardingHandler struct {
	handlerFunc
	discarded chan int64
}

func (h discardingHandler) Discard(ctx context.Context, event entity.InsightRequested, reason error) {
	if !errors.Is(reason, ErrConsumerStopped) {
		panic("unexpected discard reason")
	}
	h.discarded <- event.JobID
}

func TestInsightConsumerStopDiscardsQueuedJobs(t *testing.T) {
	bus := NewBus(4)

	started := make(chan struct{})
	release := make(chan struct{})
	var handled atomic.Int32
	handler := discardingHandler{
		handlerFunc: func(ctx context.Context, event entity.InsightRequested) error {
			handled.Add(1)
			close(started)
			<-release
			return nil
		},
		discarded: make(chan int64, 4),
	}
	consumer := NewInsightConsumer(bus, handler, ConsumerConfig{Workers: 1})
	consumer.Start()

	for _, id := range []int64{1, 2, 3} {
		if err := bus.Publish(context.Background(), entity.InsightRequested{JobID: id}); err != nil {
			t.Fatalf("publish %d: %v", id, err)
		}
		if id == 1 {
			<-started
		}
	}

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		stopped <- consumer.Stop(ctx)
	}()
	for !consumer.stopping() {
		time.Sleep(time.Millisecond)
	}
	close(release)

	if err := <-stopped; err != nil {
		t.Fatalf("stop consumer: %v", err)
	}
	if got := handled.Load(); got != 1 {
		t.Fatalf("expected only the in-flight job to be handled, got %d", got)
	}
	if got := consumer.Discarded(); got != 2 {
		t.Fatalf("expected 2 discarded jobs, got %d", got)
	}
	if a, b := <-handler.discarded, <-handler.discarded; a+b != 5 {
		t.Fatalf("expected jobs 2 and 3 discarded, got %d and %d", a, b)
	}
}

func TestBusPublishAfterClose(t *testing.T) {
	bus := NewBus(0)
	bus.Close()
	bus.Close()

	if err := bus.Publish(context.Background(), entity.InsightRequested{JobID: 1}); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected ErrBusClosed, got %v", err)
	}
}

func TestBusPublishReportsFullQueue(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	if err := bus.Publish(context.Background(), entity.InsightRequested{JobID: 1}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if bus.Pending() != 1 {
		t.Fatalf("expected 1 pending event, got %d", bus.Pending())
	}
	if err := bus.Publish(context.Background(), entity.InsightRequested{JobID: 2}); !errors.Is(err, ErrBusFull) {
		t.Fatalf("expected ErrBusFull, got %v", err)
	}
}

func TestBusPublishHonorsContext(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := bus.Publish(ctx, entity.InsightRequested{JobID: 2}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if bus.Pending() != 0 {
		t.Fatalf("expected nothing queued, got %d", bus.Pending())
	}
}
