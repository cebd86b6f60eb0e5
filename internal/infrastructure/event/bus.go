package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/poscore/backend/internal/domain/shared"
)

// defaultQueueSize bounds the in-flight event backlog
const defaultQueueSize = 1024

// AsyncEventBus implements EventBus with an in-memory queue and worker
// goroutines. Publishing is a handoff, not a call: the publisher returns
// as soon as the event is enqueued, and handler failures are logged by
// the workers without ever reaching the publisher. This is what keeps
// print/audit/cache side effects outside the sale transaction's
// success/failure contract.
type AsyncEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	queue    chan shared.DomainEvent
	workers  int
	running  atomic.Bool
	wg       sync.WaitGroup

	// closeMu keeps Stop from closing the queue while a publisher is
	// between its running check and its send.
	closeMu sync.RWMutex
}

// NewAsyncEventBus creates an event bus with the given number of workers
func NewAsyncEventBus(logger *zap.Logger, workers int) *AsyncEventBus {
	if workers <= 0 {
		workers = 2
	}
	return &AsyncEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
		queue:    make(chan shared.DomainEvent, defaultQueueSize),
		workers:  workers,
	}
}

// Publish enqueues events for asynchronous dispatch. It never returns an
// error for handler failures; a full queue drops the event with a log
// entry rather than blocking the caller.
func (b *AsyncEventBus) Publish(_ context.Context, events ...shared.DomainEvent) error {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	for _, ev := range events {
		if !b.running.Load() {
			b.logger.Warn("event bus not running, dropping event",
				zap.String("event_type", ev.EventType()),
			)
			continue
		}
		select {
		case b.queue <- ev:
		default:
			b.logger.Error("event queue full, dropping event",
				zap.String("event_type", ev.EventType()),
				zap.String("event_id", ev.EventID().String()),
			)
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *AsyncEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler
func (b *AsyncEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start launches the worker goroutines
func (b *AsyncEventBus) Start(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return nil
	}
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work()
	}
	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop drains the queue and waits for the workers to finish
func (b *AsyncEventBus) Stop(ctx context.Context) error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}
	// In-flight publishers hold the read lock through their send; once
	// the write lock is acquired every later publisher sees the cleared
	// running flag and drops instead of sending.
	b.closeMu.Lock()
	close(b.queue)
	b.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// work consumes the queue until it is closed
func (b *AsyncEventBus) work() {
	defer b.wg.Done()
	for ev := range b.queue {
		b.dispatch(ev)
	}
}

// dispatch delivers one event to every interested handler
func (b *AsyncEventBus) dispatch(ev shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(ev.EventType()) {
		if err := b.dispatchToHandler(handler, ev); err != nil {
			b.logger.Error("handler failed to process event",
				zap.String("event_type", ev.EventType()),
				zap.String("event_id", ev.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler safely dispatches an event to a handler
func (b *AsyncEventBus) dispatchToHandler(handler shared.EventHandler, ev shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(context.Background(), ev)
}

// Ensure AsyncEventBus implements EventBus
var _ shared.EventBus = (*AsyncEventBus)(nil)
