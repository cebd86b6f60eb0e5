package shared

import "context"

// EventHandler consumes domain events off the bus.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types the handler wants. Empty means
	// every event.
	EventTypes() []string
}

// EventPublisher is the side of the bus the application services see.
// Publishing is fire-and-forget: a committed transaction must never be
// unwound because a listener failed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is the full bus contract: publishing, handler registration
// and lifecycle. Handlers registered without explicit event types fall
// back to their own EventTypes declaration.
type EventBus interface {
	EventPublisher

	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)

	// Start launches the dispatch workers; Stop drains queued events
	// within the context deadline.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
