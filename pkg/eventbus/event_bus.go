// Package eventbus carries conversation lifecycle events (workflow started, completed,
// abandoned, timed out and keyword calls) over watermill.
package eventbus

import (
	"context"

	"github.com/dukex/chatflow/pkg/events"
)

// Event is anything published on the lifecycle topic.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes an event partitioned by key, normally the contact key so a
// contact's events stay ordered on kafka.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(ctx context.Context, key string, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, key string, event Event) error {
	return f(ctx, key, event)
}

// Discard drops every event. Components use it when no bus is configured.
var Discard EventPublisher = PublisherFunc(func(context.Context, string, Event) error { return nil })

// EventSubscriber routes decoded events to the handler registered for their type.
// Handlers are registered before Subscribe starts consuming.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the concrete event struct.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
