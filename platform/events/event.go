// Package events carries the in-process event bus. Pipeline and client
// modules publish here; the notification module subscribes, so producers
// never import their consumers.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event that crosses the bus.
type Event interface {
	// EventName identifies the event type for subscription matching.
	EventName() string
	// OccurredAt is the publish-side timestamp.
	OccurredAt() time.Time
}

// BaseEvent supplies the timestamp; concrete events embed it.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events it subscribed to.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to registered handlers.
type Bus interface {
	// Publish fans the event out to its handlers asynchronously; the caller
	// never waits on, or learns about, handler failures.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event and waits for every handler.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under the name the event reports from
	// EventName.
	Subscribe(eventName string, handler Handler)
}
