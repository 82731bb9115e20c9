package events

import (
	"context"
	"fmt"
	"sync"

	"concierge_backend/platform/logger"
)

// InMemoryBus is a simple synchronous/asynchronous in-process event bus.
// Handler registration happens during startup; publishing is safe for
// concurrent use afterwards.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all handlers on a detached goroutine.
// Handler errors and panics are logged, never propagated: event side effects
// must not fail the operation that produced the event.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	handlers := b.handlersFor(event.EventName())
	if len(handlers) == 0 {
		return
	}

	// Detach from the request context so in-flight handlers survive the
	// HTTP response.
	go func() {
		for _, h := range handlers {
			b.run(context.WithoutCancel(ctx), event, h)
		}
	}()
}

// PublishSync dispatches the event and waits for all handlers, returning the
// first handler error encountered.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	var firstErr error
	for _, h := range b.handlersFor(event.EventName()) {
		if err := b.run(ctx, event, h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *InMemoryBus) handlersFor(eventName string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, len(b.handlers[eventName]))
	copy(out, b.handlers[eventName])
	return out
}

func (b *InMemoryBus) run(ctx context.Context, event Event, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
			if b.log != nil {
				b.log.Error("event handler panic", "event", event.EventName(), "panic", r)
			}
		}
	}()

	if err := h.Handle(ctx, event); err != nil {
		if b.log != nil {
			b.log.Error("event handler failed", "event", event.EventName(), "error", err)
		}
		return err
	}
	return nil
}
