// Package events provides the in-process publish/subscribe bus used to react
// to committed domain changes.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Event is implemented by every published domain event.
type Event interface {
	EventType() string
}

// Handler reacts to an event. Handlers switch on the concrete type and
// return nil for events they do not care about.
type Handler func(ctx context.Context, evt Event) error

// Bus dispatches events synchronously in subscription order.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers []subscription
}

type subscription struct {
	id int
	fn Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers handler and returns a function removing it.
func (b *Bus) Subscribe(handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, fn: handler})
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, sub := range b.handlers {
				if sub.id == id {
					b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish calls every handler with evt. A failing handler does not stop the
// remaining ones; all failures are joined into the returned error.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	if b == nil || evt == nil {
		return nil
	}
	b.mu.RLock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	var errs []error
	for _, sub := range handlers {
		if err := sub.fn(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("events: %s handler: %w", evt.EventType(), err))
		}
	}
	return errors.Join(errs...)
}

// Len reports the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
