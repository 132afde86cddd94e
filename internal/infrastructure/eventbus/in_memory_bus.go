package eventbus

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
)

type HandlerFunc func(event.Event) error

type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerFunc
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[event.Type][]HandlerFunc),
	}
}

func (b *InMemoryBus) Subscribe(eventType event.Type, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish runs every handler for the event type, outside the lock, and
// stops at the first failure.
func (b *InMemoryBus) Publish(evt event.Event) error {
	b.mu.RLock()
	handlers := append([]HandlerFunc(nil), b.handlers[evt.Type]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(evt); err != nil {
			return errors.Wrapf(err, "Failed handle %s for %s", evt.Type, evt.AggregateID)
		}
	}

	return nil
}
