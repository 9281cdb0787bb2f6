// Package eventbus provides implementations of the EventBus interface.
// This package contains the synchronous event bus implementation.
package eventbus

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/tunecore/internal/domain"
	"github.com/tejashwikalptaru/tunecore/internal/ports"
)

// ErrBusClosed is returned by Close when the bus was already closed.
var ErrBusClosed = errors.New("event bus already closed")

// SyncEventBus is a synchronous implementation of the EventBus interface.
// Events are delivered to handlers on the publishing goroutine, in subscription order.
//
// Thread-safety: Multiple goroutines can publish events and subscribe/unsubscribe
// handlers concurrently. Handlers run outside the internal lock, so a handler may
// publish further events or unsubscribe itself.
type SyncEventBus struct {
	logger *slog.Logger

	// subscribers map event types to their subscriptions
	subscribers map[domain.EventType][]subscription

	// allSubscribers contains handlers that receive all events
	allSubscribers []subscription

	// mu protects everything above and closed
	mu sync.RWMutex

	closed bool
}

// subscription is a single registered handler with an optional filter.
type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
	filter  ports.EventFilter
}

// NewSyncEventBus creates a new synchronous event bus.
// A nil logger discards handler diagnostics.
func NewSyncEventBus(logger *slog.Logger) *SyncEventBus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SyncEventBus{
		logger:         logger,
		subscribers:    make(map[domain.EventType][]subscription),
		allSubscribers: make([]subscription, 0),
	}
}

// Publish delivers an event to the subscribers of its type, then to wildcard subscribers.
// Publishing on a closed bus does nothing. Panics in handlers are recovered and
// logged without stopping delivery to the remaining handlers.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	typed := append([]subscription(nil), bus.subscribers[event.Type()]...)
	wildcard := append([]subscription(nil), bus.allSubscribers...)
	bus.mu.RUnlock()

	for _, sub := range typed {
		bus.deliver(sub, event)
	}
	for _, sub := range wildcard {
		bus.deliver(sub, event)
	}
}

// deliver calls a handler, applying its filter and recovering from panics.
func (bus *SyncEventBus) deliver(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)))
		}
	}()

	if sub.filter != nil && !sub.filter(event) {
		return
	}
	sub.handler(event)
}

// Subscribe registers a handler for events of the specified type.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.SubscribeFiltered(eventType, nil, handler)
}

// SubscribeFiltered registers a handler that only sees events accepted by filter.
// A nil filter accepts everything.
func (bus *SyncEventBus) SubscribeFiltered(eventType domain.EventType, filter ports.EventFilter, handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	sub := subscription{
		id:      domain.SubscriptionID("sub-" + uuid.NewString()),
		handler: handler,
		filter:  filter,
	}
	bus.subscribers[eventType] = append(bus.subscribers[eventType], sub)

	return sub.id
}

// SubscribeAll registers a handler that receives all events regardless of type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	if handler == nil {
		panic("event handler cannot be nil")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		panic("cannot subscribe to closed event bus")
	}

	sub := subscription{
		id:      domain.SubscriptionID("sub-all-" + uuid.NewString()),
		handler: handler,
	}
	bus.allSubscribers = append(bus.allSubscribers, sub)

	return sub.id
}

// Unsubscribe removes a previously registered event handler.
// Unknown IDs are ignored. Remaining handlers keep their relative order.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for eventType, subs := range bus.subscribers {
		if i := indexOf(subs, id); i >= 0 {
			bus.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}

	if i := indexOf(bus.allSubscribers, id); i >= 0 {
		bus.allSubscribers = append(bus.allSubscribers[:i:i], bus.allSubscribers[i+1:]...)
	}
}

func indexOf(subs []subscription, id domain.SubscriptionID) int {
	for i, sub := range subs {
		if sub.id == id {
			return i
		}
	}
	return -1
}

// HasSubscribers returns true if any handler would receive an event of the given type.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	return len(bus.subscribers[eventType]) > 0 || len(bus.allSubscribers) > 0
}

// SubscriberCount returns the number of active subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	count := len(bus.allSubscribers)
	for _, subs := range bus.subscribers {
		count += len(subs)
	}
	return count
}

// Close shuts down the event bus and clears all subscriptions.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrBusClosed
	}

	bus.closed = true
	bus.subscribers = make(map[domain.EventType][]subscription)
	bus.allSubscribers = nil

	return nil
}

// Verify that SyncEventBus implements the EventBus interfaces
var (
	_ ports.EventBus          = (*SyncEventBus)(nil)
	_ ports.FilteringEventBus = (*SyncEventBus)(nil)
)
