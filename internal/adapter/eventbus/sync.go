// Package eventbus delivers store change events to in-process subscribers.
package eventbus

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// ErrClosed is returned by Close on a bus that is already closed.
var ErrClosed = errors.New("event bus already closed")

// SyncEventBus calls handlers on the publishing goroutine, type subscribers
// first and then wildcard subscribers, each group in subscription order.
//
// Publish runs after the store has released its key lock, so a handler may
// read from or write to any store.
type SyncEventBus struct {
	logger *slog.Logger

	mu             sync.RWMutex
	subscribers    map[domain.EventType][]subscription
	allSubscribers []subscription
	closed         bool

	idCounter atomic.Uint64
	published atomic.Uint64
}

type subscription struct {
	id      domain.SubscriptionID
	handler domain.EventHandler
}

// NewSyncEventBus creates a new synchronous event bus.
// A nil logger discards handler panics.
func NewSyncEventBus(logger *slog.Logger) *SyncEventBus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SyncEventBus{
		logger:      logger,
		subscribers: make(map[domain.EventType][]subscription),
	}
}

// Publish delivers event to its subscribers. Events published on a closed
// bus are dropped. A panicking handler is logged and skipped.
func (bus *SyncEventBus) Publish(event domain.Event) {
	if event == nil {
		return
	}

	bus.mu.RLock()
	if bus.closed {
		bus.mu.RUnlock()
		return
	}
	targets := make([]subscription, 0, len(bus.subscribers[event.Type()])+len(bus.allSubscribers))
	targets = append(targets, bus.subscribers[event.Type()]...)
	targets = append(targets, bus.allSubscribers...)
	bus.mu.RUnlock()

	bus.published.Add(1)
	for _, sub := range targets {
		bus.deliver(sub, event)
	}
}

func (bus *SyncEventBus) deliver(sub subscription, event domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			bus.logger.Error("event handler panicked",
				slog.Any("panic", r),
				slog.String("event_type", string(event.Type())),
				slog.String("subscription", string(sub.id)),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	sub.handler(event)
}

// Subscribe registers handler for one event type. Subscribing to a closed
// bus returns an empty id and registers nothing.
func (bus *SyncEventBus) Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(handler, func(sub subscription) {
		bus.subscribers[eventType] = append(bus.subscribers[eventType], sub)
	}, string(eventType))
}

// SubscribeAll registers handler for every event type.
func (bus *SyncEventBus) SubscribeAll(handler domain.EventHandler) domain.SubscriptionID {
	return bus.add(handler, func(sub subscription) {
		bus.allSubscribers = append(bus.allSubscribers, sub)
	}, "all")
}

func (bus *SyncEventBus) add(handler domain.EventHandler, register func(subscription), scope string) domain.SubscriptionID {
	if handler == nil {
		bus.logger.Warn("ignoring nil event handler", slog.String("scope", scope))
		return ""
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		bus.logger.Warn("subscribe on closed event bus", slog.String("scope", scope))
		return ""
	}

	id := domain.SubscriptionID(fmt.Sprintf("%s-%d", scope, bus.idCounter.Add(1)))
	register(subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
// The remaining subscribers keep their order.
func (bus *SyncEventBus) Unsubscribe(id domain.SubscriptionID) {
	if id == "" {
		return
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()

	match := func(sub subscription) bool { return sub.id == id }
	for eventType, subs := range bus.subscribers {
		if i := slices.IndexFunc(subs, match); i >= 0 {
			bus.subscribers[eventType] = slices.Delete(subs, i, i+1)
			return
		}
	}
	bus.allSubscribers = slices.DeleteFunc(bus.allSubscribers, match)
}

// HasSubscribers reports whether an event of eventType would reach any handler.
func (bus *SyncEventBus) HasSubscribers(eventType domain.EventType) bool {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return len(bus.subscribers[eventType]) > 0 || len(bus.allSubscribers) > 0
}

// SubscriberCount returns the number of live subscriptions.
func (bus *SyncEventBus) SubscriberCount() int {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	count := len(bus.allSubscribers)
	for _, subs := range bus.subscribers {
		count += len(subs)
	}
	return count
}

// Published returns how many events have been delivered since creation.
func (bus *SyncEventBus) Published() uint64 {
	return bus.published.Load()
}

// Close drops every subscription. Later publishes are ignored.
func (bus *SyncEventBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return ErrClosed
	}
	bus.closed = true
	bus.subscribers = make(map[domain.EventType][]subscription)
	bus.allSubscribers = nil
	return nil
}

// Verify interface implementation
var _ ports.EventBus = (*SyncEventBus)(nil)
