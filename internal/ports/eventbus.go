// Package ports define the EventBus interface for event-driven communication.
// Stores announce their writes on the bus; screens subscribe instead of polling storage.
package ports

import (
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
)

// EventBus is the interface for publishing and subscribing to events.
//
// The event bus decouples event producers (stores) from event consumers (screens,
// player controller, logging). Multiple subscribers can listen to the same event,
// and subscribers don't know about publishers.
//
// Thread-safety: Implementations must be thread-safe as events may be published and
// subscribed from multiple goroutines simultaneously.
//
// Example usage:
//
//	// In a store: Publish an event
//	bus.Publish(domain.NewFavoritesChangedEvent(dreamID, true))
//
//	// In a screen: Subscribe to events
//	subID := bus.Subscribe(domain.EventFavoritesChanged, func(event domain.Event) {
//	    e := event.(domain.FavoritesChangedEvent)
//	    ui.SetHeart(e.DreamID, e.Favorite)
//	})
//
//	// Later: Unsubscribe
//	bus.Unsubscribe(subID)
type EventBus interface {
	// Publish publishes an event to all subscribers of that event type.
	// The event is delivered to handlers synchronously in the order they subscribed.
	//
	// This method must not block for long periods. Handlers should process events quickly
	// or dispatch to a background goroutine if long processing is needed.
	Publish(event domain.Event)

	// Subscribe registers a handler for events of the specified type.
	// Each subscription gets a unique SubscriptionID.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a previously registered event handler.
	// If the subscription ID is invalid or already unsubscribed, this is a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler that receives all events regardless of type.
	// This is useful for logging, debugging, or analytics.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// HasSubscribers returns true if there are any active subscriptions for the given event type.
	// This can be used to avoid expensive event construction if no one is listening.
	HasSubscribers(eventType domain.EventType) bool

	// Close shuts down the event bus and cleans up resources.
	// After calling Close, no more events should be published or subscribed.
	Close() error
}
