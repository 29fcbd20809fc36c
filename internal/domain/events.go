// Package domain defines events for the event-driven architecture.
// Stores publish an event after every successful write so screens can refresh.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
// All events must implement this interface to be published via the event bus.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants define all possible events in the system.
const (
	EventPreferencesChanged EventType = "preferences.changed"

	EventFavoritesChanged EventType = "favorites.changed"

	EventProgressUpdated EventType = "progress.updated"
	EventProgressCleared EventType = "progress.cleared"

	EventHistoryAppended EventType = "history.appended"
	EventHistoryCleared  EventType = "history.cleared"

	EventAudioCached       EventType = "audio_cache.stored"
	EventAudioCacheRemoved EventType = "audio_cache.removed"
	EventAudioCacheCleared EventType = "audio_cache.cleared"

	EventStorageReset EventType = "storage.reset"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
// All concrete events should embed this struct.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

// newBaseEvent creates a new base event with the current timestamp.
func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// PreferencesChangedEvent is published after preferences are written or reset.
type PreferencesChangedEvent struct {
	baseEvent
	Preferences Preferences
}

// Type returns the event type.
func (e PreferencesChangedEvent) Type() EventType {
	return EventPreferencesChanged
}

// NewPreferencesChangedEvent creates a new PreferencesChangedEvent.
func NewPreferencesChangedEvent(prefs Preferences) PreferencesChangedEvent {
	return PreferencesChangedEvent{
		baseEvent:   newBaseEvent(),
		Preferences: prefs,
	}
}

// FavoritesChangedEvent is published when a dream is added to or removed from favorites.
type FavoritesChangedEvent struct {
	baseEvent
	DreamID  string
	Favorite bool // membership after the change
}

// Type returns the event type.
func (e FavoritesChangedEvent) Type() EventType {
	return EventFavoritesChanged
}

// NewFavoritesChangedEvent creates a new FavoritesChangedEvent.
func NewFavoritesChangedEvent(dreamID string, favorite bool) FavoritesChangedEvent {
	return FavoritesChangedEvent{
		baseEvent: newBaseEvent(),
		DreamID:   dreamID,
		Favorite:  favorite,
	}
}

// ProgressUpdatedEvent is published after a progress upsert.
type ProgressUpdatedEvent struct {
	baseEvent
	Progress PlaybackProgress
}

// Type returns the event type.
func (e ProgressUpdatedEvent) Type() EventType {
	return EventProgressUpdated
}

// NewProgressUpdatedEvent creates a new ProgressUpdatedEvent.
func NewProgressUpdatedEvent(progress PlaybackProgress) ProgressUpdatedEvent {
	return ProgressUpdatedEvent{
		baseEvent: newBaseEvent(),
		Progress:  progress,
	}
}

// ProgressClearedEvent is published after one dream's progress is removed.
type ProgressClearedEvent struct {
	baseEvent
	DreamID string
}

// Type returns the event type.
func (e ProgressClearedEvent) Type() EventType {
	return EventProgressCleared
}

// NewProgressClearedEvent creates a new ProgressClearedEvent.
func NewProgressClearedEvent(dreamID string) ProgressClearedEvent {
	return ProgressClearedEvent{
		baseEvent: newBaseEvent(),
		DreamID:   dreamID,
	}
}

// HistoryAppendedEvent is published after a session is added to the history log.
type HistoryAppendedEvent struct {
	baseEvent
	Entry   HistoryEntry
	Evicted int // entries dropped from the tail by this write
}

// Type returns the event type.
func (e HistoryAppendedEvent) Type() EventType {
	return EventHistoryAppended
}

// NewHistoryAppendedEvent creates a new HistoryAppendedEvent.
func NewHistoryAppendedEvent(entry HistoryEntry, evicted int) HistoryAppendedEvent {
	return HistoryAppendedEvent{
		baseEvent: newBaseEvent(),
		Entry:     entry,
		Evicted:   evicted,
	}
}

// HistoryClearedEvent is published after the history log is emptied.
type HistoryClearedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e HistoryClearedEvent) Type() EventType {
	return EventHistoryCleared
}

// NewHistoryClearedEvent creates a new HistoryClearedEvent.
func NewHistoryClearedEvent() HistoryClearedEvent {
	return HistoryClearedEvent{baseEvent: newBaseEvent()}
}

// AudioCachedEvent is published after a cache entry is stored.
type AudioCachedEvent struct {
	baseEvent
	Entry   CacheEntry
	Evicted []CacheKey
}

// Type returns the event type.
func (e AudioCachedEvent) Type() EventType {
	return EventAudioCached
}

// NewAudioCachedEvent creates a new AudioCachedEvent.
func NewAudioCachedEvent(entry CacheEntry, evicted []CacheKey) AudioCachedEvent {
	return AudioCachedEvent{
		baseEvent: newBaseEvent(),
		Entry:     entry,
		Evicted:   evicted,
	}
}

// AudioCacheRemovedEvent is published after a single cache entry is removed.
type AudioCacheRemovedEvent struct {
	baseEvent
	Key CacheKey
}

// Type returns the event type.
func (e AudioCacheRemovedEvent) Type() EventType {
	return EventAudioCacheRemoved
}

// NewAudioCacheRemovedEvent creates a new AudioCacheRemovedEvent.
func NewAudioCacheRemovedEvent(key CacheKey) AudioCacheRemovedEvent {
	return AudioCacheRemovedEvent{
		baseEvent: newBaseEvent(),
		Key:       key,
	}
}

// AudioCacheClearedEvent is published after the whole cache index is emptied.
type AudioCacheClearedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e AudioCacheClearedEvent) Type() EventType {
	return EventAudioCacheCleared
}

// NewAudioCacheClearedEvent creates a new AudioCacheClearedEvent.
func NewAudioCacheClearedEvent() AudioCacheClearedEvent {
	return AudioCacheClearedEvent{baseEvent: newBaseEvent()}
}

// StorageResetEvent is published after the whole substrate is cleared.
type StorageResetEvent struct {
	baseEvent
}

// Type returns the event type.
func (e StorageResetEvent) Type() EventType {
	return EventStorageReset
}

// NewStorageResetEvent creates a new StorageResetEvent.
func NewStorageResetEvent() StorageResetEvent {
	return StorageResetEvent{baseEvent: newBaseEvent()}
}
