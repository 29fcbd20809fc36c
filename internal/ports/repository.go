// Package ports define the store interfaces the player controller, catalog and
// settings screens program against. The service package provides the implementations.
package ports

import (
	"context"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
)

// PreferencesStore holds the single user settings record.
//
// Thread-safety: Implementations must be thread-safe.
type PreferencesStore interface {
	// Get returns the stored settings merged onto the defaults.
	// A missing or unreadable record yields the defaults; it never fails.
	Get(ctx context.Context) domain.Preferences

	// Update merges the non-nil fields of patch onto the current settings
	// and persists the full record.
	//
	// Returns the merged record, or an error if validation or the write fails.
	Update(ctx context.Context, patch domain.PreferencesPatch) (domain.Preferences, error)

	// Reset writes the default record, discarding every customization.
	Reset(ctx context.Context) error
}

// FavoritesStore is an ordered set of dream ids.
//
// Thread-safety: Implementations must be thread-safe.
type FavoritesStore interface {
	// List returns the favorites in insertion order (empty, never nil).
	List(ctx context.Context) []string

	// Add appends id. Adding an existing member is a no-op success.
	Add(ctx context.Context, id string) error

	// Remove drops id. Removing a non-member is a no-op success.
	Remove(ctx context.Context, id string) error

	// Contains reports whether id is a favorite.
	Contains(ctx context.Context, id string) bool

	// Toggle flips membership of id and returns the new membership.
	Toggle(ctx context.Context, id string) (bool, error)
}

// ProgressStore maps dream ids to their last playback position.
//
// Thread-safety: Implementations must be thread-safe.
type ProgressStore interface {
	// Get returns the progress for id, or false if it was never played.
	Get(ctx context.Context, id string) (domain.PlaybackProgress, bool)

	// Set upserts the progress for p.DreamID. UpdatedAt is always assigned by the store.
	Set(ctx context.Context, p domain.PlaybackProgress) (domain.PlaybackProgress, error)

	// Clear removes the progress for id only. Clearing an unknown id is a no-op success.
	Clear(ctx context.Context, id string) error

	// All returns every progress entry keyed by dream id (empty, never nil).
	All(ctx context.Context) map[string]domain.PlaybackProgress
}

// HistoryStore is the bounded, most-recent-first listening log.
//
// Thread-safety: Implementations must be thread-safe.
type HistoryStore interface {
	// List returns the log, most recent first.
	List(ctx context.Context) []domain.HistoryEntry

	// Add stamps PlayedAt, prepends the entry and drops the oldest entries past the bound.
	Add(ctx context.Context, e domain.HistoryEntry) (domain.HistoryEntry, error)

	// Clear empties the log.
	Clear(ctx context.Context) error
}

// AudioCache indexes generated or downloaded audio by (dream id, mode).
//
// Thread-safety: Implementations must be thread-safe.
type AudioCache interface {
	// Index returns every entry (empty, never nil).
	Index(ctx context.Context) map[domain.CacheKey]domain.CacheEntry

	// Get looks up one entry. It never triggers generation or download.
	Get(ctx context.Context, id string, mode domain.PlaybackMode) (domain.CacheEntry, bool)

	// Set stores e under its (dream id, mode) key. CachedAt is always assigned by the store.
	Set(ctx context.Context, e domain.CacheEntry) (domain.CacheEntry, error)

	// Clear empties the index.
	Clear(ctx context.Context) error
}
