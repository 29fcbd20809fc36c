package ports

import "context"

// Substrate is the device's raw, unordered, string-keyed storage.
// Implementations may fail on any call; the kv layer absorbs those failures.
//
// Thread-safety: Implementations must be thread-safe.
type Substrate interface {
	// GetItem returns the stored string and true, or "" and false when the key is absent.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// Clear removes every key this substrate holds.
	Clear(ctx context.Context) error

	// Close releases the underlying handle.
	Close() error
}
