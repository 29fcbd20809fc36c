// Package kv is the JSON key-value layer every store sits on.
//
// It turns a failure-prone string substrate into a primitive that never
// panics and never makes a caller handle a read error: reads degrade to
// "absent" with an explicit Outcome, writes report a *domain.StorageError.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// ErrNoChange may be returned from an Update function to skip the write.
// Update then reports success.
var ErrNoChange = errors.New("kv: no change")

// Outcome classifies a read.
type Outcome int

const (
	Found Outcome = iota
	Absent
	ReadFailed
	ParseFailed
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Absent:
		return "absent"
	case ReadFailed:
		return "read_failed"
	case ParseFailed:
		return "parse_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of a read plus the error behind a failed one.
type Result struct {
	Outcome Outcome
	Err     error
}

// Found reports whether the key existed and decoded.
func (r Result) Found() bool {
	return r.Outcome == Found
}

// Store wraps a substrate with JSON encoding and failure containment.
// There is no in-memory cache: every call reaches the substrate.
//
// Thread-safe: Update serializes read-modify-write per key.
type Store struct {
	substrate ports.Substrate
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Store over substrate.
func New(substrate ports.Substrate, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		substrate: substrate,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Load decodes the value stored under key into dest.
// dest is only meaningful when the result is Found.
func (s *Store) Load(ctx context.Context, key string, dest any) Result {
	if err := ctx.Err(); err != nil {
		return s.readFailure(key, domain.NewStorageError("get", key, domain.KindReadFailed, err))
	}

	var (
		raw string
		ok  bool
	)
	err := guard(func() (err error) {
		raw, ok, err = s.substrate.GetItem(ctx, key)
		return err
	})
	if err != nil {
		return s.readFailure(key, domain.NewStorageError("get", key, domain.KindReadFailed, err))
	}
	if !ok {
		return Result{Outcome: Absent}
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		serr := domain.NewStorageError("get", key, domain.KindParseFailed, err)
		s.logger.Warn("stored value is corrupt",
			slog.String("key", key),
			slog.Any("error", err))
		return Result{Outcome: ParseFailed, Err: serr}
	}
	return Result{Outcome: Found}
}

func (s *Store) readFailure(key string, err *domain.StorageError) Result {
	s.logger.Warn("storage read failed",
		slog.String("key", key),
		slog.Any("error", err.Err))
	return Result{Outcome: ReadFailed, Err: err}
}

// Get decodes key into dest and reports whether it was found.
// Missing keys, read failures and corrupt values all return false.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	return s.Load(ctx, key, dest).Found()
}

// Set encodes value and stores it under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	unlock := s.lock(key)
	defer unlock()
	return s.set(ctx, key, value)
}

func (s *Store) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return s.writeFailure(domain.NewStorageError("set", key, domain.KindEncodeFailed, err))
	}
	if err := ctx.Err(); err != nil {
		return s.writeFailure(domain.NewStorageError("set", key, domain.KindWriteFailed, err))
	}

	err = guard(func() error {
		return s.substrate.SetItem(ctx, key, string(data))
	})
	if err != nil {
		return s.writeFailure(domain.NewStorageError("set", key, domain.KindWriteFailed, err))
	}
	return nil
}

// Remove deletes key. Removing an absent key succeeds.
func (s *Store) Remove(ctx context.Context, key string) error {
	unlock := s.lock(key)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return s.writeFailure(domain.NewStorageError("remove", key, domain.KindRemoveFailed, err))
	}
	err := guard(func() error {
		return s.substrate.RemoveItem(ctx, key)
	})
	if err != nil {
		return s.writeFailure(domain.NewStorageError("remove", key, domain.KindRemoveFailed, err))
	}
	return nil
}

// Clear wipes the whole substrate.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return s.writeFailure(domain.NewStorageError("clear", "", domain.KindClearFailed, err))
	}
	err := guard(func() error {
		return s.substrate.Clear(ctx)
	})
	if err != nil {
		return s.writeFailure(domain.NewStorageError("clear", "", domain.KindClearFailed, err))
	}
	return nil
}

func (s *Store) writeFailure(err *domain.StorageError) error {
	s.logger.Warn("storage write failed",
		slog.String("op", err.Op),
		slog.String("key", err.Key),
		slog.String("kind", string(err.Kind)),
		slog.Any("error", err.Err))
	return err
}

// lock acquires the mutex for key and returns its release.
func (s *Store) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// guard runs fn and turns a substrate panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("substrate panicked: %v", r)
		}
	}()
	return fn()
}

// Read loads key as a T, returning fallback unless the value was found.
func Read[T any](ctx context.Context, s *Store, key string, fallback T) (T, Result) {
	var v T
	res := s.Load(ctx, key, &v)
	if !res.Found() {
		return fallback, res
	}
	return v, res
}

// Update runs a read-modify-write on key while holding the key's lock.
//
// A missing or corrupt current value is replaced by fallback(), so a bad
// record heals on the next write. A failed read aborts with its
// *domain.StorageError instead: the value may still be intact, and writing
// fn(fallback()) over it would lose it.
// fn returns the value to persist, or ErrNoChange to skip the write.
// Any other error from fn aborts without writing and is returned as is.
func Update[T any](ctx context.Context, s *Store, key string, fallback func() T, fn func(T) (T, error)) (T, error) {
	unlock := s.lock(key)
	defer unlock()

	current, res := Read(ctx, s, key, fallback())
	if res.Outcome == ReadFailed {
		return current, res.Err
	}
	next, err := fn(current)
	if errors.Is(err, ErrNoChange) {
		return next, nil
	}
	if err != nil {
		return next, err
	}

	if err := s.set(ctx, key, next); err != nil {
		return next, err
	}
	return next, nil
}
