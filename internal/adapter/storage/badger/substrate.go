// Package badger provides a substrate backed by a Badger database.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// keyPrefix scopes our keys so Clear can drop them without touching anything else.
const keyPrefix = "dreamstream/"

// Substrate implements ports.Substrate using Badger.
type Substrate struct {
	db *badger.DB
}

// Open opens (or creates) a Badger database in dir.
// An empty dir opens an in-memory database.
func Open(dir string) (*Substrate, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil       // Disable Badger's internal logging
	opts.SyncWrites = true  // Preferences survive a crash right after the write
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	return &Substrate{db: db}, nil
}

func dbKey(key string) []byte {
	return []byte(keyPrefix + key)
}

// GetItem returns the value stored under key.
func (s *Substrate) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var value string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dbKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetItem stores value under key.
func (s *Substrate) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(dbKey(key), []byte(value))
	})
}

// RemoveItem deletes key.
func (s *Substrate) RemoveItem(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(dbKey(key))
	})
}

// Clear drops every key under our prefix.
func (s *Substrate) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.DropPrefix([]byte(keyPrefix))
}

// Close closes the database.
func (s *Substrate) Close() error {
	return s.db.Close()
}

// Verify interface implementation
var _ ports.Substrate = (*Substrate)(nil)
