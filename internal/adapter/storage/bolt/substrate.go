// Package bolt provides a substrate backed by a BoltDB file.
package bolt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
	bolt "go.etcd.io/bbolt"
)

// bucketItems holds every key the app writes.
var bucketItems = []byte("dreamstream")

// Substrate implements ports.Substrate using BoltDB.
// BoltDB serializes writers itself, so no extra locking is needed here.
type Substrate struct {
	db *bolt.DB
}

// Open opens (or creates) the database file at path.
func Open(path string) (*Substrate, error) {
	if path == "" {
		return nil, domain.ErrInvalidFilePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketItems)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Substrate{db: db}, nil
}

// GetItem returns the value stored under key.
func (s *Substrate) GetItem(_ context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketItems)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			// v is only valid inside the transaction
			value = string(v)
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

// SetItem stores value under key.
func (s *Substrate) SetItem(_ context.Context, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketItems)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// RemoveItem deletes key.
func (s *Substrate) RemoveItem(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketItems)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Clear drops and recreates the bucket.
func (s *Substrate) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketItems) != nil {
			if err := tx.DeleteBucket(bucketItems); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(bucketItems)
		return err
	})
}

// Close closes the database file.
func (s *Substrate) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Verify interface implementation
var _ ports.Substrate = (*Substrate)(nil)
