// Package memory provides an in-process substrate.
// It backs demo mode and lets tests inject substrate failures and corrupt values.
package memory

import (
	"context"
	"sync"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// Op names a substrate call for fault injection.
type Op string

const (
	OpGet    Op = "get"
	OpSet    Op = "set"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

type fault struct {
	err   error
	panic bool
}

// Substrate implements ports.Substrate over a map.
//
// Thread-safe: All operations protected by sync.RWMutex.
type Substrate struct {
	items  map[string]string
	faults map[Op]map[string]fault
	closed bool
	calls  map[Op]int
	mu     sync.RWMutex
}

// NewSubstrate creates an empty substrate.
func NewSubstrate() *Substrate {
	return &Substrate{
		items:  make(map[string]string),
		faults: make(map[Op]map[string]fault),
		calls:  make(map[Op]int),
	}
}

// FailOn makes op on key return err until Heal is called.
// An empty key matches every key (and is the only match for OpClear).
func (s *Substrate) FailOn(op Op, key string, err error) {
	s.setFault(op, key, fault{err: err})
}

// PanicOn makes op on key panic until Heal is called.
func (s *Substrate) PanicOn(op Op, key string) {
	s.setFault(op, key, fault{panic: true})
}

func (s *Substrate) setFault(op Op, key string, f fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.faults[op] == nil {
		s.faults[op] = make(map[string]fault)
	}
	s.faults[op][key] = f
}

// Heal removes every injected fault.
func (s *Substrate) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[Op]map[string]fault)
}

// Put stores raw text under key, bypassing encoding. Used to plant corrupt values.
func (s *Substrate) Put(key, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = raw
}

// Raw returns the stored text for key.
func (s *Substrate) Raw(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Len returns the number of stored keys.
func (s *Substrate) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Calls returns how many times op reached the substrate.
func (s *Substrate) Calls(op Op) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// check records the call and applies any fault. Caller holds mu.
func (s *Substrate) check(op Op, key string) error {
	s.calls[op]++
	if s.closed {
		return domain.ErrSubstrateClosed
	}
	byKey := s.faults[op]
	f, ok := byKey[key]
	if !ok {
		f, ok = byKey[""]
	}
	if !ok {
		return nil
	}
	if f.panic {
		panic("memory substrate: injected panic on " + string(op) + " " + key)
	}
	return f.err
}

// GetItem returns the value stored under key.
func (s *Substrate) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(OpGet, key); err != nil {
		return "", false, err
	}
	v, ok := s.items[key]
	return v, ok, nil
}

// SetItem stores value under key.
func (s *Substrate) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(OpSet, key); err != nil {
		return err
	}
	s.items[key] = value
	return nil
}

// RemoveItem deletes key.
func (s *Substrate) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(OpRemove, key); err != nil {
		return err
	}
	delete(s.items, key)
	return nil
}

// Clear removes every key.
func (s *Substrate) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(OpClear, ""); err != nil {
		return err
	}
	s.items = make(map[string]string)
	return nil
}

// Close marks the substrate closed; later calls fail with domain.ErrSubstrateClosed.
func (s *Substrate) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Verify interface implementation
var _ ports.Substrate = (*Substrate)(nil)
