// Package fyneprefs provides a substrate backed by Fyne preferences.
package fyneprefs

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

const (
	// keyPrefix namespaces our entries inside the app's shared preferences.
	keyPrefix = "dreamstream."

	// indexKey lists every key we have written, so Clear can leave foreign keys alone.
	indexKey = keyPrefix + "_keys"

	// absent is the fallback that tells "never written" apart from an empty string.
	absent = "\x00absent"
)

// Substrate implements ports.Substrate using Fyne preferences.
//
// Fyne preferences automatically use OS-specific app data directories:
// - Android/iOS: the app's private preferences store
// - macOS: ~/Library/Preferences/<app id>.plist
// - Linux: ~/.config/fyne/<app id>/
// - Windows: %APPDATA%\fyne\<app id>\
//
// Thread-safe: All operations protected by sync.RWMutex.
type Substrate struct {
	prefs  fyne.Preferences
	closed bool
	mu     sync.RWMutex
}

// NewSubstrate creates a new preferences substrate.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewSubstrate(prefs fyne.Preferences) *Substrate {
	return &Substrate{
		prefs: prefs,
	}
}

// GetItem returns the value stored under key.
func (s *Substrate) GetItem(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", false, domain.ErrSubstrateClosed
	}

	value := s.prefs.StringWithFallback(keyPrefix+key, absent)
	if value == absent {
		return "", false, nil
	}
	return value, true, nil
}

// SetItem stores value under key.
func (s *Substrate) SetItem(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSubstrateClosed
	}

	keys, err := s.loadIndex()
	if err != nil {
		return err
	}
	if _, ok := keys[key]; !ok {
		keys[key] = struct{}{}
		if err := s.saveIndex(keys); err != nil {
			return err
		}
	}

	s.prefs.SetString(keyPrefix+key, value)
	return nil
}

// RemoveItem deletes key.
func (s *Substrate) RemoveItem(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSubstrateClosed
	}

	s.prefs.RemoveValue(keyPrefix + key)

	keys, err := s.loadIndex()
	if err != nil {
		return err
	}
	if _, ok := keys[key]; ok {
		delete(keys, key)
		return s.saveIndex(keys)
	}
	return nil
}

// Clear removes every key written through this substrate.
func (s *Substrate) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.ErrSubstrateClosed
	}

	keys, err := s.loadIndex()
	if err != nil {
		return err
	}
	for key := range keys {
		s.prefs.RemoveValue(keyPrefix + key)
	}
	s.prefs.RemoveValue(indexKey)
	return nil
}

// Close detaches the substrate. The Fyne app owns the preferences lifecycle.
func (s *Substrate) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// loadIndex reads the key index. Caller holds mu.
func (s *Substrate) loadIndex() (map[string]struct{}, error) {
	keys := make(map[string]struct{})

	data := s.prefs.String(indexKey)
	if data == "" {
		return keys, nil
	}

	var list []string
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, domain.NewServiceError("fyneprefs.Substrate", "loadIndex", "failed to unmarshal key index", err)
	}
	for _, k := range list {
		keys[k] = struct{}{}
	}
	return keys, nil
}

// saveIndex writes the key index. Caller holds mu.
func (s *Substrate) saveIndex(keys map[string]struct{}) error {
	list := make([]string, 0, len(keys))
	for k := range keys {
		list = append(list, k)
	}
	sort.Strings(list)

	data, err := json.Marshal(list)
	if err != nil {
		return domain.NewServiceError("fyneprefs.Substrate", "saveIndex", "failed to marshal key index", err)
	}
	s.prefs.SetString(indexKey, string(data))
	return nil
}

// Verify interface implementation
var _ ports.Substrate = (*Substrate)(nil)
