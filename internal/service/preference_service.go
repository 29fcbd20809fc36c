// Package service provides the Dream Stream stores: preferences, favorites,
// playback progress, history and the audio cache index.
//
// Every store reads its own storage key through kv, applies its domain rule
// and writes the whole value back. Reads never fail; writes return an error
// the caller may inspect or ignore.
package service

import (
	"context"
	"log/slog"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/kv"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// PreferenceService stores the user settings record.
// Read-modify-write is serialized by the kv key lock.
type PreferenceService struct {
	// Dependencies (injected)
	logger *slog.Logger
	store  *kv.Store
	bus    ports.EventBus
}

// NewPreferenceService creates a new preference service.
func NewPreferenceService(
	logger *slog.Logger,
	store *kv.Store,
	bus ports.EventBus,
) *PreferenceService {
	logger.Debug("preference service initialized")

	return &PreferenceService{
		logger: logger,
		store:  store,
		bus:    bus,
	}
}

// Get returns the stored settings shallow-merged onto the defaults.
func (s *PreferenceService) Get(ctx context.Context) domain.Preferences {
	stored, _ := kv.Read(ctx, s.store, KeyPreferences, domain.PreferencesPatch{})
	return stored.Apply(domain.DefaultPreferences())
}

// Update merges patch onto the current settings, validates the result and
// writes the full record.
func (s *PreferenceService) Update(ctx context.Context, patch domain.PreferencesPatch) (domain.Preferences, error) {
	var merged domain.Preferences

	_, err := kv.Update(ctx, s.store, KeyPreferences, emptyPatch, func(stored domain.PreferencesPatch) (domain.PreferencesPatch, error) {
		merged = patch.Apply(stored.Apply(domain.DefaultPreferences()))
		if err := validateRecord(merged); err != nil {
			return stored, err
		}
		return domain.PatchFrom(merged), nil
	})
	if err != nil {
		s.logger.Debug("preferences update rejected", slog.Any("error", err))
		return s.Get(ctx), err
	}

	publish(s.bus, domain.NewPreferencesChangedEvent(merged))
	return merged, nil
}

// Reset writes the default record, discarding all customization.
func (s *PreferenceService) Reset(ctx context.Context) error {
	defaults := domain.DefaultPreferences()
	if err := s.store.Set(ctx, KeyPreferences, defaults); err != nil {
		return err
	}

	s.logger.Info("preferences reset to defaults")
	publish(s.bus, domain.NewPreferencesChangedEvent(defaults))
	return nil
}

// Shutdown cleans up resources.
func (s *PreferenceService) Shutdown() error {
	// No cleanup needed for preference service
	return nil
}

func emptyPatch() domain.PreferencesPatch {
	return domain.PreferencesPatch{}
}

// publish sends event when a bus is wired.
func publish(bus ports.EventBus, event domain.Event) {
	if bus != nil {
		bus.Publish(event)
	}
}

// Verify interface implementation
var _ ports.PreferencesStore = (*PreferenceService)(nil)
