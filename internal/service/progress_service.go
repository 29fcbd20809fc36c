package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/kv"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// ProgressService tracks where the user stopped in each dream.
type ProgressService struct {
	logger *slog.Logger
	store  *kv.Store
	bus    ports.EventBus

	clock   func() time.Time
	clockMu sync.RWMutex
}

// NewProgressService creates a new progress service.
func NewProgressService(logger *slog.Logger, store *kv.Store, bus ports.EventBus) *ProgressService {
	return &ProgressService{
		logger: logger,
		store:  store,
		bus:    bus,
		clock:  time.Now,
	}
}

// SetClock replaces the clock used to stamp UpdatedAt.
func (s *ProgressService) SetClock(clock func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.clock = clock
}

func (s *ProgressService) now() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.clock()
}

// All returns every progress entry keyed by dream id.
func (s *ProgressService) All(ctx context.Context) map[string]domain.PlaybackProgress {
	all, _ := kv.Read(ctx, s.store, KeyPlaybackProgress, emptyProgress())
	if all == nil {
		return emptyProgress()
	}
	return all
}

// Get returns the progress for id, or false when the dream was never played.
func (s *ProgressService) Get(ctx context.Context, id string) (domain.PlaybackProgress, bool) {
	p, ok := s.All(ctx)[id]
	return p, ok
}

// Set overwrites the entry for p.DreamID. UpdatedAt is stamped here;
// a caller-supplied value is ignored.
func (s *ProgressService) Set(ctx context.Context, p domain.PlaybackProgress) (domain.PlaybackProgress, error) {
	if err := requireID(p.DreamID); err != nil {
		return p, err
	}
	if err := validateRecord(p); err != nil {
		return p, err
	}

	_, err := kv.Update(ctx, s.store, KeyPlaybackProgress, emptyProgress, func(all map[string]domain.PlaybackProgress) (map[string]domain.PlaybackProgress, error) {
		if all == nil {
			all = emptyProgress()
		}
		p.UpdatedAt = s.now()
		all[p.DreamID] = p
		return all, nil
	})
	if err != nil {
		return p, err
	}

	publish(s.bus, domain.NewProgressUpdatedEvent(p))
	return p, nil
}

// Clear removes the entry for id and leaves the others untouched.
func (s *ProgressService) Clear(ctx context.Context, id string) error {
	removed := false
	_, err := kv.Update(ctx, s.store, KeyPlaybackProgress, emptyProgress, func(all map[string]domain.PlaybackProgress) (map[string]domain.PlaybackProgress, error) {
		if _, ok := all[id]; !ok {
			return all, kv.ErrNoChange
		}
		delete(all, id)
		removed = true
		return all, nil
	})
	if err != nil {
		return err
	}

	if removed {
		s.logger.Debug("progress cleared", slog.String("dream_id", id))
		publish(s.bus, domain.NewProgressClearedEvent(id))
	}
	return nil
}

// Resumable returns the unfinished entries, most recently updated first.
func (s *ProgressService) Resumable(ctx context.Context) []domain.PlaybackProgress {
	all := s.All(ctx)

	out := make([]domain.PlaybackProgress, 0, len(all))
	for _, p := range all {
		if !p.Completed {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].DreamID < out[j].DreamID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func emptyProgress() map[string]domain.PlaybackProgress {
	return make(map[string]domain.PlaybackProgress)
}

// Verify interface implementation
var _ ports.ProgressStore = (*ProgressService)(nil)
