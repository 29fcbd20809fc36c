package service

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/kv"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// AudioCacheService indexes generated or downloaded audio by (dream id, mode).
// The preview and full renderings of one dream are independent entries.
type AudioCacheService struct {
	logger     *slog.Logger
	store      *kv.Store
	bus        ports.EventBus
	maxEntries int

	probe   ports.AudioProbe
	clock   func() time.Time
	clockMu sync.RWMutex
}

// NewAudioCacheService creates a new audio cache service.
// maxEntries <= 0 leaves the index unbounded.
func NewAudioCacheService(logger *slog.Logger, store *kv.Store, bus ports.EventBus, maxEntries int) *AudioCacheService {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &AudioCacheService{
		logger:     logger,
		store:      store,
		bus:        bus,
		maxEntries: maxEntries,
		clock:      time.Now,
	}
}

// SetClock replaces the clock used to stamp CachedAt.
func (s *AudioCacheService) SetClock(clock func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.clock = clock
}

// SetProbe wires the file inspector used by CacheFile.
func (s *AudioCacheService) SetProbe(probe ports.AudioProbe) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.probe = probe
}

func (s *AudioCacheService) now() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.clock()
}

func (s *AudioCacheService) prober() ports.AudioProbe {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.probe
}

// MaxEntries returns the index bound, 0 when unbounded.
func (s *AudioCacheService) MaxEntries() int {
	return s.maxEntries
}

// Index returns every cached entry.
func (s *AudioCacheService) Index(ctx context.Context) map[domain.CacheKey]domain.CacheEntry {
	index, _ := kv.Read(ctx, s.store, KeyTTSCache, emptyIndex())
	if index == nil {
		return emptyIndex()
	}
	return index
}

// Get looks up the entry for (id, mode). It never generates or downloads.
func (s *AudioCacheService) Get(ctx context.Context, id string, mode domain.PlaybackMode) (domain.CacheEntry, bool) {
	e, ok := s.Index(ctx)[domain.CacheKey{DreamID: id, Mode: mode}]
	return e, ok
}

// Set upserts e under its key and stamps CachedAt. With a bound configured
// the oldest entries are evicted in the same write.
func (s *AudioCacheService) Set(ctx context.Context, e domain.CacheEntry) (domain.CacheEntry, error) {
	if err := requireID(e.DreamID); err != nil {
		return e, err
	}
	if err := validateRecord(e); err != nil {
		return e, err
	}

	var evicted []domain.CacheKey
	_, err := kv.Update(ctx, s.store, KeyTTSCache, emptyIndex, func(index map[domain.CacheKey]domain.CacheEntry) (map[domain.CacheKey]domain.CacheEntry, error) {
		if index == nil {
			index = emptyIndex()
		}
		e.CachedAt = s.now()
		index[e.Key()] = e
		evicted = s.evict(index, e.Key())
		return index, nil
	})
	if err != nil {
		return e, err
	}

	if len(evicted) > 0 {
		s.logger.Debug("audio cache evicted entries",
			slog.Int("evicted", len(evicted)),
			slog.Int("max_entries", s.maxEntries))
	}
	publish(s.bus, domain.NewAudioCachedEvent(e, evicted))
	return e, nil
}

// evict drops the entries with the oldest CachedAt until the index fits.
// keep is never evicted.
func (s *AudioCacheService) evict(index map[domain.CacheKey]domain.CacheEntry, keep domain.CacheKey) []domain.CacheKey {
	if s.maxEntries <= 0 || len(index) <= s.maxEntries {
		return nil
	}

	candidates := make([]domain.CacheEntry, 0, len(index))
	for k, v := range index {
		if k != keep {
			candidates = append(candidates, v)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].CachedAt.Equal(candidates[j].CachedAt) {
			return candidates[i].Key().String() < candidates[j].Key().String()
		}
		return candidates[i].CachedAt.Before(candidates[j].CachedAt)
	})

	n := len(index) - s.maxEntries
	evicted := make([]domain.CacheKey, 0, n)
	for _, c := range candidates[:n] {
		delete(index, c.Key())
		evicted = append(evicted, c.Key())
	}
	return evicted
}

// setMany upserts entries in one write, stamping each with the same CachedAt.
// merge, when set, combines an existing entry with its replacement.
// A bounded index may evict part of the batch in that same write; stored
// holds only the entries still indexed afterwards.
func (s *AudioCacheService) setMany(
	ctx context.Context,
	entries []domain.CacheEntry,
	merge func(old, next domain.CacheEntry) domain.CacheEntry,
) ([]domain.CacheEntry, []domain.CacheKey, error) {
	var (
		stored  []domain.CacheEntry
		evicted []domain.CacheKey
	)

	_, err := kv.Update(ctx, s.store, KeyTTSCache, emptyIndex, func(index map[domain.CacheKey]domain.CacheEntry) (map[domain.CacheKey]domain.CacheEntry, error) {
		if index == nil {
			index = emptyIndex()
		}
		now := s.now()
		stored = make([]domain.CacheEntry, 0, len(entries))
		for _, e := range entries {
			if old, ok := index[e.Key()]; ok && merge != nil {
				e = merge(old, e)
			}
			e.CachedAt = now
			index[e.Key()] = e
			stored = append(stored, e)
		}
		evicted = s.evict(index, entries[len(entries)-1].Key())
		if len(evicted) > 0 {
			stored = slices.DeleteFunc(stored, func(e domain.CacheEntry) bool {
				_, ok := index[e.Key()]
				return !ok
			})
		}
		return index, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return stored, evicted, nil
}

// publishStored announces a batch; the eviction list rides on the last event.
func (s *AudioCacheService) publishStored(stored []domain.CacheEntry, evicted []domain.CacheKey) {
	for i, e := range stored {
		var dropped []domain.CacheKey
		if i == len(stored)-1 {
			dropped = evicted
		}
		publish(s.bus, domain.NewAudioCachedEvent(e, dropped))
	}
}

// Remove drops the entry for (id, mode). Removing a missing entry succeeds without writing.
func (s *AudioCacheService) Remove(ctx context.Context, id string, mode domain.PlaybackMode) error {
	key := domain.CacheKey{DreamID: id, Mode: mode}
	removed := false
	_, err := kv.Update(ctx, s.store, KeyTTSCache, emptyIndex, func(index map[domain.CacheKey]domain.CacheEntry) (map[domain.CacheKey]domain.CacheEntry, error) {
		if _, ok := index[key]; !ok {
			return index, kv.ErrNoChange
		}
		delete(index, key)
		removed = true
		return index, nil
	})
	if err != nil {
		return err
	}

	if removed {
		publish(s.bus, domain.NewAudioCacheRemovedEvent(key))
	}
	return nil
}

// Clear persists an empty index. Audio files themselves are not touched.
func (s *AudioCacheService) Clear(ctx context.Context) error {
	if err := s.store.Set(ctx, KeyTTSCache, emptyIndex()); err != nil {
		return err
	}

	s.logger.Info("audio cache index cleared")
	publish(s.bus, domain.NewAudioCacheClearedEvent())
	return nil
}

// CacheFile records a local audio file, filling size and format from the probe.
func (s *AudioCacheService) CacheFile(ctx context.Context, id string, mode domain.PlaybackMode, path string, duration float64) (domain.CacheEntry, error) {
	e := domain.CacheEntry{
		DreamID:  id,
		Mode:     mode,
		AudioURI: path,
		Duration: duration,
	}

	probe := s.prober()
	if probe == nil {
		return e, domain.NewServiceError("AudioCacheService", "CacheFile", "no audio probe configured", nil)
	}
	info, err := probe.Probe(path)
	if err != nil {
		return e, domain.NewServiceError("AudioCacheService", "CacheFile", "failed to probe audio file", err)
	}

	size := info.SizeBytes
	e.SizeBytes = &size
	e.Format = info.Format
	return s.Set(ctx, e)
}

func emptyIndex() map[domain.CacheKey]domain.CacheEntry {
	return make(map[domain.CacheKey]domain.CacheEntry)
}

// Verify interface implementation
var _ ports.AudioCache = (*AudioCacheService)(nil)
