package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/kv"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// HistoryService keeps the most-recent-first listening log.
// The log never holds more than limit entries; the oldest fall off the tail.
type HistoryService struct {
	logger *slog.Logger
	store  *kv.Store
	bus    ports.EventBus
	limit  int

	clock   func() time.Time
	clockMu sync.RWMutex
}

// NewHistoryService creates a new history service.
// A limit <= 0 uses domain.MaxHistoryEntries.
func NewHistoryService(logger *slog.Logger, store *kv.Store, bus ports.EventBus, limit int) *HistoryService {
	if limit <= 0 {
		limit = domain.MaxHistoryEntries
	}
	return &HistoryService{
		logger: logger,
		store:  store,
		bus:    bus,
		limit:  limit,
		clock:  time.Now,
	}
}

// SetClock replaces the clock used to stamp PlayedAt.
func (s *HistoryService) SetClock(clock func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.clock = clock
}

func (s *HistoryService) now() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.clock()
}

// Limit returns the maximum log length.
func (s *HistoryService) Limit() int {
	return s.limit
}

// List returns the log, most recent first.
func (s *HistoryService) List(ctx context.Context) []domain.HistoryEntry {
	entries, _ := kv.Read(ctx, s.store, KeyDreamHistory, emptyHistory())
	if entries == nil {
		return emptyHistory()
	}
	return entries
}

// Add stamps PlayedAt, prepends e and truncates to the limit in the same write.
func (s *HistoryService) Add(ctx context.Context, e domain.HistoryEntry) (domain.HistoryEntry, error) {
	if err := requireID(e.DreamID); err != nil {
		return e, err
	}
	if err := validateRecord(e); err != nil {
		return e, err
	}

	evicted := 0
	_, err := kv.Update(ctx, s.store, KeyDreamHistory, emptyHistory, func(entries []domain.HistoryEntry) ([]domain.HistoryEntry, error) {
		e.PlayedAt = s.now()

		next := make([]domain.HistoryEntry, 0, min(len(entries)+1, s.limit))
		next = append(next, e)
		next = append(next, entries...)
		if len(next) > s.limit {
			evicted = len(next) - s.limit
			next = next[:s.limit]
		}
		return next, nil
	})
	if err != nil {
		return e, err
	}

	if evicted > 0 {
		s.logger.Debug("history truncated", slog.Int("evicted", evicted), slog.Int("limit", s.limit))
	}
	publish(s.bus, domain.NewHistoryAppendedEvent(e, evicted))
	return e, nil
}

// Clear persists an empty log.
func (s *HistoryService) Clear(ctx context.Context) error {
	if err := s.store.Set(ctx, KeyDreamHistory, emptyHistory()); err != nil {
		return err
	}

	publish(s.bus, domain.NewHistoryClearedEvent())
	return nil
}

func emptyHistory() []domain.HistoryEntry {
	return []domain.HistoryEntry{}
}

// Verify interface implementation
var _ ports.HistoryStore = (*HistoryService)(nil)
