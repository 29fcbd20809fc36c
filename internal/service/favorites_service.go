package service

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/kv"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// FavoritesService keeps the ordered set of favorite dream ids.
type FavoritesService struct {
	logger *slog.Logger
	store  *kv.Store
	bus    ports.EventBus
}

// NewFavoritesService creates a new favorites service.
func NewFavoritesService(logger *slog.Logger, store *kv.Store, bus ports.EventBus) *FavoritesService {
	return &FavoritesService{
		logger: logger,
		store:  store,
		bus:    bus,
	}
}

// List returns the favorites in insertion order.
func (s *FavoritesService) List(ctx context.Context) []string {
	ids, _ := kv.Read(ctx, s.store, KeyFavorites, []string{})
	if ids == nil {
		// a stored JSON null
		return []string{}
	}
	return ids
}

// Contains reports whether id is a favorite.
func (s *FavoritesService) Contains(ctx context.Context, id string) bool {
	return slices.Contains(s.List(ctx), id)
}

// Add appends id unless it is already present.
func (s *FavoritesService) Add(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}

	added := false
	_, err := kv.Update(ctx, s.store, KeyFavorites, emptyIDs, func(ids []string) ([]string, error) {
		if slices.Contains(ids, id) {
			return ids, kv.ErrNoChange
		}
		added = true
		return append(ids, id), nil
	})
	if err != nil {
		return err
	}

	if added {
		s.logger.Debug("favorite added", slog.String("dream_id", id))
		publish(s.bus, domain.NewFavoritesChangedEvent(id, true))
	}
	return nil
}

// Remove drops id. Removing a non-member succeeds without writing.
func (s *FavoritesService) Remove(ctx context.Context, id string) error {
	removed := false
	_, err := kv.Update(ctx, s.store, KeyFavorites, emptyIDs, func(ids []string) ([]string, error) {
		if !slices.Contains(ids, id) {
			return ids, kv.ErrNoChange
		}
		removed = true
		return slices.DeleteFunc(ids, func(v string) bool { return v == id }), nil
	})
	if err != nil {
		return err
	}

	if removed {
		s.logger.Debug("favorite removed", slog.String("dream_id", id))
		publish(s.bus, domain.NewFavoritesChangedEvent(id, false))
	}
	return nil
}

// Toggle flips the membership of id in a single locked read-modify-write
// and returns whether id is a favorite afterwards.
func (s *FavoritesService) Toggle(ctx context.Context, id string) (bool, error) {
	if err := requireID(id); err != nil {
		return false, err
	}

	var member bool
	_, err := kv.Update(ctx, s.store, KeyFavorites, emptyIDs, func(ids []string) ([]string, error) {
		if slices.Contains(ids, id) {
			member = false
			return slices.DeleteFunc(ids, func(v string) bool { return v == id }), nil
		}
		member = true
		return append(ids, id), nil
	})
	if err != nil {
		return s.Contains(ctx, id), err
	}

	publish(s.bus, domain.NewFavoritesChangedEvent(id, member))
	return member, nil
}

func emptyIDs() []string {
	return []string{}
}

// Verify interface implementation
var _ ports.FavoritesStore = (*FavoritesService)(nil)
