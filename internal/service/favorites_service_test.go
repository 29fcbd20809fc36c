package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/memory"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/logger"
	"github.com/tejashwikalptaru/dreamstream/internal/testutil"
)

func newTestFavoritesService() (*FavoritesService, *testEnv) {
	env := newTestEnv()
	return NewFavoritesService(logger.NewTestLogger(), env.store, env.bus), env
}

func TestFavoritesService_EmptyList(t *testing.T) {
	svc, _ := newTestFavoritesService()

	ids := svc.List(context.Background())
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestFavoritesService_AddKeepsInsertionOrder(t *testing.T) {
	svc, _ := newTestFavoritesService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "forest-walk"))
	require.NoError(t, svc.Add(ctx, "ocean-drift"))
	require.NoError(t, svc.Add(ctx, "night-sky"))

	assert.Equal(t, []string{"forest-walk", "ocean-drift", "night-sky"}, svc.List(ctx))
	assert.True(t, svc.Contains(ctx, "ocean-drift"))
	assert.False(t, svc.Contains(ctx, "desert-wind"))
}

func TestFavoritesService_AddIsIdempotent(t *testing.T) {
	svc, env := newTestFavoritesService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "forest-walk"))
	require.NoError(t, svc.Add(ctx, "forest-walk"))

	assert.Equal(t, []string{"forest-walk"}, svc.List(ctx))
	assert.Equal(t, 1, env.substrate.Calls(memory.OpSet), "second add must not write")
	assert.Len(t, env.events.ofType(domain.EventFavoritesChanged), 1)
}

func TestFavoritesService_Remove(t *testing.T) {
	svc, env := newTestFavoritesService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "a"))
	require.NoError(t, svc.Add(ctx, "b"))
	require.NoError(t, svc.Add(ctx, "c"))

	require.NoError(t, svc.Remove(ctx, "b"))
	assert.Equal(t, []string{"a", "c"}, svc.List(ctx))

	// removing a non-member is a quiet success
	writes := env.substrate.Calls(memory.OpSet)
	require.NoError(t, svc.Remove(ctx, "zzz"))
	assert.Equal(t, writes, env.substrate.Calls(memory.OpSet))
}

func TestFavoritesService_ToggleTwiceRestores(t *testing.T) {
	svc, env := newTestFavoritesService()
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, "a"))

	member, err := svc.Toggle(ctx, "b")
	require.NoError(t, err)
	assert.True(t, member)
	assert.Equal(t, []string{"a", "b"}, svc.List(ctx))

	member, err = svc.Toggle(ctx, "b")
	require.NoError(t, err)
	assert.False(t, member)
	assert.Equal(t, []string{"a"}, svc.List(ctx))

	events := env.events.ofType(domain.EventFavoritesChanged)
	require.Len(t, events, 3)
	assert.False(t, events[2].(domain.FavoritesChangedEvent).Favorite)
}

func TestFavoritesService_RejectsBlankID(t *testing.T) {
	svc, _ := newTestFavoritesService()
	ctx := context.Background()

	var verr *domain.ValidationError
	assert.ErrorAs(t, svc.Add(ctx, ""), &verr)
	_, err := svc.Toggle(ctx, "  ")
	assert.ErrorAs(t, err, &verr)
	assert.Empty(t, svc.List(ctx))
}

func TestFavoritesService_ReadFailureYieldsEmptyList(t *testing.T) {
	svc, env := newTestFavoritesService()
	ctx := context.Background()
	require.NoError(t, svc.Add(ctx, "a"))

	env.substrate.FailOn(memory.OpGet, KeyFavorites, errors.New("io error"))
	ids := svc.List(ctx)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
	assert.False(t, svc.Contains(ctx, "a"))

	env.substrate.Heal()
	assert.Equal(t, []string{"a"}, svc.List(ctx))
}

func TestFavoritesService_ReadPanicYieldsEmptyList(t *testing.T) {
	svc, env := newTestFavoritesService()
	env.substrate.PanicOn(memory.OpGet, KeyFavorites)

	assert.NotPanics(t, func() {
		assert.Empty(t, svc.List(context.Background()))
	})
}

func TestFavoritesService_StoredNull(t *testing.T) {
	svc, env := newTestFavoritesService()
	env.substrate.Put(KeyFavorites, "null")

	ids := svc.List(context.Background())
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestFavoritesService_WriteFailure(t *testing.T) {
	svc, env := newTestFavoritesService()
	ctx := context.Background()
	env.substrate.FailOn(memory.OpSet, KeyFavorites, errors.New("quota exceeded"))

	err := svc.Add(ctx, "a")
	require.Error(t, err)
	assert.True(t, domain.IsStorageKind(err, domain.KindWriteFailed))
	assert.Empty(t, env.events.ofType(domain.EventFavoritesChanged))

	member, err := svc.Toggle(ctx, "a")
	require.Error(t, err)
	assert.False(t, member)
}

func TestFavoritesService_ConcurrentAdds(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	svc, _ := newTestFavoritesService()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, svc.Add(ctx, fmt.Sprintf("dream-%02d", i)))
		}(i)
	}
	wg.Wait()

	assert.Len(t, svc.List(ctx), 50)
}
