package fyneprefs

import (
	"context"
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/storagetest"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// Helper to create a test substrate
func newTestSubstrate() *Substrate {
	// Use Fyne's test app which provides an in-memory preferences backend
	app := test.NewApp()
	return NewSubstrate(app.Preferences())
}

func TestSubstrate_SetAndGet(t *testing.T) {
	s := newTestSubstrate()
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "favorites", `["dream-1"]`))

	value, ok, err := s.GetItem(ctx, "favorites")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["dream-1"]`, value)
}

func TestSubstrate_GetMissing(t *testing.T) {
	s := newTestSubstrate()

	value, ok, err := s.GetItem(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestSubstrate_Remove(t *testing.T) {
	s := newTestSubstrate()
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "history", "[]"))
	require.NoError(t, s.RemoveItem(ctx, "history"))

	_, ok, err := s.GetItem(ctx, "history")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing again is a no-op
	assert.NoError(t, s.RemoveItem(ctx, "history"))
}

func TestSubstrate_ClearLeavesForeignKeys(t *testing.T) {
	app := test.NewApp()
	prefs := app.Preferences()
	prefs.SetString("other.app.setting", "keep me")

	s := NewSubstrate(prefs)
	ctx := context.Background()

	require.NoError(t, s.SetItem(ctx, "a", "1"))
	require.NoError(t, s.SetItem(ctx, "b", "2"))
	require.NoError(t, s.Clear(ctx))

	_, ok, _ := s.GetItem(ctx, "a")
	assert.False(t, ok)
	_, ok, _ = s.GetItem(ctx, "b")
	assert.False(t, ok)

	assert.Equal(t, "keep me", prefs.String("other.app.setting"))
}

func TestSubstrate_Closed(t *testing.T) {
	s := newTestSubstrate()
	ctx := context.Background()
	require.NoError(t, s.Close())

	_, _, err := s.GetItem(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrSubstrateClosed)
	assert.ErrorIs(t, s.SetItem(ctx, "a", "1"), domain.ErrSubstrateClosed)
}

func TestSubstrate_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) ports.Substrate {
		return newTestSubstrate()
	})
}
