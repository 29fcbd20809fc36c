// Package storagetest holds the behaviour every ports.Substrate must share.
// Each backend's tests run it against a fresh instance.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// Factory returns an empty substrate. Cleanup is the factory's job (t.Cleanup).
type Factory func(t *testing.T) ports.Substrate

// Run exercises the substrate contract.
func Run(t *testing.T, newSubstrate Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newSubstrate(t)

		value, ok, err := s.GetItem(context.Background(), "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, value)
	})

	t.Run("SetThenGet", func(t *testing.T) {
		s := newSubstrate(t)
		ctx := context.Background()

		require.NoError(t, s.SetItem(ctx, "dreamstream:favorites", `["dream-1","dream-2"]`))

		value, ok, err := s.GetItem(ctx, "dreamstream:favorites")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `["dream-1","dream-2"]`, value)
	})

	t.Run("Overwrite", func(t *testing.T) {
		s := newSubstrate(t)
		ctx := context.Background()

		require.NoError(t, s.SetItem(ctx, "k", "1"))
		require.NoError(t, s.SetItem(ctx, "k", "2"))

		value, ok, err := s.GetItem(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2", value)
	})

	t.Run("RemoveIsIdempotent", func(t *testing.T) {
		s := newSubstrate(t)
		ctx := context.Background()

		require.NoError(t, s.SetItem(ctx, "k", "1"))
		require.NoError(t, s.RemoveItem(ctx, "k"))
		require.NoError(t, s.RemoveItem(ctx, "k"))

		_, ok, err := s.GetItem(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("RemoveOnlyTouchesKey", func(t *testing.T) {
		s := newSubstrate(t)
		ctx := context.Background()

		require.NoError(t, s.SetItem(ctx, "a", "1"))
		require.NoError(t, s.SetItem(ctx, "b", "2"))
		require.NoError(t, s.RemoveItem(ctx, "a"))

		value, ok, err := s.GetItem(ctx, "b")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2", value)
	})

	t.Run("Clear", func(t *testing.T) {
		s := newSubstrate(t)
		ctx := context.Background()

		for i := range 5 {
			require.NoError(t, s.SetItem(ctx, fmt.Sprintf("k%d", i), "v"))
		}
		require.NoError(t, s.Clear(ctx))

		for i := range 5 {
			_, ok, err := s.GetItem(ctx, fmt.Sprintf("k%d", i))
			require.NoError(t, err)
			assert.False(t, ok)
		}

		// Usable after clear
		require.NoError(t, s.SetItem(ctx, "k0", "again"))
		value, ok, err := s.GetItem(ctx, "k0")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "again", value)
	})

	t.Run("UnicodeAndSeparators", func(t *testing.T) {
		s := newSubstrate(t)
		ctx := context.Background()

		value := `{"dream:odd:id:full":{"audioUri":"audio/dreams/ünïcode.opus"}}`
		require.NoError(t, s.SetItem(ctx, "dreamstream:tts_cache", value))

		got, ok, err := s.GetItem(ctx, "dreamstream:tts_cache")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, value, got)
	})

	t.Run("ConcurrentWriters", func(t *testing.T) {
		s := newSubstrate(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key := fmt.Sprintf("k%d", i)
				assert.NoError(t, s.SetItem(ctx, key, key))
			}(i)
		}
		wg.Wait()

		for i := range 10 {
			key := fmt.Sprintf("k%d", i)
			value, ok, err := s.GetItem(ctx, key)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, key, value)
		}
	})
}
