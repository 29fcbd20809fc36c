package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/memory"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/logger"
)

func newTestAudioCacheService(maxEntries int) (*AudioCacheService, *testEnv) {
	env := newTestEnv()
	svc := NewAudioCacheService(logger.NewTestLogger(), env.store, env.bus, maxEntries)
	svc.SetClock(newFakeClock().Now)
	return svc, env
}

func audio(id string, mode domain.PlaybackMode) domain.CacheEntry {
	return domain.CacheEntry{
		DreamID:  id,
		Mode:     mode,
		AudioURI: "file:///cache/" + id + "_" + string(mode) + ".opus",
		Duration: 120,
	}
}

type stubProbe struct {
	info domain.AudioFileInfo
	err  error
}

func (p stubProbe) Probe(path string) (domain.AudioFileInfo, error) {
	if p.err != nil {
		return domain.AudioFileInfo{}, p.err
	}
	info := p.info
	info.Path = path
	return info, nil
}

func TestAudioCacheService_EmptyIndex(t *testing.T) {
	svc, _ := newTestAudioCacheService(0)
	ctx := context.Background()

	index := svc.Index(ctx)
	assert.NotNil(t, index)
	assert.Empty(t, index)

	_, ok := svc.Get(ctx, "a", domain.PlaybackModeFull)
	assert.False(t, ok)
}

func TestAudioCacheService_PreviewAndFullAreIndependent(t *testing.T) {
	svc, _ := newTestAudioCacheService(0)
	ctx := context.Background()

	_, err := svc.Set(ctx, audio("forest-walk", domain.PlaybackModePreview))
	require.NoError(t, err)

	_, ok := svc.Get(ctx, "forest-walk", domain.PlaybackModeFull)
	assert.False(t, ok, "preview entry must not satisfy a full lookup")

	full := audio("forest-walk", domain.PlaybackModeFull)
	full.Duration = 1800
	_, err = svc.Set(ctx, full)
	require.NoError(t, err)

	preview, ok := svc.Get(ctx, "forest-walk", domain.PlaybackModePreview)
	require.True(t, ok)
	assert.Equal(t, 120.0, preview.Duration)

	got, ok := svc.Get(ctx, "forest-walk", domain.PlaybackModeFull)
	require.True(t, ok)
	assert.Equal(t, 1800.0, got.Duration)
	assert.Len(t, svc.Index(ctx), 2)
}

func TestAudioCacheService_OnDiskKeyFormat(t *testing.T) {
	svc, env := newTestAudioCacheService(0)

	_, err := svc.Set(context.Background(), audio("night-sky", domain.PlaybackModeFull))
	require.NoError(t, err)

	raw, ok := env.substrate.Raw(KeyTTSCache)
	require.True(t, ok)
	assert.Contains(t, raw, `"night-sky:full":{`)
}

func TestAudioCacheService_IDContainingSeparator(t *testing.T) {
	svc, _ := newTestAudioCacheService(0)
	ctx := context.Background()

	_, err := svc.Set(ctx, audio("pack:2:lucid", domain.PlaybackModePreview))
	require.NoError(t, err)
	_, err = svc.Set(ctx, audio("pack:2:lucid", domain.PlaybackModeFull))
	require.NoError(t, err)

	got, ok := svc.Get(ctx, "pack:2:lucid", domain.PlaybackModePreview)
	require.True(t, ok)
	assert.Equal(t, "pack:2:lucid", got.DreamID)

	index := svc.Index(ctx)
	assert.Contains(t, index, domain.CacheKey{DreamID: "pack:2:lucid", Mode: domain.PlaybackModeFull})
}

func TestAudioCacheService_SetStampsCachedAt(t *testing.T) {
	svc, _ := newTestAudioCacheService(0)
	ctx := context.Background()

	e := audio("a", domain.PlaybackModeFull)
	first, err := svc.Set(ctx, e)
	require.NoError(t, err)
	second, err := svc.Set(ctx, e)
	require.NoError(t, err)

	assert.False(t, first.CachedAt.IsZero())
	assert.True(t, second.CachedAt.After(first.CachedAt))

	stored, _ := svc.Get(ctx, "a", domain.PlaybackModeFull)
	assert.True(t, stored.CachedAt.Equal(second.CachedAt))
	assert.Len(t, svc.Index(ctx), 1)
}

func TestAudioCacheService_Validation(t *testing.T) {
	svc, _ := newTestAudioCacheService(0)
	ctx := context.Background()
	var verr *domain.ValidationError

	e := audio("a", domain.PlaybackModeFull)
	e.AudioURI = ""
	_, err := svc.Set(ctx, e)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "audioUri", verr.Field)

	_, err = svc.Set(ctx, audio("a", "extended"))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "mode", verr.Field)

	_, err = svc.Set(ctx, audio("", domain.PlaybackModeFull))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "dreamId", verr.Field)
}

func TestAudioCacheService_UnboundedByDefault(t *testing.T) {
	svc, _ := newTestAudioCacheService(0)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		_, err := svc.Set(ctx, audio(strings.Repeat("x", i+1), domain.PlaybackModeFull))
		require.NoError(t, err)
	}
	assert.Len(t, svc.Index(ctx), 150)
	assert.Equal(t, 0, svc.MaxEntries())
}

func TestAudioCacheService_EvictsOldest(t *testing.T) {
	svc, env := newTestAudioCacheService(2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.Set(ctx, audio(id, domain.PlaybackModeFull))
		require.NoError(t, err)
	}

	index := svc.Index(ctx)
	assert.Len(t, index, 2)
	assert.NotContains(t, index, domain.CacheKey{DreamID: "a", Mode: domain.PlaybackModeFull})

	events := env.events.ofType(domain.EventAudioCached)
	require.Len(t, events, 3)
	assert.Equal(t,
		[]domain.CacheKey{{DreamID: "a", Mode: domain.PlaybackModeFull}},
		events[2].(domain.AudioCachedEvent).Evicted)
}

func TestAudioCacheService_RefreshProtectsFromEviction(t *testing.T) {
	svc, _ := newTestAudioCacheService(2)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "a", "c"} {
		_, err := svc.Set(ctx, audio(id, domain.PlaybackModeFull))
		require.NoError(t, err)
	}

	index := svc.Index(ctx)
	assert.Contains(t, index, domain.CacheKey{DreamID: "a", Mode: domain.PlaybackModeFull})
	assert.Contains(t, index, domain.CacheKey{DreamID: "c", Mode: domain.PlaybackModeFull})
}

func TestAudioCacheService_Remove(t *testing.T) {
	svc, env := newTestAudioCacheService(0)
	ctx := context.Background()

	_, err := svc.Set(ctx, audio("a", domain.PlaybackModeFull))
	require.NoError(t, err)
	_, err = svc.Set(ctx, audio("a", domain.PlaybackModePreview))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "a", domain.PlaybackModeFull))
	_, ok := svc.Get(ctx, "a", domain.PlaybackModeFull)
	assert.False(t, ok)
	_, ok = svc.Get(ctx, "a", domain.PlaybackModePreview)
	assert.True(t, ok)

	writes := env.substrate.Calls(memory.OpSet)
	require.NoError(t, svc.Remove(ctx, "missing", domain.PlaybackModeFull))
	assert.Equal(t, writes, env.substrate.Calls(memory.OpSet))
	assert.Len(t, env.events.ofType(domain.EventAudioCacheRemoved), 1)
}

func TestAudioCacheService_Clear(t *testing.T) {
	svc, env := newTestAudioCacheService(0)
	ctx := context.Background()

	_, err := svc.Set(ctx, audio("a", domain.PlaybackModeFull))
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx))

	assert.Empty(t, svc.Index(ctx))
	raw, _ := env.substrate.Raw(KeyTTSCache)
	assert.Equal(t, "{}", raw)
	assert.Len(t, env.events.ofType(domain.EventAudioCacheCleared), 1)
}

func TestAudioCacheService_CorruptKeyDegradesToEmpty(t *testing.T) {
	svc, env := newTestAudioCacheService(0)
	env.substrate.Put(KeyTTSCache, `{"no-separator":{"dreamId":"x"}}`)

	assert.Empty(t, svc.Index(context.Background()))
}

func TestAudioCacheService_CacheFile(t *testing.T) {
	svc, _ := newTestAudioCacheService(0)
	ctx := context.Background()
	svc.SetProbe(stubProbe{info: domain.AudioFileInfo{SizeBytes: 2048, Format: "ogg"}})

	e, err := svc.CacheFile(ctx, "a", domain.PlaybackModeFull, "/data/audio/a_full.opus", 1500)
	require.NoError(t, err)
	require.NotNil(t, e.SizeBytes)
	assert.Equal(t, int64(2048), *e.SizeBytes)
	assert.Equal(t, "ogg", e.Format)

	stored, ok := svc.Get(ctx, "a", domain.PlaybackModeFull)
	require.True(t, ok)
	assert.Equal(t, "/data/audio/a_full.opus", stored.AudioURI)
	assert.Equal(t, 1500.0, stored.Duration)
}

func TestAudioCacheService_CacheFileErrors(t *testing.T) {
	svc, env := newTestAudioCacheService(0)
	ctx := context.Background()

	_, err := svc.CacheFile(ctx, "a", domain.PlaybackModeFull, "/missing", 1)
	var serr *domain.ServiceError
	require.ErrorAs(t, err, &serr)

	svc.SetProbe(stubProbe{err: domain.ErrFileNotFound})
	_, err = svc.CacheFile(ctx, "a", domain.PlaybackModeFull, "/missing", 1)
	require.ErrorIs(t, err, domain.ErrFileNotFound)
	assert.Equal(t, 0, env.substrate.Calls(memory.OpSet))
}

func TestAudioCacheService_WriteFailure(t *testing.T) {
	svc, env := newTestAudioCacheService(0)
	ctx := context.Background()
	env.substrate.FailOn(memory.OpSet, KeyTTSCache, errors.New("disk full"))

	_, err := svc.Set(ctx, audio("a", domain.PlaybackModeFull))
	require.Error(t, err)
	assert.True(t, domain.IsStorageKind(err, domain.KindWriteFailed))
	assert.Empty(t, svc.Index(ctx))

	require.Error(t, svc.Clear(ctx))
	assert.Empty(t, env.events.ofType(domain.EventAudioCacheCleared))
}
