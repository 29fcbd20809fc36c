package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/storagetest"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

func newTestSubstrate(t *testing.T) ports.Substrate {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "dreamstream.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSubstrate_Contract(t *testing.T) {
	storagetest.Run(t, newTestSubstrate)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.ErrorIs(t, err, domain.ErrInvalidFilePath)
}

func TestSubstrate_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dreamstream.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SetItem(ctx, "dreamstream:favorites", `["dream-3"]`))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	value, ok, err := s.GetItem(ctx, "dreamstream:favorites")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["dream-3"]`, value)
}

func TestSubstrate_ClosedReturnsError(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "dreamstream.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.GetItem(context.Background(), "k")
	assert.Error(t, err)
}
