package audiofile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestProbe_OggContainer(t *testing.T) {
	// Ogg page header magic followed by padding
	data := append([]byte("OggS"), make([]byte, 60)...)
	path := writeFile(t, "dream-1_full.opus", data)

	info, err := NewProber().Probe(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.SizeBytes)
	assert.Equal(t, "ogg", info.Format)
	assert.Equal(t, path, info.Path)
}

func TestProbe_UnknownFallsBackToExtension(t *testing.T) {
	path := writeFile(t, "dream-2_preview.opus", []byte("not really audio at all, just text"))

	info, err := NewProber().Probe(path)
	require.NoError(t, err)
	assert.Equal(t, "opus", info.Format)
	assert.Equal(t, int64(34), info.SizeBytes)
}

func TestProbe_Missing(t *testing.T) {
	_, err := NewProber().Probe(filepath.Join(t.TempDir(), "nope.opus"))
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestProbe_InvalidPath(t *testing.T) {
	_, err := NewProber().Probe("")
	assert.ErrorIs(t, err, domain.ErrInvalidFilePath)

	_, err = NewProber().Probe(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrInvalidFilePath)
}
