package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig points the CLI at a fresh bolt file and silences logging.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "storage:\n  backend: bolt\n  path: " + filepath.Join(dir, "dreams.db") +
		"\nlogging:\n  level: error\n  file: " + filepath.Join(dir, "dreamstore.log") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestRun_Usage(t *testing.T) {
	_, err := runCLI(t)
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "-config", writeTestConfig(t), "explode")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_Version(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "DreamStream")
}

func TestRun_ShowEmptyStore(t *testing.T) {
	out, err := runCLI(t, "-config", writeTestConfig(t), "show")
	require.NoError(t, err)

	var snap map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.JSONEq(t, `[]`, string(snap["favorites"]))
	assert.JSONEq(t, `{}`, string(snap["audioCache"]))
	assert.Contains(t, string(snap["preferences"]), `"theme":"dark"`)
}

func TestRun_ImportManifestThenShow(t *testing.T) {
	cfg := writeTestConfig(t)
	manifest := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(manifest, []byte(`{"dreams":[{
		"id":"forest-walk",
		"full_audio":"audio/dreams/forest-walk_full.opus",
		"preview_audio":"audio/dreams/forest-walk_preview.opus",
		"duration_seconds":600}]}`), 0o644))

	out, err := runCLI(t, "-config", cfg, "import-manifest", manifest)
	require.NoError(t, err)
	assert.Equal(t, "indexed 2 entries\n", out)

	out, err = runCLI(t, "-config", cfg, "show")
	require.NoError(t, err)
	assert.Contains(t, out, `"forest-walk:full"`)
	assert.Contains(t, out, `"forest-walk:preview"`)

	_, err = runCLI(t, "-config", cfg, "clear-cache")
	require.NoError(t, err)
	out, err = runCLI(t, "-config", cfg, "show")
	require.NoError(t, err)
	assert.NotContains(t, out, "forest-walk")
}

func TestRun_CacheFile(t *testing.T) {
	cfg := writeTestConfig(t)
	audio := filepath.Join(t.TempDir(), "night-sky_full.opus")
	require.NoError(t, os.WriteFile(audio, []byte("OggS\x00\x02payload"), 0o644))

	out, err := runCLI(t, "-config", cfg, "cache-file", "night-sky", "full", audio, "1200")
	require.NoError(t, err)
	assert.Contains(t, out, `"format": "ogg"`)

	_, err = runCLI(t, "-config", cfg, "cache-file", "night-sky", "full", audio, "long")
	assert.Error(t, err)
}

func TestRun_MissingConfig(t *testing.T) {
	_, err := runCLI(t, "-config", filepath.Join(t.TempDir(), "nope.yaml"), "show")
	assert.Error(t, err)
}
