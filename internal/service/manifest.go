package service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
)

// PreviewSeconds is the length the generator cuts previews to.
const PreviewSeconds = 120.0

// Manifest is the manifest.json written next to generated dream audio.
type Manifest struct {
	GeneratedAt          string          `json:"generated_at"`
	Model                string          `json:"model"`
	TotalDreams          int             `json:"total_dreams"`
	TotalDurationSeconds float64         `json:"total_duration_seconds"`
	TotalSizeBytes       int64           `json:"total_size_bytes"`
	Dreams               []ManifestDream `json:"dreams"`
}

// ManifestDream is one rendered dream.
type ManifestDream struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Music            string  `json:"music"`
	FullAudio        string  `json:"full_audio"`
	PreviewAudio     string  `json:"preview_audio"`
	DurationSeconds  float64 `json:"duration_seconds"`
	FullSizeBytes    int64   `json:"full_size_bytes"`
	PreviewSizeBytes int64   `json:"preview_size_bytes"`
}

// Entries returns the cache entries the dream contributes: one per rendering
// with a non-empty audio path.
func (d ManifestDream) Entries() []domain.CacheEntry {
	var out []domain.CacheEntry
	if d.FullAudio != "" {
		out = append(out, manifestEntry(d.ID, domain.PlaybackModeFull, d.FullAudio, d.DurationSeconds, d.FullSizeBytes))
	}
	if d.PreviewAudio != "" {
		out = append(out, manifestEntry(d.ID, domain.PlaybackModePreview, d.PreviewAudio, min(d.DurationSeconds, PreviewSeconds), d.PreviewSizeBytes))
	}
	return out
}

func manifestEntry(id string, mode domain.PlaybackMode, uri string, duration float64, size int64) domain.CacheEntry {
	e := domain.CacheEntry{
		DreamID:  id,
		Mode:     mode,
		AudioURI: uri,
		Duration: duration,
		Format:   strings.TrimPrefix(strings.ToLower(path.Ext(uri)), "."),
	}
	if size > 0 {
		e.SizeBytes = &size
	}
	return e
}

// ImportManifest upserts every rendering listed in the manifest read from r
// and returns how many entries were stored. Dreams that fail validation are
// skipped and logged. All entries land in a single write.
func (s *AudioCacheService) ImportManifest(ctx context.Context, r io.Reader) (int, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return 0, domain.NewServiceError("AudioCacheService", "ImportManifest", "failed to decode manifest", err)
	}

	var entries []domain.CacheEntry
	for _, d := range m.Dreams {
		for _, e := range d.Entries() {
			if err := validateRecord(e); err != nil {
				s.logger.Warn("skipping manifest entry",
					slog.String("dream_id", d.ID),
					slog.String("mode", string(e.Mode)),
					slog.Any("error", err))
				continue
			}
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return 0, nil
	}

	stored, evicted, err := s.setMany(ctx, entries, nil)
	if err != nil {
		return 0, err
	}

	s.logger.Info("audio manifest imported",
		slog.Int("dreams", len(m.Dreams)),
		slog.Int("entries", len(entries)))
	s.publishStored(stored, evicted)
	return len(stored), nil
}
