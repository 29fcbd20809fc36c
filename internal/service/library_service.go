package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// LibraryService indexes audio that was rendered straight into a folder,
// without a manifest. Files must be named "<dreamId>_<mode>.<ext>".
type LibraryService struct {
	logger *slog.Logger
	cache  *AudioCacheService
	probe  ports.AudioProbe

	supportedExts []string
}

// ScanReport summarizes one ScanFolder run.
type ScanReport struct {
	Indexed int      // entries written to the cache index
	Skipped []string // audio files whose name or content could not be used
}

// NewLibraryService creates a new library service.
func NewLibraryService(logger *slog.Logger, cache *AudioCacheService, probe ports.AudioProbe) *LibraryService {
	return &LibraryService{
		logger: logger,
		cache:  cache,
		probe:  probe,
		supportedExts: []string{
			".opus", ".ogg", ".oga",
			".mp3",
			".m4a", ".aac", ".mp4",
			".flac",
			".wav",
		},
	}
}

// IsFormatSupported checks the file extension against the known audio containers.
func (s *LibraryService) IsFormatSupported(path string) bool {
	return slices.Contains(s.supportedExts, strings.ToLower(filepath.Ext(path)))
}

// SupportedFormats returns a copy of the accepted extensions.
func (s *LibraryService) SupportedFormats() []string {
	return slices.Clone(s.supportedExts)
}

// ParseAudioFileName splits "<dreamId>_<mode>.<ext>" into its parts.
// Dream ids may themselves contain underscores; the mode is the last segment.
func ParseAudioFileName(name string) (string, domain.PlaybackMode, bool) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	i := strings.LastIndex(base, "_")
	if i <= 0 {
		return "", "", false
	}
	mode := domain.PlaybackMode(base[i+1:])
	if !mode.Valid() {
		return "", "", false
	}
	return base[:i], mode, true
}

// ScanFolder walks root recursively and indexes every recognizable rendering
// in a single cache write. Unusable files are skipped; cancelling ctx stops the walk.
func (s *LibraryService) ScanFolder(ctx context.Context, root string) (ScanReport, error) {
	var report ScanReport

	files, err := s.collectAudioFiles(ctx, root)
	if err != nil {
		return report, err
	}

	entries := make([]domain.CacheEntry, 0, len(files))
	for _, path := range files {
		e, err := s.entryFor(path)
		if err != nil {
			s.logger.Warn("skipping audio file",
				slog.String("path", path),
				slog.Any("error", err))
			report.Skipped = append(report.Skipped, path)
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return report, nil
	}

	stored, err := s.index(ctx, entries)
	if err != nil {
		return report, err
	}

	report.Indexed = len(stored)
	s.logger.Info("audio folder scanned",
		slog.String("root", root),
		slog.Int("indexed", report.Indexed),
		slog.Int("skipped", len(report.Skipped)))
	return report, nil
}

// IndexFile indexes a single rendering named "<dreamId>_<mode>.<ext>".
func (s *LibraryService) IndexFile(ctx context.Context, path string) (domain.CacheEntry, error) {
	if !s.IsFormatSupported(path) {
		return domain.CacheEntry{}, domain.NewValidationError("path", path, "unsupported audio format")
	}
	e, err := s.entryFor(path)
	if err != nil {
		return domain.CacheEntry{}, err
	}
	stored, err := s.index(ctx, []domain.CacheEntry{e})
	if err != nil {
		return e, err
	}
	return stored[0], nil
}

// entryFor builds the cache entry for one file from its name and a probe.
func (s *LibraryService) entryFor(path string) (domain.CacheEntry, error) {
	id, mode, ok := ParseAudioFileName(path)
	if !ok {
		return domain.CacheEntry{}, domain.NewValidationError("path", path, `name must be "<dreamId>_<full|preview>.<ext>"`)
	}
	info, err := s.probe.Probe(path)
	if err != nil {
		return domain.CacheEntry{}, err
	}

	size := info.SizeBytes
	return domain.CacheEntry{
		DreamID:   id,
		Mode:      mode,
		AudioURI:  path,
		SizeBytes: &size,
		Format:    info.Format,
	}, nil
}

// index writes entries in one batch. Known durations are kept, since a
// probe cannot measure them.
func (s *LibraryService) index(ctx context.Context, entries []domain.CacheEntry) ([]domain.CacheEntry, error) {
	stored, evicted, err := s.cache.setMany(ctx, entries, func(old, next domain.CacheEntry) domain.CacheEntry {
		next.Duration = old.Duration
		return next
	})
	if err != nil {
		return nil, err
	}
	s.cache.publishStored(stored, evicted)
	return stored, nil
}

// collectAudioFiles recursively collects all audio files under root.
func (s *LibraryService) collectAudioFiles(ctx context.Context, root string) ([]string, error) {
	if root == "" {
		return nil, domain.ErrInvalidFilePath
	}

	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			// Skip files/folders we can't access
			return nil
		}
		if !d.IsDir() && s.IsFormatSupported(path) {
			files = append(files, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrFileNotFound
	}
	return files, err
}
