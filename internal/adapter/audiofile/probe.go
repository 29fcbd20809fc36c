// Package audiofile inspects locally cached audio assets.
package audiofile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
)

// Prober identifies audio files on disk using dhowden/tag.
type Prober struct{}

// NewProber creates a new Prober.
func NewProber() *Prober {
	return &Prober{}
}

// Probe stats path and sniffs its container format.
// Files the tag library cannot identify fall back to their extension.
func (p *Prober) Probe(path string) (domain.AudioFileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return domain.AudioFileInfo{}, domain.ErrInvalidFilePath
	}

	stat, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.AudioFileInfo{}, domain.ErrFileNotFound
	}
	if err != nil {
		return domain.AudioFileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if stat.IsDir() {
		return domain.AudioFileInfo{}, domain.ErrInvalidFilePath
	}

	info := domain.AudioFileInfo{
		Path:      path,
		SizeBytes: stat.Size(),
		Format:    extensionFormat(path),
	}

	file, err := os.Open(path)
	if err != nil {
		// Size is still useful without the format sniff
		return info, nil
	}
	defer file.Close()

	_, fileType, err := tag.Identify(file)
	if err == nil && fileType != tag.UnknownFileType {
		info.Format = strings.ToLower(string(fileType))
	}

	return info, nil
}

func extensionFormat(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// Verify interface implementation
var _ ports.AudioProbe = (*Prober)(nil)
