package ports

import "github.com/tejashwikalptaru/dreamstream/internal/domain"

// AudioProbe inspects an audio file on local storage.
type AudioProbe interface {
	// Probe returns size and container format of the file at path.
	// Returns domain.ErrFileNotFound if the file does not exist.
	Probe(path string) (domain.AudioFileInfo, error)
}
