// Package domain contains core business models and logic with no external dependencies.
// This package defines the records the Dream Stream app keeps on the device.
package domain

import (
	"strings"
	"time"
)

// PlaybackMode distinguishes the short preview rendering of a dream script
// from its full-length rendering.
type PlaybackMode string

const (
	PlaybackModePreview PlaybackMode = "preview"
	PlaybackModeFull    PlaybackMode = "full"
)

// Valid reports whether the mode is one of the known renderings.
func (m PlaybackMode) Valid() bool {
	return m == PlaybackModePreview || m == PlaybackModeFull
}

// MusicStyle is the background music bed played under the narration.
type MusicStyle string

const (
	MusicStyleAmbient  MusicStyle = "ambient"
	MusicStyleNature   MusicStyle = "nature"
	MusicStyleBinaural MusicStyle = "binaural"
	MusicStyleCosmic   MusicStyle = "cosmic"
	MusicStyleSilence  MusicStyle = "silence"
)

// Theme is the UI color scheme.
type Theme string

const (
	ThemeDark   Theme = "dark"
	ThemeLight  Theme = "light"
	ThemeSystem Theme = "system"
)

// Preferences is the complete user settings record.
// A read from the preferences store always yields every field.
type Preferences struct {
	DefaultPlaybackMode PlaybackMode `json:"defaultPlaybackMode" validate:"oneof=preview full"`
	DefaultMusicStyle   MusicStyle   `json:"defaultMusicStyle" validate:"oneof=ambient nature binaural cosmic silence"`
	MusicVolume         float64      `json:"musicVolume" validate:"gte=0,lte=1"`
	VoiceVolume         float64      `json:"voiceVolume" validate:"gte=0,lte=1"`
	AutoPlayNext        bool         `json:"autoPlayNext"`
	MusicEnabled        bool         `json:"musicEnabled"`
	PreferredVoiceID    *string      `json:"preferredVoiceId"`
	VoiceSpeed          float64      `json:"voiceSpeed" validate:"gte=0.5,lte=2"`
	Theme               Theme        `json:"theme" validate:"oneof=dark light system"`
}

// DefaultPreferences returns the record every read is merged onto.
func DefaultPreferences() Preferences {
	return Preferences{
		DefaultPlaybackMode: PlaybackModePreview,
		DefaultMusicStyle:   MusicStyleAmbient,
		MusicVolume:         0.3,
		VoiceVolume:         0.8,
		AutoPlayNext:        false,
		MusicEnabled:        true,
		PreferredVoiceID:    nil,
		VoiceSpeed:          1.0,
		Theme:               ThemeDark,
	}
}

// PreferencesPatch is a partial preferences update. Nil fields are left unchanged.
// It doubles as the on-disk shape, where every field is optional.
type PreferencesPatch struct {
	DefaultPlaybackMode *PlaybackMode `json:"defaultPlaybackMode,omitempty"`
	DefaultMusicStyle   *MusicStyle   `json:"defaultMusicStyle,omitempty"`
	MusicVolume         *float64      `json:"musicVolume,omitempty"`
	VoiceVolume         *float64      `json:"voiceVolume,omitempty"`
	AutoPlayNext        *bool         `json:"autoPlayNext,omitempty"`
	MusicEnabled        *bool         `json:"musicEnabled,omitempty"`
	PreferredVoiceID    *string       `json:"preferredVoiceId,omitempty"`
	VoiceSpeed          *float64      `json:"voiceSpeed,omitempty"`
	Theme               *Theme        `json:"theme,omitempty"`

	// ClearPreferredVoice resets PreferredVoiceID to null. Not persisted.
	ClearPreferredVoice bool `json:"-"`
}

// Apply returns p with every non-nil field of the patch copied over it.
func (patch PreferencesPatch) Apply(p Preferences) Preferences {
	if patch.DefaultPlaybackMode != nil {
		p.DefaultPlaybackMode = *patch.DefaultPlaybackMode
	}
	if patch.DefaultMusicStyle != nil {
		p.DefaultMusicStyle = *patch.DefaultMusicStyle
	}
	if patch.MusicVolume != nil {
		p.MusicVolume = *patch.MusicVolume
	}
	if patch.VoiceVolume != nil {
		p.VoiceVolume = *patch.VoiceVolume
	}
	if patch.AutoPlayNext != nil {
		p.AutoPlayNext = *patch.AutoPlayNext
	}
	if patch.MusicEnabled != nil {
		p.MusicEnabled = *patch.MusicEnabled
	}
	if patch.PreferredVoiceID != nil {
		voice := *patch.PreferredVoiceID
		p.PreferredVoiceID = &voice
	}
	if patch.ClearPreferredVoice {
		p.PreferredVoiceID = nil
	}
	if patch.VoiceSpeed != nil {
		p.VoiceSpeed = *patch.VoiceSpeed
	}
	if patch.Theme != nil {
		p.Theme = *patch.Theme
	}
	return p
}

// PatchFrom returns a patch that sets every field of p.
func PatchFrom(p Preferences) PreferencesPatch {
	patch := PreferencesPatch{
		DefaultPlaybackMode: &p.DefaultPlaybackMode,
		DefaultMusicStyle:   &p.DefaultMusicStyle,
		MusicVolume:         &p.MusicVolume,
		VoiceVolume:         &p.VoiceVolume,
		AutoPlayNext:        &p.AutoPlayNext,
		MusicEnabled:        &p.MusicEnabled,
		VoiceSpeed:          &p.VoiceSpeed,
		Theme:               &p.Theme,
	}
	if p.PreferredVoiceID != nil {
		voice := *p.PreferredVoiceID
		patch.PreferredVoiceID = &voice
	}
	return patch
}

// PlaybackProgress is the last known playback state of one dream.
type PlaybackProgress struct {
	DreamID   string       `json:"dreamId" validate:"required"`
	Position  float64      `json:"position" validate:"gte=0"`
	Completed bool         `json:"completed"`
	Mode      PlaybackMode `json:"mode" validate:"oneof=preview full"`

	// UpdatedAt is assigned by the store on every write.
	UpdatedAt time.Time `json:"updatedAt"`
}

// MaxHistoryEntries bounds the history log.
const MaxHistoryEntries = 100

// HistoryEntry records one finished listening session. Immutable once written.
type HistoryEntry struct {
	DreamID          string       `json:"dreamId" validate:"required"`
	PlayedAt         time.Time    `json:"playedAt"`
	Mode             PlaybackMode `json:"mode" validate:"oneof=preview full"`
	DurationListened float64      `json:"durationListened" validate:"gte=0"`
	Completed        bool         `json:"completed"`
}

// cacheKeySeparator joins the dream id and mode in the encoded cache key.
const cacheKeySeparator = ":"

// CacheKey addresses one cached audio asset.
type CacheKey struct {
	DreamID string
	Mode    PlaybackMode
}

// String returns the "id:mode" form used on disk.
func (k CacheKey) String() string {
	return k.DreamID + cacheKeySeparator + string(k.Mode)
}

// MarshalText lets CacheKey be used as a JSON object key.
func (k CacheKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText splits on the last separator; modes never contain one,
// so dream ids that do still decode unchanged.
func (k *CacheKey) UnmarshalText(text []byte) error {
	s := string(text)
	i := strings.LastIndex(s, cacheKeySeparator)
	if i < 0 {
		return NewValidationError("cacheKey", s, "missing mode separator")
	}
	mode := PlaybackMode(s[i+1:])
	if !mode.Valid() {
		return NewValidationError("cacheKey", s, "unknown playback mode")
	}
	k.DreamID = s[:i]
	k.Mode = mode
	return nil
}

// CacheEntry describes a generated or downloaded audio asset.
type CacheEntry struct {
	DreamID  string       `json:"dreamId" validate:"required"`
	Mode     PlaybackMode `json:"mode" validate:"oneof=preview full"`
	AudioURI string       `json:"audioUri" validate:"required"`
	Duration float64      `json:"duration" validate:"gte=0"`

	// CachedAt is assigned by the store on every write.
	CachedAt time.Time `json:"cachedAt"`

	SizeBytes *int64 `json:"sizeBytes,omitempty"`
	Format    string `json:"format,omitempty"`
}

// Key returns the cache key the entry is stored under.
func (e CacheEntry) Key() CacheKey {
	return CacheKey{DreamID: e.DreamID, Mode: e.Mode}
}

// AudioFileInfo is what a probe learns about a local audio asset.
type AudioFileInfo struct {
	Path      string
	SizeBytes int64
	Format    string // container, e.g. "ogg", "mp3", or the file extension
}
