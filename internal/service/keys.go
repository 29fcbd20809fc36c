package service

// Storage keys. Each store is the sole reader and writer of its key.
const (
	KeyPreferences      = "dreamstream:preferences"
	KeyFavorites        = "dreamstream:favorites"
	KeyPlaybackProgress = "dreamstream:playback_progress"
	KeyDreamHistory     = "dreamstream:dream_history"
	KeyTTSCache         = "dreamstream:tts_cache"
)
