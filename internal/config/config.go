// Package config loads Dream Stream storage settings from a YAML file and
// DREAMSTREAM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
)

// Backend identifies the substrate the stores persist to.
type Backend string

const (
	BackendFyne   Backend = "fyne"   // Fyne app preferences; needs a host app
	BackendBolt   Backend = "bolt"   // single BoltDB file
	BackendBadger Backend = "badger" // Badger directory
	BackendSQLite Backend = "sqlite" // single SQLite file
	BackendMemory Backend = "memory" // process memory, lost on exit
)

// EnvPrefix is prepended to every environment override, e.g. DREAMSTREAM_STORAGE_BACKEND.
const EnvPrefix = "DREAMSTREAM"

// Config holds all application configuration
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	History    HistoryConfig    `mapstructure:"history"`
	AudioCache AudioCacheConfig `mapstructure:"audio_cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// StorageConfig selects and locates the substrate
type StorageConfig struct {
	Backend Backend `mapstructure:"backend" validate:"oneof=fyne bolt badger sqlite memory"`
	Path    string  `mapstructure:"path"` // file (bolt, sqlite) or directory (badger)
}

// HistoryConfig bounds the listening log
type HistoryConfig struct {
	MaxEntries int `mapstructure:"max_entries" validate:"gte=1"`
}

// AudioCacheConfig bounds the audio cache index
type AudioCacheConfig struct {
	MaxEntries int `mapstructure:"max_entries" validate:"gte=0"` // 0 = unbounded
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
	File   string `mapstructure:"file"` // empty logs to stderr
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendBolt,
		},
		History: HistoryConfig{
			MaxEntries: domain.MaxHistoryEntries,
		},
		AudioCache: AudioCacheConfig{
			MaxEntries: 0,
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// DefaultConfigDir returns the directory searched for config.yaml.
func DefaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "dreamstream")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "dreamstream")
	}
}

// DefaultDataDir returns the directory file-backed substrates live in.
func DefaultDataDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "dreamstream")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "dreamstream")
	}
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage.backend", string(cfg.Storage.Backend))
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("history.max_entries", cfg.History.MaxEntries)
	v.SetDefault("audio_cache.max_entries", cfg.AudioCache.MaxEntries)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
}

// Load reads configuration from file and environment.
// An empty file searches DefaultConfigDir and the working directory; a
// missing config file there is fine. An explicit file must exist.
func Load(file string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
	}

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DREAMSTREAM_LOG_LEVEL is the short form; DREAMSTREAM_LOGGING_LEVEL wins when both are set.
	_ = v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", EnvPrefix+"_LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.Storage.Backend = Backend(strings.ToLower(string(cfg.Storage.Backend)))
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			if fe.StructNamespace() == "Config.Storage.Backend" {
				return fmt.Errorf("%w: %q", domain.ErrUnknownBackend, fe.Value())
			}
			return domain.NewValidationError(fe.StructNamespace(), fe.Value(), "failed "+fe.Tag()+" "+fe.Param())
		}
		return err
	}
	return nil
}

// StoragePath returns the configured path, or the backend's default file
// or directory under DefaultDataDir.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	switch c.Storage.Backend {
	case BackendBolt:
		return filepath.Join(DefaultDataDir(), "dreamstream.db")
	case BackendBadger:
		return filepath.Join(DefaultDataDir(), "badger")
	case BackendSQLite:
		return filepath.Join(DefaultDataDir(), "dreamstream.sqlite")
	default:
		return ""
	}
}
