// Package app provides application-level orchestration and dependency injection.
// It wires configuration, logging, the storage substrate, the event bus and the stores.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"fyne.io/fyne/v2"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/audiofile"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/badger"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/bolt"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/fyneprefs"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/memory"
	"github.com/tejashwikalptaru/dreamstream/internal/adapter/storage/sqlite"
	"github.com/tejashwikalptaru/dreamstream/internal/config"
	"github.com/tejashwikalptaru/dreamstream/internal/domain"
	"github.com/tejashwikalptaru/dreamstream/internal/kv"
	"github.com/tejashwikalptaru/dreamstream/internal/logger"
	"github.com/tejashwikalptaru/dreamstream/internal/ports"
	"github.com/tejashwikalptaru/dreamstream/internal/service"
)

// Application is the root structure that holds all dependencies.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Owning the substrate and closing it on Shutdown
type Application struct {
	// Core dependencies
	config *config.Config
	logger *slog.Logger
	logOut io.Closer

	// Infrastructure
	substrate ports.Substrate
	store     *kv.Store
	eventBus  *eventbus.SyncEventBus

	// Services
	preferenceService *service.PreferenceService
	favoritesService  *service.FavoritesService
	progressService   *service.ProgressService
	historyService    *service.HistoryService
	audioCacheService *service.AudioCacheService
	libraryService    *service.LibraryService

	shutdown bool
}

// Option customizes NewApplication.
type Option func(*options)

type options struct {
	prefs     fyne.Preferences
	substrate ports.Substrate
	logWriter io.Writer
}

// WithFynePreferences supplies the host app's preferences for the fyne backend,
// typically fyne.CurrentApp().Preferences().
func WithFynePreferences(prefs fyne.Preferences) Option {
	return func(o *options) { o.prefs = prefs }
}

// WithSubstrate bypasses backend selection. The application still closes it on Shutdown.
func WithSubstrate(s ports.Substrate) Option {
	return func(o *options) { o.substrate = s }
}

// WithLogWriter sends logs to w instead of stderr or the configured file.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logWriter = w }
}

// NewApplication creates a new application with all dependencies wired.
func NewApplication(cfg *config.Config, opts ...Option) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &Application{config: cfg}

	// Step 1: Create logger
	w := o.logWriter
	if w == nil && cfg.Logging.File != "" {
		f, err := openLogFile(cfg.Logging.File)
		if err != nil {
			return nil, err
		}
		app.logOut = f
		w = f
	}
	app.logger = logger.NewLogger(logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Writer: w,
	})
	app.logger.Info("initializing storage",
		slog.String("version", GetVersionInfo().FullString()),
		slog.String("backend", string(cfg.Storage.Backend)))

	// Step 2: Open the substrate
	substrate := o.substrate
	if substrate == nil {
		var err error
		substrate, err = openSubstrate(cfg, o.prefs)
		if err != nil {
			app.closeLog()
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
		}
	}
	app.substrate = substrate
	app.store = kv.New(substrate, app.logger.With(slog.String("component", "kv")))

	// Step 3: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus(app.logger.With(slog.String("component", "eventbus")))
	app.eventBus.SubscribeAll(app.logEvent)

	// Step 4: Create services (with dependency injection)
	app.preferenceService = service.NewPreferenceService(
		app.logger.With(slog.String("service", "preferences")),
		app.store,
		app.eventBus,
	)
	app.favoritesService = service.NewFavoritesService(
		app.logger.With(slog.String("service", "favorites")),
		app.store,
		app.eventBus,
	)
	app.progressService = service.NewProgressService(
		app.logger.With(slog.String("service", "progress")),
		app.store,
		app.eventBus,
	)
	app.historyService = service.NewHistoryService(
		app.logger.With(slog.String("service", "history")),
		app.store,
		app.eventBus,
		cfg.History.MaxEntries,
	)
	app.audioCacheService = service.NewAudioCacheService(
		app.logger.With(slog.String("service", "audio_cache")),
		app.store,
		app.eventBus,
		cfg.AudioCache.MaxEntries,
	)

	probe := audiofile.NewProber()
	app.audioCacheService.SetProbe(probe)
	app.libraryService = service.NewLibraryService(
		app.logger.With(slog.String("service", "library")),
		app.audioCacheService,
		probe,
	)

	return app, nil
}

// openSubstrate picks the substrate for the configured backend.
func openSubstrate(cfg *config.Config, prefs fyne.Preferences) (ports.Substrate, error) {
	path := cfg.StoragePath()

	switch cfg.Storage.Backend {
	case config.BackendFyne:
		if prefs == nil {
			return nil, fmt.Errorf("fyne backend needs the host app preferences")
		}
		return fyneprefs.NewSubstrate(prefs), nil
	case config.BackendBolt:
		return bolt.Open(path)
	case config.BackendBadger:
		return badger.Open(path)
	case config.BackendSQLite:
		return sqlite.Open(path)
	case config.BackendMemory:
		return memory.NewSubstrate(), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, cfg.Storage.Backend)
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func (a *Application) logEvent(event domain.Event) {
	a.logger.Debug("store changed", slog.String("event_type", string(event.Type())))
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// Config returns the configuration the application was built with.
func (a *Application) Config() *config.Config { return a.config }

// EventBus returns the bus stores publish their changes on.
func (a *Application) EventBus() ports.EventBus { return a.eventBus }

// Preferences returns the preferences store.
func (a *Application) Preferences() *service.PreferenceService { return a.preferenceService }

// Favorites returns the favorites store.
func (a *Application) Favorites() *service.FavoritesService { return a.favoritesService }

// Progress returns the playback progress store.
func (a *Application) Progress() *service.ProgressService { return a.progressService }

// History returns the listening history store.
func (a *Application) History() *service.HistoryService { return a.historyService }

// AudioCache returns the audio cache index.
func (a *Application) AudioCache() *service.AudioCacheService { return a.audioCacheService }

// Library returns the audio folder scanner.
func (a *Application) Library() *service.LibraryService { return a.libraryService }

// WatchAudio indexes renderings as they land under root until ctx is done.
// It scans root once first so files written while the app was closed are not missed.
func (a *Application) WatchAudio(ctx context.Context, root string) error {
	w, err := audiofile.NewWatcher(a.logger.With(slog.String("component", "watcher")), 0)
	if err != nil {
		return err
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return err
	}

	if _, err := a.libraryService.ScanFolder(ctx, root); err != nil {
		a.logger.Warn("initial scan failed", slog.String("root", root), slog.Any("error", err))
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for path := range w.Files() {
		if !a.libraryService.IsFormatSupported(path) {
			continue
		}
		if _, err := a.libraryService.IndexFile(ctx, path); err != nil {
			a.logger.Warn("failed to index audio file", slog.String("path", path), slog.Any("error", err))
		}
	}
	return <-done
}

// Snapshot is everything the stores hold, read in one pass.
type Snapshot struct {
	Preferences domain.Preferences                    `json:"preferences"`
	Favorites   []string                              `json:"favorites"`
	Progress    map[string]domain.PlaybackProgress    `json:"playbackProgress"`
	History     []domain.HistoryEntry                 `json:"history"`
	AudioCache  map[domain.CacheKey]domain.CacheEntry `json:"audioCache"`
}

// Snapshot reads every store. Like the stores themselves it never fails.
func (a *Application) Snapshot(ctx context.Context) Snapshot {
	return Snapshot{
		Preferences: a.preferenceService.Get(ctx),
		Favorites:   a.favoritesService.List(ctx),
		Progress:    a.progressService.All(ctx),
		History:     a.historyService.List(ctx),
		AudioCache:  a.audioCacheService.Index(ctx),
	}
}

// Reset wipes the whole substrate. Every store reads as empty or default afterwards.
func (a *Application) Reset(ctx context.Context) error {
	if err := a.store.Clear(ctx); err != nil {
		return err
	}
	a.logger.Info("all stored data cleared")
	a.eventBus.Publish(domain.NewStorageResetEvent())
	return nil
}

// Shutdown closes the event bus and the substrate. Calling it twice is a no-op.
func (a *Application) Shutdown() error {
	if a.shutdown {
		return nil
	}
	a.shutdown = true
	a.logger.Info("shutting down application")

	if err := a.preferenceService.Shutdown(); err != nil {
		a.logger.Warn("failed to shutdown preference service", slog.Any("error", err))
	}
	if err := a.eventBus.Close(); err != nil {
		a.logger.Warn("failed to close event bus", slog.Any("error", err))
	}

	var err error
	if cerr := a.substrate.Close(); cerr != nil {
		a.logger.Warn("failed to close storage", slog.Any("error", cerr))
		err = fmt.Errorf("failed to close storage: %w", cerr)
	}

	a.logger.Info("application shutdown complete")
	a.closeLog()
	return err
}

func (a *Application) closeLog() {
	if a.logOut != nil {
		_ = a.logOut.Close()
		a.logOut = nil
	}
}
