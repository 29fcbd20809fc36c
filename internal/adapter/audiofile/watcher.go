package audiofile

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettleDelay is how long a file must stay unchanged before it is reported.
const DefaultSettleDelay = 500 * time.Millisecond

// Watcher reports audio files that appear or change under a folder, once
// their size and modification time stop changing. The renderer writes files
// in several passes, so reporting on the first event would index a partial file.
type Watcher struct {
	logger *slog.Logger
	settle time.Duration
	fsw    *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*pendingFile
	closed  bool

	files     chan string
	closeOnce sync.Once
}

type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// NewWatcher creates a watcher. settle <= 0 uses DefaultSettleDelay.
func NewWatcher(logger *slog.Logger, settle time.Duration) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		logger:  logger,
		settle:  settle,
		fsw:     fsw,
		pending: make(map[string]*pendingFile),
		files:   make(chan string, 64),
	}, nil
}

// Files returns settled file paths. It is closed when Run returns.
func (w *Watcher) Files() <-chan string {
	return w.files
}

// Add watches root and every folder below it.
func (w *Watcher) Add(root string) error {
	return filepath.WalkDir(filepath.Clean(root), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if isHidden(path) && path != filepath.Clean(root) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.logger.Debug("added watch", slog.String("path", path))
		return nil
	})
}

// Run processes filesystem events until ctx is done, then releases every resource.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	path := event.Name
	if isHidden(path) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.Add(path); err != nil {
				w.logger.Warn("failed to watch new folder", slog.String("path", path), slog.Any("error", err))
			}
			return
		}
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.cancel(path)
		return
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		w.startSettling(path)
	}
}

func (w *Watcher) startSettling(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
	}
	p := &pendingFile{size: info.Size(), modTime: info.ModTime()}
	p.timer = time.AfterFunc(w.settle, func() { w.checkSettled(path) })
	w.pending[path] = p
}

func (w *Watcher) checkSettled(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[path]
	if !ok || w.closed {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return
	}
	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		p.size, p.modTime = info.Size(), info.ModTime()
		p.timer = time.AfterFunc(w.settle, func() { w.checkSettled(path) })
		return
	}

	delete(w.pending, path)
	select {
	case w.files <- path:
	default:
		w.logger.Warn("dropping settled file, consumer is behind", slog.String("path", path))
	}
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// Close stops the watcher and closes Files. Run calls it on return; call it
// directly only when Run was never started.
func (w *Watcher) Close() {
	w.closeOnce.Do(w.shutdown)
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("failed to close watcher", slog.Any("error", err))
	}
	close(w.files)
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
