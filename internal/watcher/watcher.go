package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a reload.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc is called once the watched file settles after a change.
type ReloadFunc func(ctx context.Context) error

// FileWatcher watches a single file and re-runs a reload callback when it changes.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	reloadFn ReloadFunc
	debounce time.Duration
	logger   *slog.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a watcher for filePath. The containing directory is watched
// so editors that replace the file on save are still seen.
func New(filePath string, reloadFn ReloadFunc, logger *slog.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	clean := filepath.Clean(filePath)
	dir := filepath.Dir(clean)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return &FileWatcher{
		watcher:  w,
		filePath: clean,
		reloadFn: reloadFn,
		debounce: DefaultDebounce,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce changes the quiet period. Call before Start.
func (fw *FileWatcher) SetDebounce(d time.Duration) {
	fw.debounce = d
}

// Start begins watching in the background.
func (fw *FileWatcher) Start(ctx context.Context) {
	fw.wg.Add(1)
	go fw.watch(ctx)
}

// Stop stops watching and waits for the event loop to exit. It is safe to call more than once.
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		close(fw.done)
		_ = fw.watcher.Close()
	})
	fw.wg.Wait()
}

// shouldReload reports whether an event on the watched directory concerns the file contents.
func shouldReload(event fsnotify.Event, filePath string) bool {
	if filepath.Clean(event.Name) != filePath {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}

func (fw *FileWatcher) watch(ctx context.Context) {
	defer fw.wg.Done()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !shouldReload(event, fw.filePath) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(fw.debounce, func() {
				fw.reload(ctx)
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.WarnContext(ctx, "schema watcher error", "path", fw.filePath, "error", err)

		case <-ctx.Done():
			return

		case <-fw.done:
			return
		}
	}
}

func (fw *FileWatcher) reload(ctx context.Context) {
	select {
	case <-fw.done:
		return
	default:
	}

	if err := fw.reloadFn(ctx); err != nil {
		fw.logger.ErrorContext(ctx, "failed to reload schema file", "path", fw.filePath, "error", err)
		return
	}
	fw.logger.InfoContext(ctx, "reloaded schema file", "path", fw.filePath)
}
