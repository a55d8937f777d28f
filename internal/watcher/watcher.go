// Package watcher reindexes DSL files that change on disk while they are
// not open in the editor.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/apidl/internal/logging"
)

// DefaultDebounce collapses the write bursts editors and tools produce
const DefaultDebounce = 300 * time.Millisecond

// Target is the index the watcher keeps current. *indexer.Indexer
// implements it.
type Target interface {
	ReindexFile(ctx context.Context, path string) error
	RemoveFile(path string) bool
	RemoveTree(dir string) int
	IsOpen(uri string) bool
	IgnoresDir(path string) bool
	IsSourceFile(path string) bool
}

// Options configures a Watcher
type Options struct {
	Root     string
	Debounce time.Duration
}

// Watcher maps fsnotify events onto reindex and remove calls
type Watcher struct {
	opts   Options
	target Target
	logger *slog.Logger
	fs     *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
	dirs   map[string]struct{}
	wg     sync.WaitGroup
}

// New creates a watcher. Nothing is watched until Run.
func New(opts Options, target Target, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		opts:   opts,
		target: target,
		logger: logger,
		fs:     fw,
		timers: make(map[string]*time.Timer),
		dirs:   make(map[string]struct{}),
	}, nil
}

// Run watches the workspace tree until ctx is done. The fsnotify watcher
// is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()

	if err := w.addTree(ctx, w.opts.Root); err != nil {
		return err
	}
	w.logger.Info("watching workspace", "root", w.opts.Root, "dirs", w.watchCount())

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	_ = w.fs.Close()
}

// addTree adds dir and every directory below it that the workspace rules
// do not ignore
func (w *Watcher) addTree(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.opts.Root && w.target.IgnoresDir(path) {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Debug("failed to watch directory", "path", path, "error", err)
			return nil
		}
		w.mu.Lock()
		w.dirs[path] = struct{}{}
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.target.IgnoresDir(path) {
				return
			}
			if err := w.addTree(ctx, path); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			w.rescanDir(path)
			return
		}
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.forgetDir(path) {
			n := w.target.RemoveTree(path)
			w.logger.Debug("directory removed", "path", path, "documents", n)
			return
		}
	}

	if !w.target.IsSourceFile(path) {
		return
	}
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.schedule(ctx, path)
	}
}

// rescanDir schedules every source file already inside a new directory,
// which may have been populated before its watch was added
func (w *Watcher) rescanDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && w.target.IgnoresDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.target.IsSourceFile(path) {
			w.schedule(context.Background(), path)
		}
		return nil
	})
}

// schedule (re)starts the debounce timer of path. When it fires the file
// is reindexed if it exists and removed otherwise.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.opts.Debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()

		w.sync(ctx, path)
	})
	w.timers[path] = t
}

func (w *Watcher) sync(ctx context.Context, path string) {
	if w.target.IsOpen(path) {
		return
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if w.target.RemoveFile(path) {
			w.logger.Debug("file removed", "path", path)
		}
		return
	}
	if err := w.target.ReindexFile(ctx, path); err != nil && ctx.Err() == nil {
		w.logger.Warn("failed to reindex changed file", "path", path, "error", err)
	}
}

func (w *Watcher) forgetDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[path]; !ok {
		return false
	}
	for dir := range w.dirs {
		if dir == path || isWithin(dir, path) {
			delete(w.dirs, dir)
		}
	}
	return true
}

func (w *Watcher) watchCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

// Watched returns the watched directories
func (w *Watcher) Watched() []string {
	return w.fs.WatchList()
}

func isWithin(path, dir string) bool {
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
