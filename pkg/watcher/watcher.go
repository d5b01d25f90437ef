// Package watcher ingests files dropped into an inbox folder.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"saral/internal/task"
	"saral/internal/util"
)

// DefaultSettle is how long a file must stay quiet before it is handled.
const DefaultSettle = 500 * time.Millisecond

// HandleFunc receives the path of a settled inbox file.
type HandleFunc func(ctx context.Context, path string) error

// Watcher reports new or rewritten files in one directory.
type Watcher struct {
	dir         string
	allowedExts []string
	maxSize     int64
	settle      time.Duration
	handle      HandleFunc

	mu      sync.Mutex
	pending map[string]*task.Task[struct{}]
}

// Options tunes a Watcher. Zero values use defaults.
type Options struct {
	AllowedExts []string
	MaxSize     int64
	Settle      time.Duration
}

// New validates dir and returns a Watcher that calls handle for each file.
func New(dir string, handle HandleFunc, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("inbox dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("inbox dir %s is not a directory", dir)
	}
	if handle == nil {
		return nil, errors.New("watcher handler required")
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	exts := make([]string, 0, len(opts.AllowedExts))
	for _, ext := range opts.AllowedExts {
		exts = append(exts, strings.ToLower(ext))
	}
	return &Watcher{
		dir:         dir,
		allowedExts: exts,
		maxSize:     opts.MaxSize,
		settle:      settle,
		handle:      handle,
		pending:     make(map[string]*task.Task[struct{}]),
	}, nil
}

// Run watches until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger := util.LoggerFromContext(ctx).With("inbox", w.dir)
	logger.Info("inbox watcher started")
	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !w.shouldProcess(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "err", err)
		}
	}
}

// schedule (re)starts the settle timer for path so a file written in
// several bursts is handled once.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.pending[path]; ok {
		prev.Cancel()
	}
	var t *task.Task[struct{}]
	t = task.After(ctx, w.settle, func(ctx context.Context) (struct{}, error) {
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if err := w.handle(ctx, path); err != nil {
			util.LoggerFromContext(ctx).Warn("inbox file failed", "path", path, "err", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	w.pending[path] = t
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Cancel()
		delete(w.pending, path)
	}
}

func (w *Watcher) shouldProcess(path string) bool {
	if len(w.allowedExts) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		allowed := false
		for _, a := range w.allowedExts {
			if ext == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return w.maxSize <= 0 || info.Size() <= w.maxSize
}
