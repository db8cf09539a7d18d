// Package watch uploads files as they appear or change in a local directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sdejongh/greenbox/pkg/logging"
	"github.com/sdejongh/greenbox/pkg/models"
	"github.com/sdejongh/greenbox/pkg/ratelimit"
	"github.com/sdejongh/greenbox/pkg/storage"
	"github.com/sdejongh/greenbox/pkg/transfer"
)

// DefaultDebounce is how long a path must stay quiet before it is uploaded
const DefaultDebounce = 500 * time.Millisecond

// Uploader sends one file. *manager.Manager satisfies it.
type Uploader interface {
	Upload(ctx context.Context, req storage.UploadRequest) error
}

// Config configures a Watcher
type Config struct {
	Root     string
	FolderID models.ID
	Matcher  *transfer.Matcher
	Debounce time.Duration
	Limiter  *ratelimit.Limiter
	Logger   logging.Logger

	// OnUpload is called after every upload attempt with the path relative to Root
	OnUpload func(rel string, err error)
}

// Watcher watches Root recursively
type Watcher struct {
	cfg      Config
	uploader Uploader
	local    *storage.Local
	logger   logging.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// New validates the root directory and prepares a watcher
func New(cfg Config, uploader Uploader) (*Watcher, error) {
	if uploader == nil {
		return nil, errors.New("watch: uploader is required")
	}
	local, err := storage.NewLocal(cfg.Root)
	if err != nil {
		return nil, err
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	return &Watcher{
		cfg:      cfg,
		uploader: uploader,
		local:    local,
		logger:   logging.OrNull(cfg.Logger),
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
		done:     make(chan struct{}),
	}, nil
}

// Run blocks until ctx is done. Existing files are not uploaded; only
// creations and writes observed after Run starts are.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()
	defer w.stop()

	if err := w.addTree(fsw, w.local.Root(), false); err != nil {
		return err
	}
	w.logger.Info(ctx, "watching directory", logging.Fields{"root": w.local.Root()})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error(ctx, "watcher error", err, nil)

		case full := <-w.ready:
			w.upload(ctx, full)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	rel, ok := w.relative(event.Name)
	if !ok {
		return
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) && !w.cfg.Matcher.Match(rel) {
				// files may land in the directory before it is watched
				if err := w.addTree(fsw, event.Name, true); err != nil {
					w.logger.Warn(ctx, "failed to watch new directory", logging.Fields{"path": rel, "error": err.Error()})
				}
			}
			return
		}
		if !info.Mode().IsRegular() || w.cfg.Matcher.Match(rel) {
			return
		}
		w.schedule(event.Name)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancel(event.Name)
	}
}

// addTree watches dir and its subdirectories. When scan is set, files
// already present are scheduled for upload.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string, scan bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, ok := w.relative(path)
		if !ok {
			return nil
		}
		if rel != "." && w.cfg.Matcher.Match(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			return nil
		}
		if scan && d.Type().IsRegular() {
			w.schedule(path)
		}
		return nil
	})
}

func (w *Watcher) relative(full string) (string, bool) {
	rel, err := filepath.Rel(w.local.Root(), full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// schedule (re)starts the quiet period for a path
func (w *Watcher) schedule(full string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[full]; ok {
		t.Reset(w.cfg.Debounce)
		return
	}
	w.pending[full] = time.AfterFunc(w.cfg.Debounce, func() {
		select {
		case w.ready <- full:
		case <-w.done:
		}
	})
}

func (w *Watcher) cancel(full string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[full]; ok {
		t.Stop()
		delete(w.pending, full)
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for full, t := range w.pending {
		t.Stop()
		delete(w.pending, full)
	}
	close(w.done)
}

func (w *Watcher) upload(ctx context.Context, full string) {
	w.mu.Lock()
	delete(w.pending, full)
	w.mu.Unlock()

	rel, ok := w.relative(full)
	if !ok {
		return
	}

	err := w.send(ctx, rel)
	if err != nil {
		w.logger.Warn(ctx, "watch upload failed", logging.Fields{"path": rel, "error": err.Error()})
	} else {
		w.logger.Info(ctx, "watch upload completed", logging.Fields{"path": rel})
	}
	if w.cfg.OnUpload != nil {
		w.cfg.OnUpload(rel, err)
	}
}

func (w *Watcher) send(ctx context.Context, rel string) error {
	info, err := w.local.Stat(ctx, rel)
	if err != nil {
		return err
	}
	if info.IsDir {
		return nil
	}

	rc, err := w.local.Read(ctx, rel)
	if err != nil {
		return err
	}
	rc = ratelimit.NewReadCloser(ctx, rc, w.cfg.Limiter)
	defer rc.Close()

	return w.uploader.Upload(ctx, storage.UploadRequest{
		Name:     filepath.Base(info.Path),
		Content:  rc,
		Size:     info.Size,
		FolderID: w.cfg.FolderID,
	})
}
