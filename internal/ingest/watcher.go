package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing files
	Debounce    time.Duration // coalesce rapid write/rename bursts
	Logger      *slog.Logger
}

// StartWatcher emits paths of allowed, non-hidden files created or written
// under the roots. Both channels close when ctx ends.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	addDir := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && IsHidden(path) {
					return filepath.SkipDir
				}
				return w.Add(path)
			}
			if cfg.InitialScan && wanted(path) {
				initial = append(initial, path)
			}
			return nil
		})
	}
	for _, r := range cfg.Roots {
		if err := addDir(r); err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	go func() {
		defer close(errCh)
		defer close(evCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		var (
			mu      sync.Mutex
			pending = map[string]struct{}{}
			flush   = make(chan struct{}, 1)
			timer   *time.Timer
		)
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		signalFlush := func() {
			select {
			case flush <- struct{}{}:
			default:
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-flush:
				mu.Lock()
				batch := make([]string, 0, len(pending))
				for p := range pending {
					batch = append(batch, p)
				}
				pending = map[string]struct{}{}
				mu.Unlock()
				for _, p := range batch {
					if !emit(p) {
						return
					}
				}
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op&fsnotify.Create == fsnotify.Create {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() && !IsHidden(e.Name) {
						if err := w.Add(e.Name); err != nil {
							logger.Warn("failed to add new directory to watcher", "path", e.Name, "error", err)
						}
						continue
					}
				}
				if !wanted(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				pending[e.Name] = struct{}{}
				mu.Unlock()
				if cfg.Debounce > 0 {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(cfg.Debounce, signalFlush)
				} else {
					signalFlush()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func wanted(path string) bool {
	return !IsHidden(path) && AllowedExt(filepath.Ext(path))
}
