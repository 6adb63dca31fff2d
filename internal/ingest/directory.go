package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-drafter/internal/async"
)

// ScanDirectory walks root, skips hidden entries if requested, and enqueues
// every allowed file. Returns aggregate stats.
func ScanDirectory(ctx context.Context, q async.Queue, root string, skipHidden bool) (DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return DirStats{}, errors.New("root path is required")
	}

	var stats DirStats
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		if err := q.Enqueue(ctx, async.Job{Path: path, TraceID: uuid.NewString()}); err != nil {
			stats.Failed++
			return err
		}
		stats.Enqueued++
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walk: %w", err)
	}
	return stats, nil
}

// Run watches the roots and enqueues every new or changed file until ctx ends.
func Run(ctx context.Context, cfg WatchConfig, q async.Queue) error {
	events, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-events:
			if !ok {
				return nil
			}
			if err := q.Enqueue(ctx, async.Job{Path: p, TraceID: uuid.NewString()}); err != nil {
				return err
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}
}
