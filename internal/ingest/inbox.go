package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/async"
	"github.com/joseph-ayodele/invoice-drafter/internal/audit"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/repository"
)

// Inbox drafts one file per job. Notes that draft straight to a finished
// invoice are saved; notes that need a follow-up are only reported.
type Inbox struct {
	drafter   Drafter
	extractor Extractor
	saver     Saver
	logger    *slog.Logger

	mu      sync.Mutex
	seen    map[string]string // content hash -> path
	results []IngestionResult
	now     func() time.Time
}

func NewInbox(d Drafter, e Extractor, s Saver, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		drafter:   d,
		extractor: e,
		saver:     s,
		logger:    logger,
		seen:      map[string]string{},
		now:       time.Now,
	}
}

// Process implements async.Processor.
func (in *Inbox) Process(ctx context.Context, job async.Job) error {
	r, err := in.ingest(ctx, job)
	if err != nil {
		r.Err = err.Error()
	}
	r.ProcessedAt = in.now().UTC()
	in.mu.Lock()
	in.results = append(in.results, r)
	in.mu.Unlock()
	return err
}

// forget drops hash from the seen set if path still owns it.
func (in *Inbox) forget(hash, path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.seen[hash] == path {
		delete(in.seen, hash)
	}
}

// Results returns a copy of every outcome recorded so far.
func (in *Inbox) Results() []IngestionResult {
	in.mu.Lock()
	defer in.mu.Unlock()
	return append([]IngestionResult(nil), in.results...)
}

func (in *Inbox) ingest(ctx context.Context, job async.Job) (out IngestionResult, err error) {
	out = IngestionResult{SourcePath: job.Path}

	abs, err := filepath.Abs(job.Path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	content, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		// renamed or removed before we got to it
		in.logger.Info("ingest.skip.missing", "path", abs)
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("read: %w", err)
	}

	sum := sha256.Sum256(content)
	out.HashHex = hex.EncodeToString(sum[:])
	in.mu.Lock()
	prev, dup := in.seen[out.HashHex]
	if !dup || job.Force {
		in.seen[out.HashHex] = abs
	}
	in.mu.Unlock()
	if dup && !job.Force {
		out.Deduplicated = true
		in.logger.Info("ingest.skip.duplicate", "path", abs, "first_seen", prev)
		return out, nil
	}
	// a failed attempt must not block the next one
	defer func() {
		if err != nil {
			in.forget(out.HashHex, abs)
		}
	}()

	text, err := in.extractor.ExtractText(ctx, filepath.Base(abs), content)
	if err != nil {
		return out, common.WrapError(err, "extract")
	}

	res, err := in.drafter.Draft(ctx, pipeline.DraftRequest{SourceText: text, Mode: audit.ModeFast})
	if err != nil {
		return out, common.WrapError(err, "draft")
	}
	out.Stage = res.Stage

	if res.NeedsFollowUp || res.Invoice == nil {
		in.logger.Info("ingest.needs_follow_up", "path", abs, "stage", string(res.Stage))
		return out, nil
	}
	if in.saver == nil {
		return out, nil
	}
	saved, err := in.saver.Save(ctx, repository.SaveRequest{
		Invoice:    res.Invoice,
		SourceType: constants.SourceTypeInbox,
		SourceName: filepath.Base(abs),
	})
	if err != nil {
		return out, common.WrapError(err, "save")
	}
	out.InvoiceID = saved.InvoiceID
	in.logger.Info("ingest.saved", "path", abs, "invoice_id", saved.InvoiceID, "open_decisions", len(res.OpenDecisions))
	return out, nil
}
