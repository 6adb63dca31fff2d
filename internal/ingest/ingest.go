// Package ingest drafts invoices from note files dropped into an inbox directory.
package ingest

import (
	"context"
	"time"

	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/repository"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	HashHex      string
	Deduplicated bool
	Stage        pipeline.Stage
	InvoiceID    string // set when a finished invoice was saved
	ProcessedAt  time.Time
	Err          string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned  uint32
	Matched  uint32
	Enqueued uint32
	Failed   uint32
}

// Drafter is the slice of the pipeline the inbox needs.
type Drafter interface {
	Draft(ctx context.Context, req pipeline.DraftRequest) (*pipeline.Result, error)
}

// Extractor turns a file's bytes into note text.
type Extractor interface {
	ExtractText(ctx context.Context, name string, content []byte) (string, error)
}

// Saver persists finished invoices.
type Saver interface {
	Save(ctx context.Context, req repository.SaveRequest) (*entity.SavedInvoice, error)
}
