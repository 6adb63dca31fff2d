// Package parser turns free-text job notes into a structured invoice through
// the completion service.
package parser

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm"
)

// Config tunes chunking.
type Config struct {
	ChunkSize   int // characters; longer input is split on paragraph boundaries
	Concurrency int // chunk parses in flight
}

// Parser is the structured parsing orchestrator.
type Parser struct {
	completer llm.Completer
	cfg       Config
	log       *slog.Logger
}

func New(completer llm.Completer, cfg Config, logger *slog.Logger) *Parser {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4000
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{completer: completer, cfg: cfg, log: logger}
}

// Parse returns the structured invoice for sourceText, with task hours and
// rates stated in the text filled in where the model left them out.
func (p *Parser) Parse(ctx context.Context, sourceText string) (*entity.StructuredInvoice, error) {
	text := strings.TrimSpace(sourceText)
	if text == "" {
		return nil, common.NewInputError("source text is required")
	}

	start := time.Now()
	chunks := SplitChunks(text, p.cfg.ChunkSize)
	p.log.Info("parser.start", "chars", len(text), "chunks", len(chunks))

	results := make([]*entity.StructuredInvoice, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			si, err := p.parseChunk(gctx, chunk)
			if err != nil {
				p.log.Error("parser.chunk.error", "chunk", i, "error", err)
				return err
			}
			p.log.Debug("parser.chunk.ok", "chunk", i, "sessions", len(si.WorkSessions), "materials", len(si.Materials))
			results[i] = si
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(results)
	recovered := RecoverTaskPricing(merged, text)
	p.log.Info("parser.ok",
		"sessions", len(recovered.WorkSessions),
		"materials", len(recovered.Materials),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return recovered, nil
}

func (p *Parser) parseChunk(ctx context.Context, chunk string) (*entity.StructuredInvoice, error) {
	return llm.RunJSONTask(ctx, p.completer, llm.Task[*entity.StructuredInvoice]{
		Name:   "parse",
		Prompt: llm.BuildParsePrompt(chunk),
		Schema: llm.StructuredInvoiceSchema(),
		Decode: entity.StructuredInvoiceFromMap,
	}, p.log)
}

// Merge combines chunk results in order: sessions and materials are
// concatenated, notes appended, and the first non-empty header field wins.
func Merge(parts []*entity.StructuredInvoice) *entity.StructuredInvoice {
	out := &entity.StructuredInvoice{
		WorkSessions: []entity.WorkSession{},
		Materials:    []entity.Material{},
	}
	var notes []string
	for _, part := range parts {
		if part == nil {
			continue
		}
		part = part.Clone()
		firstNonEmpty(&out.CustomerName, part.CustomerName)
		firstNonEmpty(&out.InvoiceNumber, part.InvoiceNumber)
		firstNonEmpty(&out.IssueDate, part.IssueDate)
		firstNonEmpty(&out.ServicePeriodStart, part.ServicePeriodStart)
		firstNonEmpty(&out.ServicePeriodEnd, part.ServicePeriodEnd)
		out.WorkSessions = append(out.WorkSessions, part.WorkSessions...)
		out.Materials = append(out.Materials, part.Materials...)
		if n := strings.TrimSpace(part.Notes); n != "" {
			notes = append(notes, n)
		}
	}
	out.Notes = strings.Join(notes, "\n\n")
	return out
}

func firstNonEmpty(dst *string, v string) {
	if *dst == "" && strings.TrimSpace(v) != "" {
		*dst = v
	}
}
