package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/async"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/export"
	"github.com/joseph-ayodele/invoice-drafter/internal/extract"
	"github.com/joseph-ayodele/invoice-drafter/internal/ingest"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm/openai"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/repository"
)

// localPipeline builds a drafting pipeline that talks to the completion
// service directly, without an invoiced server.
func localPipeline(logger *slog.Logger) (*pipeline.Service, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.LLM.APIKey == "" {
		return nil, common.NewAppError(common.CodeConfig, "OPENAI_API_KEY is required", common.ErrInvalidInput)
	}
	client := openai.NewClient(openai.Config{
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		RPS:         cfg.LLM.RPS,
	}, logger)
	return pipeline.NewService(logger, pipeline.Config{
		ChunkSize:        cfg.Pipeline.ChunkSize,
		ChunkConcurrency: cfg.Pipeline.ChunkConcurrency,
		AuditTimeout:     cfg.Pipeline.AuditTimeout,
		DefaultCurrency:  cfg.Pipeline.DefaultCurrency,
	}, client), nil
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "print the normalized text the drafter would see for a file",
		ArgsUsage: "FILE",
		Action: func(c *cli.Context) error {
			path, err := requireArg(c, "FILE")
			if err != nil {
				return err
			}
			text, err := extract.NewExtractor(extract.Config{}, nil).ExtractFile(c.Context, path)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}

// fileSaver writes every finished invoice straight to an export file.
type fileSaver struct {
	dir      string
	format   string
	exporter *export.Service
}

func (s *fileSaver) Save(ctx context.Context, req repository.SaveRequest) (*entity.SavedInvoice, error) {
	f, err := s.exporter.Export(ctx, req.Invoice, s.format)
	if err != nil {
		return nil, err
	}
	base := req.SourceName
	base = base[:len(base)-len(filepath.Ext(base))]
	out := filepath.Join(s.dir, base+"."+s.format)
	if err := os.WriteFile(out, f.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", out, err)
	}
	now := time.Now().UTC()
	return &entity.SavedInvoice{
		InvoiceID:  out,
		CreatedAt:  now,
		UpdatedAt:  now,
		Status:     constants.InvoiceStatusDraft,
		SourceType: req.SourceType,
		SourceName: req.SourceName,
		Invoice:    req.Invoice,
	}, nil
}

func batchCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "draft every notes file under a directory and export the finished ones",
		ArgsUsage: "DIR",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "output directory (defaults to DIR)"},
			&cli.StringFlag{Name: "format", Value: export.FormatXLSX, Usage: "xlsx or pdf"},
			&cli.IntFlag{Name: "workers", Value: 2, Usage: "concurrent drafts"},
		},
		Action: func(c *cli.Context) error {
			dir, err := requireArg(c, "DIR")
			if err != nil {
				return err
			}
			out := c.String("out")
			if out == "" {
				out = dir
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			pipe, err := localPipeline(logger)
			if err != nil {
				return err
			}

			saver := &fileSaver{dir: out, format: c.String("format"), exporter: export.NewService(nil, logger)}
			inbox := ingest.NewInbox(pipe, extract.NewExtractor(extract.Config{}, logger), saver, logger)
			queue := async.NewWorkerQueue(inbox, logger, async.WithWorkers(c.Int("workers")))

			stats, err := ingest.ScanDirectory(c.Context, queue, dir, true)
			queue.Shutdown(c.Context)
			if err != nil {
				return err
			}

			var exported, followUps, failures int
			for _, r := range inbox.Results() {
				switch {
				case r.Err != "":
					failures++
					fmt.Printf("FAIL  %s: %s\n", r.SourcePath, r.Err)
				case r.InvoiceID != "":
					exported++
					fmt.Printf("OK    %s -> %s\n", r.SourcePath, r.InvoiceID)
				case r.Deduplicated:
					fmt.Printf("DUP   %s\n", r.SourcePath)
				default:
					followUps++
					fmt.Printf("TODO  %s (%s)\n", r.SourcePath, r.Stage)
				}
			}
			fmt.Printf("Batch complete: matched %d, exported %d, needs follow-up %d, failures %d\n",
				stats.Matched, exported, followUps, failures)
			return nil
		},
	}
}
