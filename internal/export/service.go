// Package export renders finished invoices as XLSX or PDF documents and
// optionally archives the rendered files.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
)

// Supported export formats.
const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// File is a rendered export.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
	ArchiveKey  string `json:"archiveKey,omitempty"` // set when the file was archived
}

// Service produces export documents for finished invoices.
type Service struct {
	archiver Archiver
	logger   *slog.Logger
}

// NewService builds a Service. archiver may be nil to skip archiving.
func NewService(archiver Archiver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{archiver: archiver, logger: logger}
}

// Export renders inv in format and archives the result when an archiver is set.
func (s *Service) Export(ctx context.Context, inv *entity.FinishedInvoice, format string) (*File, error) {
	if inv == nil {
		return nil, common.NewInputError("invoice is required")
	}
	start := time.Now()
	format = strings.ToLower(strings.TrimSpace(format))

	var (
		data []byte
		ct   string
		err  error
	)
	switch format {
	case FormatXLSX:
		data, err = RenderXLSX(inv)
		ct = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		data, err = RenderPDF(inv)
		ct = "application/pdf"
	default:
		return nil, common.NewInputError(fmt.Sprintf("unsupported export format %q: use xlsx or pdf", format))
	}
	if err != nil {
		s.logger.Error("export.render.failed", "format", format, "invoice_number", inv.InvoiceNumber, "error", err)
		return nil, err
	}

	f := &File{Name: fileName(inv, format), ContentType: ct, Data: data}
	if s.archiver != nil {
		key, err := s.archiver.Put(ctx, f.Name, f.ContentType, f.Data)
		if err != nil {
			s.logger.Error("export.archive.failed", "name", f.Name, "error", err)
			return nil, fmt.Errorf("archive export: %w", err)
		}
		f.ArchiveKey = key
	}

	s.logger.Info("export.ok",
		"format", format,
		"invoice_number", inv.InvoiceNumber,
		"bytes", len(data),
		"archived", f.ArchiveKey != "",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return f, nil
}

func fileName(inv *entity.FinishedInvoice, format string) string {
	base := strings.TrimSpace(inv.InvoiceNumber)
	if base == "" {
		base = "invoice"
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	return base + "." + format
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func amountText(li entity.LineItem) string {
	if li.Amount == nil {
		if li.PendingDecision {
			return "pending"
		}
		return ""
	}
	return money(*li.Amount)
}

func numText(p *float64) string {
	if p == nil {
		return ""
	}
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", *p), "0"), ".")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
