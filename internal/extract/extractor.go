// Package extract turns uploaded documents into plain text for the parser.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxBytes  int64  // 0 = 10 MiB
}

// Extractor implements ExtractText for the supported upload types.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner used for PDFs.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// ExtractText returns the normalized text of an upload named name. Unsupported
// types and uploads without text are InputErrors.
func (e *Extractor) ExtractText(ctx context.Context, name string, content []byte) (string, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(name))
	format := constants.MapExtToFormat(ext)
	if format == "" {
		e.logger.Warn("extract.unsupported", "name", name, "ext", ext)
		return "", common.NewInputError(fmt.Sprintf("unsupported upload type %q: use .txt, .md, .csv, .pdf or .xlsx", ext))
	}
	if len(content) == 0 {
		return "", common.NewInputError("uploaded file is empty")
	}
	if int64(len(content)) > e.cfg.MaxBytes {
		return "", common.NewInputError(fmt.Sprintf("uploaded file is larger than %d bytes", e.cfg.MaxBytes))
	}

	var (
		text string
		err  error
	)
	switch format {
	case constants.TEXT:
		if !utf8.Valid(content) {
			return "", common.NewInputError("text upload is not valid UTF-8")
		}
		text = string(content)
	case constants.PDF:
		text, err = e.pdfToText(ctx, content)
	case constants.XLSX:
		text, err = xlsxToText(content)
	}
	if err != nil {
		e.logger.Error("extract.failed", "name", name, "format", format, "error", err)
		return "", err
	}

	text = Normalize(text)
	if text == "" {
		return "", common.NewInputError("no text found in " + filepath.Base(name))
	}
	e.logger.Info("extract.ok",
		"name", name,
		"format", format,
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// ExtractFile reads path and extracts its text.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return e.ExtractText(ctx, filepath.Base(path), content)
}

func (e *Extractor) pdfToText(ctx context.Context, content []byte) (string, error) {
	tmp, err := os.CreateTemp("", "invoice-upload-*.pdf")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil {
			e.logger.Warn("extract.temp_cleanup_failed", "path", tmp.Name(), "error", err)
		}
	}()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		return "", common.NewInputError(fmt.Sprintf("could not read PDF: %s", strings.TrimSpace(string(errb))))
	}
	return string(out), nil
}

// xlsxToText renders every sheet row as one line of space-separated cells.
func xlsxToText(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", common.NewInputError("could not read spreadsheet: " + err.Error())
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			var cells []string
			for _, c := range row {
				if c = strings.TrimSpace(c); c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) > 0 {
				b.WriteString(strings.Join(cells, " "))
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
