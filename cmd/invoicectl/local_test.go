package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/export"
	"github.com/joseph-ayodele/invoice-drafter/internal/repository"
)

func TestFileSaver_WritesExport(t *testing.T) {
	dir := t.TempDir()
	amt := 80.0
	s := &fileSaver{dir: dir, format: export.FormatPDF, exporter: export.NewService(nil, nil)}

	saved, err := s.Save(context.Background(), repository.SaveRequest{
		Invoice: &entity.FinishedInvoice{
			InvoiceNumber: "INV-2",
			Currency:      "USD",
			LineItems:     []entity.LineItem{{ID: "line_1", Type: constants.LineTypeLabor, Description: "Hung door", Amount: &amt}},
			Subtotal:      80, Total: 80, BalanceDue: 80,
		},
		SourceType: constants.SourceTypeInbox,
		SourceName: "monday.notes.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "monday.notes.pdf"), saved.InvoiceID)

	data, err := os.ReadFile(saved.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}
