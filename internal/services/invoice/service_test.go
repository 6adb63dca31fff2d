package invoice

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/export"
	"github.com/joseph-ayodele/invoice-drafter/internal/extract"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm/llmtest"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/repository"
)

func newPipeline(parseJSON string) *pipeline.Service {
	fake := &llmtest.Scripted{}
	fake.Route = func(prompt string) (llmtest.Reply, bool) {
		if strings.Contains(prompt, "structured invoice draft") {
			return llmtest.Reply{Text: parseJSON}, true
		}
		return llmtest.Reply{Text: `{"assumptions":[],"decisions":[],"unparsedLines":[]}`}, true
	}
	return pipeline.NewService(nil, pipeline.Config{AuditTimeout: time.Second}, fake)
}

func newTestService(t *testing.T, parseJSON string) *Service {
	t.Helper()
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{Driver: repository.DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(ctx, db, nil))
	repo := repository.NewInvoiceRepository(db, nil)
	t.Cleanup(func() {
		repo.Close(context.Background())
		db.Close(nil)
	})
	return NewService(newPipeline(parseJSON), repo, export.NewService(nil, nil), extract.NewExtractor(extract.Config{}, nil), nil)
}

func sampleInvoice() *entity.FinishedInvoice {
	amt := 160.0
	return &entity.FinishedInvoice{
		InvoiceNumber: "INV-7",
		Currency:      "USD",
		LineItems: []entity.LineItem{
			{ID: "line_1", Type: constants.LineTypeLabor, Description: "Fixed faucet", Amount: &amt},
		},
		Subtotal: 160, Total: 160, BalanceDue: 160,
	}
}

func TestService_OptionalDependencies(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newPipeline(`{}`), nil, nil, nil, nil)

	_, err := svc.DraftUpload(ctx, UploadDraftRequest{Name: "a.txt", Content: []byte("x")})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.SaveInvoice(ctx, SaveRequest{Invoice: sampleInvoice()})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.ListInvoices(ctx, false)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Export(ctx, ExportRequest{Invoice: sampleInvoice(), Format: export.FormatPDF})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestService_SavedInvoiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, `{}`)

	list, err := svc.ListInvoices(ctx, false)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	saved, err := svc.SaveInvoice(ctx, SaveRequest{Invoice: sampleInvoice()})
	require.NoError(t, err)
	assert.Equal(t, constants.InvoiceStatusDraft, saved.Status)

	sent, err := svc.UpdateStatus(ctx, StatusRequest{InvoiceID: saved.InvoiceID, Status: " SENT "})
	require.NoError(t, err)
	assert.Equal(t, constants.InvoiceStatusSent, sent.Status)

	_, err = svc.UpdateStatus(ctx, StatusRequest{InvoiceID: saved.InvoiceID, Status: "void"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.GetInvoice(ctx, "  ")
	assert.ErrorIs(t, err, common.ErrValidation)

	del, err := svc.DeleteInvoice(ctx, saved.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, constants.InvoiceStatusDeleted, del.Status)

	list, err = svc.ListInvoices(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	restored, err := svc.RestoreInvoice(ctx, saved.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, constants.InvoiceStatusSent, restored.Status)

	edited := sampleInvoice()
	edited.Notes = "Thanks!"
	upd, err := svc.UpdateInvoice(ctx, UpdateRequest{InvoiceID: saved.InvoiceID, Invoice: edited})
	require.NoError(t, err)
	assert.Equal(t, "Thanks!", upd.Invoice.Notes)
}

func TestService_Export(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, `{}`)

	saved, err := svc.SaveInvoice(ctx, SaveRequest{Invoice: sampleInvoice()})
	require.NoError(t, err)

	f, err := svc.Export(ctx, ExportRequest{InvoiceID: saved.InvoiceID, Format: export.FormatPDF})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(f.Data), "%PDF"))

	f, err = svc.Export(ctx, ExportRequest{Invoice: sampleInvoice(), Format: export.FormatXLSX})
	require.NoError(t, err)
	assert.NotEmpty(t, f.Data)

	_, err = svc.Export(ctx, ExportRequest{Format: export.FormatPDF})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = svc.Export(ctx, ExportRequest{InvoiceID: "nope", Format: export.FormatPDF})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestService_Edits(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, `{}`)

	inv, err := svc.ApplyDiscount(ctx, ApplyDiscountRequest{Invoice: sampleInvoice(), Amount: 10, Reason: "  loyalty "})
	require.NoError(t, err)
	assert.Equal(t, 150.0, inv.Total)
	assert.Equal(t, "loyalty", inv.DiscountReason)

	_, err = svc.ResolveDecision(ctx, ResolveDecisionRequest{Invoice: sampleInvoice()})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestService_DraftUpload(t *testing.T) {
	svc := newTestService(t, `{"workSessions":[{"tasks":[{"description":"Replaced valve"}]}]}`)

	out, err := svc.DraftUpload(context.Background(), UploadDraftRequest{Name: "notes.txt", Content: []byte("Replaced valve\r\n")})
	require.NoError(t, err)
	assert.Equal(t, "Replaced valve", out.SourceText)
	require.NotNil(t, out.Result)
	assert.True(t, out.NeedsFollowUp)
	assert.Equal(t, pipeline.StageLaborPricingNeeded, out.Stage)

	_, err = svc.DraftUpload(context.Background(), UploadDraftRequest{Name: "photo.heic", Content: []byte("x")})
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
