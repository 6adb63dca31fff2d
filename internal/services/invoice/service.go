// Package invoice is the application façade shared by the gRPC and HTTP
// surfaces: drafting, edits, saved invoices and exports.
package invoice

import (
	"context"
	"strings"

	"log/slog"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/audit"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/export"
	"github.com/joseph-ayodele/invoice-drafter/internal/pipeline"
	"github.com/joseph-ayodele/invoice-drafter/internal/repository"
)

// Extractor turns an upload into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, name string, content []byte) (string, error)
}

// Service handles invoice business logic.
type Service struct {
	pipeline  *pipeline.Service
	repo      repository.InvoiceRepository
	exporter  *export.Service
	extractor Extractor
	logger    *slog.Logger
}

// NewService creates a new invoice service. repo, exporter and extractor may be
// nil; the operations that need them then fail with an InputError.
func NewService(p *pipeline.Service, repo repository.InvoiceRepository, exporter *export.Service, extractor Extractor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		pipeline:  p,
		repo:      repo,
		exporter:  exporter,
		extractor: extractor,
		logger:    logger,
	}
}

// UploadDraftRequest drafts from an uploaded document.
type UploadDraftRequest struct {
	Name    string
	Content []byte
	Mode    audit.Mode
}

// UploadDraftResponse carries the extracted text so follow-up calls can send it back.
type UploadDraftResponse struct {
	SourceText string `json:"sourceText"`
	*pipeline.Result
}

// ApplyDiscountRequest replaces the discount on an invoice.
type ApplyDiscountRequest struct {
	Invoice *entity.FinishedInvoice `json:"invoice"`
	Amount  float64                 `json:"amount"`
	Reason  string                  `json:"reason,omitempty"`
}

// EditLineItemsRequest replaces an invoice's line items.
type EditLineItemsRequest struct {
	Invoice   *entity.FinishedInvoice `json:"invoice"`
	LineItems []entity.LineItem       `json:"lineItems"`
}

// ResolveDecisionRequest settles one gated line.
type ResolveDecisionRequest struct {
	Invoice       *entity.FinishedInvoice `json:"invoice"`
	OpenDecisions []entity.Decision       `json:"openDecisions"`
	LineID        string                  `json:"lineId"`
	Bill          bool                    `json:"bill"`
}

// ResolveDecisionResponse is the invoice after the decision plus the decisions still open.
type ResolveDecisionResponse struct {
	Invoice       *entity.FinishedInvoice `json:"invoice"`
	OpenDecisions []entity.Decision       `json:"openDecisions"`
}

// RewordRequest rewrites one line (LineID set) or the whole invoice.
type RewordRequest struct {
	Invoice     *entity.FinishedInvoice `json:"invoice"`
	LineID      string                  `json:"lineId,omitempty"`
	Instruction string                  `json:"instruction,omitempty"`
}

// SaveRequest persists a finished invoice.
type SaveRequest struct {
	Invoice    *entity.FinishedInvoice `json:"invoice"`
	SourceType constants.SourceType    `json:"sourceType,omitempty"`
	SourceName string                  `json:"sourceName,omitempty"`
}

// UpdateRequest replaces the body of a saved invoice.
type UpdateRequest struct {
	InvoiceID string                  `json:"invoiceId"`
	Invoice   *entity.FinishedInvoice `json:"invoice"`
}

// StatusRequest moves a saved invoice to a new status.
type StatusRequest struct {
	InvoiceID string `json:"invoiceId"`
	Status    string `json:"status"`
}

// ExportRequest renders a saved invoice (InvoiceID) or an inline one (Invoice).
type ExportRequest struct {
	InvoiceID string                  `json:"invoiceId,omitempty"`
	Invoice   *entity.FinishedInvoice `json:"invoice,omitempty"`
	Format    string                  `json:"format"`
}

// Draft parses notes and advances them as far as they go without the user.
func (s *Service) Draft(ctx context.Context, req pipeline.DraftRequest) (*pipeline.Result, error) {
	return s.pipeline.Draft(ctx, req)
}

// DraftUpload extracts the text of an upload and drafts from it.
func (s *Service) DraftUpload(ctx context.Context, req UploadDraftRequest) (*UploadDraftResponse, error) {
	if s.extractor == nil {
		return nil, common.NewInputError("uploads are not supported by this server")
	}
	text, err := s.extractor.ExtractText(ctx, req.Name, req.Content)
	if err != nil {
		s.logger.Warn("upload extraction failed", "name", req.Name, "error", err)
		return nil, err
	}
	s.logger.Info("upload extracted", "name", req.Name, "chars", len(text))
	res, err := s.pipeline.Draft(ctx, pipeline.DraftRequest{SourceText: text, Mode: req.Mode})
	if err != nil {
		return nil, err
	}
	return &UploadDraftResponse{SourceText: text, Result: res}, nil
}

func (s *Service) ContinueLaborPricing(ctx context.Context, req pipeline.LaborPricingRequest) (*pipeline.Result, error) {
	return s.pipeline.ContinueLaborPricing(ctx, req)
}

func (s *Service) ContinueDiscount(ctx context.Context, req pipeline.DiscountRequest) (*pipeline.Result, error) {
	return s.pipeline.ContinueDiscount(ctx, req)
}

func (s *Service) ApplyDiscount(_ context.Context, req ApplyDiscountRequest) (*entity.FinishedInvoice, error) {
	return s.pipeline.ApplyDiscount(req.Invoice, req.Amount, strings.TrimSpace(req.Reason))
}

func (s *Service) EditLineItems(_ context.Context, req EditLineItemsRequest) (*entity.FinishedInvoice, error) {
	return s.pipeline.EditLineItems(req.Invoice, req.LineItems)
}

func (s *Service) ResolveDecision(_ context.Context, req ResolveDecisionRequest) (*ResolveDecisionResponse, error) {
	if strings.TrimSpace(req.LineID) == "" {
		return nil, common.NewValidationError("lineId", nil, "lineId is required")
	}
	inv, open, err := s.pipeline.ResolveDecision(req.Invoice, req.OpenDecisions, req.LineID, req.Bill)
	if err != nil {
		return nil, err
	}
	if open == nil {
		open = []entity.Decision{}
	}
	return &ResolveDecisionResponse{Invoice: inv, OpenDecisions: open}, nil
}

// Reword rewrites a single line when LineID is set, otherwise the whole invoice.
func (s *Service) Reword(ctx context.Context, req RewordRequest) (*entity.FinishedInvoice, error) {
	if req.LineID != "" {
		return s.pipeline.RewordLine(ctx, req.Invoice, req.LineID, req.Instruction)
	}
	return s.pipeline.RewordInvoice(ctx, req.Invoice, req.Instruction)
}

func (s *Service) SaveInvoice(ctx context.Context, req SaveRequest) (*entity.SavedInvoice, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, repository.SaveRequest{
		Invoice:    req.Invoice,
		SourceType: req.SourceType,
		SourceName: req.SourceName,
	})
}

func (s *Service) UpdateInvoice(ctx context.Context, req UpdateRequest) (*entity.SavedInvoice, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	id, err := requireID(req.InvoiceID)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, req.Invoice)
}

func (s *Service) ListInvoices(ctx context.Context, includeDeleted bool) ([]*entity.SavedInvoice, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	out, err := s.repo.List(ctx, includeDeleted)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*entity.SavedInvoice{}
	}
	return out, nil
}

func (s *Service) GetInvoice(ctx context.Context, id string) (*entity.SavedInvoice, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateStatus(ctx context.Context, req StatusRequest) (*entity.SavedInvoice, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	id, err := requireID(req.InvoiceID)
	if err != nil {
		return nil, err
	}
	st, ok := constants.ParseInvoiceStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !ok {
		return nil, common.NewValidationError("status", req.Status, "status must be one of draft, sent, paid, deleted")
	}
	return s.repo.UpdateStatus(ctx, id, st)
}

func (s *Service) DeleteInvoice(ctx context.Context, id string) (*entity.SavedInvoice, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) RestoreInvoice(ctx context.Context, id string) (*entity.SavedInvoice, error) {
	if err := s.requireStore(); err != nil {
		return nil, err
	}
	id, err := requireID(id)
	if err != nil {
		return nil, err
	}
	return s.repo.Restore(ctx, id)
}

func (s *Service) Export(ctx context.Context, req ExportRequest) (*export.File, error) {
	if s.exporter == nil {
		return nil, common.NewInputError("exports are not supported by this server")
	}
	inv := req.Invoice
	if id := strings.TrimSpace(req.InvoiceID); id != "" {
		saved, err := s.GetInvoice(ctx, id)
		if err != nil {
			return nil, err
		}
		inv = saved.Invoice
	}
	if inv == nil {
		return nil, common.NewInputError("invoiceId or invoice is required")
	}
	return s.exporter.Export(ctx, inv, req.Format)
}

func (s *Service) requireStore() error {
	if s.repo == nil {
		return common.NewInputError("saved invoices are not enabled on this server")
	}
	return nil
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", common.NewValidationError("invoiceId", nil, "invoiceId is required")
	}
	return id, nil
}
