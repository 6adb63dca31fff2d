// Package pipeline drives an invoice draft from free text to a priced,
// audited invoice, pausing for labor pricing and discount follow-ups.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-drafter/internal/audit"
	"github.com/joseph-ayodele/invoice-drafter/internal/discount"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/lineitems"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
	"github.com/joseph-ayodele/invoice-drafter/internal/normalize"
	"github.com/joseph-ayodele/invoice-drafter/internal/parser"
	"github.com/joseph-ayodele/invoice-drafter/internal/pricing"
)

// Config holds pipeline knobs.
type Config struct {
	ChunkSize        int
	ChunkConcurrency int
	AuditTimeout     time.Duration
	DefaultCurrency  string
}

// Service runs drafting requests. It keeps no per-request state: paused
// drafts are resumed from the structured invoice the caller sends back.
type Service struct {
	Logger    *slog.Logger
	Cfg       Config
	Parser    *parser.Parser
	Overlay   *audit.Overlay
	Completer llm.Completer

	now func() time.Time
}

func NewService(logger *slog.Logger, cfg Config, completer llm.Completer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = entity.DefaultCurrency
	}
	return &Service{
		Logger: logger,
		Cfg:    cfg,
		Parser: parser.New(completer, parser.Config{
			ChunkSize:   cfg.ChunkSize,
			Concurrency: cfg.ChunkConcurrency,
		}, logger),
		Overlay:   audit.New(completer, cfg.AuditTimeout, logger),
		Completer: completer,
		now:       time.Now,
	}
}

// DraftRequest starts a draft from free text.
type DraftRequest struct {
	SourceText string     `json:"sourceText"`
	Mode       audit.Mode `json:"mode,omitempty"`
}

// LaborPricingRequest answers a labor_pricing follow-up.
type LaborPricingRequest struct {
	SourceText        string                    `json:"sourceText,omitempty"`
	StructuredInvoice *entity.StructuredInvoice `json:"structuredInvoice"`
	Pricing           pricing.Choice            `json:"pricing"`
	Mode              audit.Mode                `json:"mode,omitempty"`
}

// DiscountRequest answers a discount follow-up. A zero amount means no discount.
type DiscountRequest struct {
	SourceText        string                    `json:"sourceText,omitempty"`
	StructuredInvoice *entity.StructuredInvoice `json:"structuredInvoice"`
	Amount            float64                   `json:"amount"`
	Reason            string                    `json:"reason,omitempty"`
	Mode              audit.Mode                `json:"mode,omitempty"`
}

// discountChoice is a discount the caller already decided on.
type discountChoice struct {
	amount float64
	reason string
}

// Draft parses the notes and advances as far as it can without caller input.
func (s *Service) Draft(ctx context.Context, req DraftRequest) (*Result, error) {
	start := time.Now()
	s.Logger.Info("pipeline.draft.start", "chars", len(req.SourceText), "mode", string(req.Mode))

	si, err := s.Parser.Parse(ctx, req.SourceText)
	if err != nil {
		s.Logger.Error("pipeline.draft.parse_failed", "error", err)
		return nil, fmt.Errorf("parse notes: %w", err)
	}
	res, err := s.advance(ctx, req.SourceText, si, req.Mode, nil)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("pipeline.draft.ok", "stage", string(res.Stage), "elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

// ContinueLaborPricing prices the unpriced tasks and advances the draft.
func (s *Service) ContinueLaborPricing(ctx context.Context, req LaborPricingRequest) (*Result, error) {
	if err := entity.ValidateStructuredInvoice(req.StructuredInvoice); err != nil {
		return nil, err
	}
	priced, err := pricing.ApplyPricing(req.StructuredInvoice, req.Pricing)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("pipeline.labor_pricing.applied", "mode", string(req.Pricing.Mode))
	return s.advance(ctx, req.SourceText, priced, req.Mode, nil)
}

// ContinueDiscount applies the caller's discount answer and finishes the draft.
func (s *Service) ContinueDiscount(ctx context.Context, req DiscountRequest) (*Result, error) {
	if err := entity.ValidateStructuredInvoice(req.StructuredInvoice); err != nil {
		return nil, err
	}
	if req.Amount < 0 {
		return nil, validationErr("amount", req.Amount, "discount must be zero or greater")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" && req.Amount > 0 {
		if m, ok := discount.Mentioned(discountText(req.SourceText, req.StructuredInvoice)); ok {
			reason = m.Reason
		}
	}
	return s.advance(ctx, req.SourceText, req.StructuredInvoice.Clone(), req.Mode, &discountChoice{amount: req.Amount, reason: reason})
}

func (s *Service) advance(ctx context.Context, source string, si *entity.StructuredInvoice, mode audit.Mode, disc *discountChoice) (*Result, error) {
	if pricing.NeedsLaborPricingFollowUp(si) {
		fu := pricing.FollowUpFor(si)
		res := newResult(StageLaborPricingNeeded, si)
		res.NeedsFollowUp = true
		res.FollowUp = &FollowUp{
			Type:    FollowUpLaborPricing,
			Message: fu.Message,
			Options: fu.Options,
			Tasks:   fu.Tasks,
		}
		s.Logger.Info("pipeline.follow_up", "type", string(FollowUpLaborPricing), "tasks", len(fu.Tasks))
		return res, nil
	}

	text := discountText(source, si)
	if disc == nil {
		if d, ok := discount.Detect(text); ok {
			disc = &discountChoice{amount: d.Amount, reason: d.Reason}
			s.Logger.Info("pipeline.discount.detected", "amount", d.Amount)
		} else if m, ok := discount.Mentioned(text); ok {
			preview, err := s.finish(si, &discountChoice{})
			if err != nil {
				return nil, err
			}
			res := newResult(StageDiscountFollowUp, si)
			res.NeedsFollowUp = true
			res.Invoice = preview
			res.FollowUp = &FollowUp{
				Type:    FollowUpDiscount,
				Message: DiscountFollowUpMessage,
				Reason:  m.Reason,
				Snippet: m.Snippet,
			}
			s.Logger.Info("pipeline.follow_up", "type", string(FollowUpDiscount))
			return res, nil
		}
	}

	inv, err := s.finish(si, disc)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = audit.ModeFull
	}
	audited, report := s.Overlay.Run(ctx, mode, source, si, inv)

	res := newResult(StageReady, si)
	res.Invoice = audited
	res.OpenDecisions = report.Decisions
	res.Assumptions = report.Assumptions
	res.UnparsedLines = report.UnparsedLines
	res.AuditStatus = report.Status
	return res, nil
}

// finish derives lines and totals. It does not audit.
func (s *Service) finish(si *entity.StructuredInvoice, disc *discountChoice) (*entity.FinishedInvoice, error) {
	now := s.now()
	inv := &entity.FinishedInvoice{
		InvoiceNumber:      si.InvoiceNumber,
		IssueDate:          si.IssueDate,
		ServicePeriodStart: si.ServicePeriodStart,
		ServicePeriodEnd:   si.ServicePeriodEnd,
		CustomerName:       si.CustomerName,
		Currency:           s.Cfg.DefaultCurrency,
		LineItems:          lineitems.Build(si),
		Notes:              si.Notes,
	}
	if inv.InvoiceNumber == "" {
		inv.InvoiceNumber = fmt.Sprintf("INV-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.New().String()[:6]))
	}
	if inv.IssueDate == "" {
		inv.IssueDate = now.Format("2006-01-02")
	}
	if disc != nil && disc.amount > 0 {
		inv.DiscountAmount = money.Float(money.Round(disc.amount))
		inv.DiscountReason = disc.reason
	}
	if err := entity.ValidateFinishedInvoice(inv); err != nil {
		return nil, err
	}
	return normalize.InvoiceWithCurrency(inv, s.Cfg.DefaultCurrency), nil
}

// discountText is the caller's source text, falling back to the structured notes.
func discountText(source string, si *entity.StructuredInvoice) string {
	if strings.TrimSpace(source) != "" {
		return source
	}
	if si == nil {
		return ""
	}
	return si.Notes
}
