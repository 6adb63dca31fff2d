package pipeline

import (
	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/pricing"
)

// Stage is where a draft stands in parsed -> labor_pricing_needed ->
// discount_follow_up -> ready.
type Stage string

const (
	StageParsed             Stage = "parsed"
	StageLaborPricingNeeded Stage = "labor_pricing_needed"
	StageDiscountFollowUp   Stage = "discount_follow_up"
	StageReady              Stage = "ready"
)

// FollowUpType names the question a paused draft is waiting on.
type FollowUpType string

const (
	FollowUpLaborPricing FollowUpType = "labor_pricing"
	FollowUpDiscount     FollowUpType = "discount"
)

// DiscountFollowUpMessage is shown when the notes mention a discount without an amount.
const DiscountFollowUpMessage = "The notes mention a discount but no amount. How much should it be? Answer 0 for no discount."

// FollowUp is the question returned with a paused draft.
type FollowUp struct {
	Type    FollowUpType           `json:"type"`
	Message string                 `json:"message"`
	Options []pricing.Mode         `json:"options,omitempty"`
	Tasks   []pricing.UnpricedTask `json:"tasks,omitempty"`
	Reason  string                 `json:"reason,omitempty"`
	Snippet string                 `json:"snippet,omitempty"`
}

// Result is the pipeline JSON contract.
type Result struct {
	Stage             Stage                     `json:"stage"`
	NeedsFollowUp     bool                      `json:"needsFollowUp"`
	FollowUp          *FollowUp                 `json:"followUp,omitempty"`
	StructuredInvoice *entity.StructuredInvoice `json:"structuredInvoice"`
	Invoice           *entity.FinishedInvoice   `json:"invoice,omitempty"`
	OpenDecisions     []entity.Decision         `json:"openDecisions"`
	Assumptions       []string                  `json:"assumptions"`
	UnparsedLines     []string                  `json:"unparsedLines"`
	AuditStatus       constants.AuditStatus     `json:"auditStatus,omitempty"`
}

func newResult(stage Stage, si *entity.StructuredInvoice) *Result {
	return &Result{
		Stage:             stage,
		StructuredInvoice: si,
		OpenDecisions:     []entity.Decision{},
		Assumptions:       []string{},
		UnparsedLines:     []string{},
	}
}
