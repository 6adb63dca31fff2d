// Package pricing detects unpriced labor and applies the caller's answer to
// the labor pricing follow-up.
package pricing

import (
	"fmt"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
)

// Mode is how the caller wants unpriced labor billed.
type Mode string

const (
	ModeHourly Mode = "hourly"
	ModeFlat   Mode = "flat"
)

// FollowUpMessage is shown when labor pricing is missing.
const FollowUpMessage = "Some labor items have no pricing. Bill them hourly (a rate plus hours per item) or as a flat amount split across them?"

// UnpricedTask describes one task waiting on pricing. The order of the list
// returned by FollowUpFor is the order ApplyPricing matches hours against.
type UnpricedTask struct {
	Description string   `json:"description"`
	Date        string   `json:"date,omitempty"`
	Hours       *float64 `json:"hours,omitempty"`
}

// FollowUp is the labor pricing question returned to the caller.
type FollowUp struct {
	Message string         `json:"message"`
	Options []Mode         `json:"options"`
	Tasks   []UnpricedTask `json:"tasks"`
}

// Choice is the caller's answer to a FollowUp.
type Choice struct {
	Mode Mode `json:"mode"`
	// Rate is the hourly rate for ModeHourly.
	Rate float64 `json:"rate,omitempty"`
	// LineHours holds hours per unpriced task, positionally.
	LineHours []float64 `json:"lineHours,omitempty"`
	// Amount is the total split across unpriced tasks for ModeFlat.
	Amount float64 `json:"amount,omitempty"`
}

// NeedsLaborPricingFollowUp reports whether any task is unpriced.
func NeedsLaborPricingFollowUp(si *entity.StructuredInvoice) bool {
	return len(unpriced(si)) > 0
}

// FollowUpFor describes the unpriced tasks of si.
func FollowUpFor(si *entity.StructuredInvoice) FollowUp {
	fu := FollowUp{
		Message: FollowUpMessage,
		Options: []Mode{ModeHourly, ModeFlat},
		Tasks:   []UnpricedTask{},
	}
	for _, ref := range unpriced(si) {
		t := si.Task(ref)
		ut := UnpricedTask{
			Description: t.Description,
			Date:        si.WorkSessions[ref.Session].Date,
		}
		if t.Hours != nil {
			h := *t.Hours
			ut.Hours = &h
		}
		fu.Tasks = append(fu.Tasks, ut)
	}
	return fu
}

// ApplyPricing returns a copy of si with every unpriced task priced per choice.
func ApplyPricing(si *entity.StructuredInvoice, choice Choice) (*entity.StructuredInvoice, error) {
	out := si.Clone()
	refs := unpriced(out)
	if len(refs) == 0 {
		return out, nil
	}

	switch choice.Mode {
	case ModeHourly:
		if choice.Rate <= 0 {
			return nil, common.NewValidationError("rate", choice.Rate, "hourly rate must be a positive number")
		}
		if len(choice.LineHours) != len(refs) {
			return nil, common.NewValidationError("lineHours", len(choice.LineHours), "provide hours for every labor line item")
		}
		for i, ref := range refs {
			h := choice.LineHours[i]
			if h < 0 {
				return nil, common.NewValidationError(fmt.Sprintf("lineHours[%d]", i), h, "must be zero or greater")
			}
			t := out.Task(ref)
			t.Hours = money.Float(h)
			t.Rate = money.Float(choice.Rate)
			t.Amount = money.Float(money.Mul(h, choice.Rate))
		}
	case ModeFlat:
		if choice.Amount <= 0 {
			return nil, common.NewValidationError("amount", choice.Amount, "flat amount must be a positive number")
		}
		shares := money.Split(choice.Amount, len(refs))
		for i, ref := range refs {
			t := out.Task(ref)
			t.Hours = nil
			t.Rate = nil
			t.Amount = money.Float(shares[i])
		}
	default:
		return nil, common.NewValidationError("mode", string(choice.Mode), "must be hourly or flat")
	}
	return out, nil
}

func unpriced(si *entity.StructuredInvoice) []entity.TaskRef {
	if si == nil {
		return nil
	}
	var refs []entity.TaskRef
	for _, ref := range si.Tasks() {
		if !si.Task(ref).Priced() {
			refs = append(refs, ref)
		}
	}
	return refs
}
