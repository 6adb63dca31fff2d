package pipeline

import (
	"fmt"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/lineitems"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
	"github.com/joseph-ayodele/invoice-drafter/internal/normalize"
)

// ApplyDiscount returns inv with the discount replaced. Zero removes it.
func (s *Service) ApplyDiscount(inv *entity.FinishedInvoice, amount float64, reason string) (*entity.FinishedInvoice, error) {
	if err := entity.ValidateFinishedInvoice(inv); err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, validationErr("amount", amount, "discount must be zero or greater")
	}
	out := inv.Clone()
	if amount == 0 {
		out.DiscountAmount = nil
		out.DiscountReason = ""
	} else {
		out.DiscountAmount = money.Float(money.Round(amount))
		out.DiscountReason = reason
	}
	return s.normalize(out), nil
}

// EditLineItems replaces the line items of inv. Lines with both quantity and
// unit price get their amount recomputed; gated lines stay unresolved.
func (s *Service) EditLineItems(inv *entity.FinishedInvoice, lines []entity.LineItem) (*entity.FinishedInvoice, error) {
	if inv == nil {
		return nil, validationErr("invoice", nil, "is required")
	}
	out := inv.Clone()
	out.LineItems = make([]entity.LineItem, len(lines))
	for i, li := range lines {
		if li.Type == "" {
			li.Type = constants.LineTypeOther
		} else {
			lt, ok := constants.Canonicalize(string(li.Type))
			if !ok {
				return nil, validationErr(fmt.Sprintf("lineItems[%d].type", i), li.Type, "is not a known line type")
			}
			li.Type = lt
		}
		switch {
		case li.PendingDecision:
			li.Amount = nil
		case li.Quantity != nil && li.UnitPrice != nil:
			li.Amount = money.Float(money.Mul(*li.Quantity, *li.UnitPrice))
		}
		out.LineItems[i] = li
	}
	if err := entity.ValidateFinishedInvoice(out); err != nil {
		return nil, err
	}
	s.Logger.Info("pipeline.edit.lines", "lines", len(lines))
	return s.normalize(out), nil
}

// ResolveDecision settles the gated line lineID and drops it from the open
// decisions. A decision with no lines left is closed.
func (s *Service) ResolveDecision(inv *entity.FinishedInvoice, decisions []entity.Decision, lineID string, bill bool) (*entity.FinishedInvoice, []entity.Decision, error) {
	if err := entity.ValidateFinishedInvoice(inv); err != nil {
		return nil, nil, err
	}
	idx := inv.LineIndex(lineID)
	if idx < 0 {
		return nil, nil, common.NewNotFoundError("line item " + lineID + " not found")
	}
	if !inv.LineItems[idx].PendingDecision {
		return nil, nil, validationErr("lineId", lineID, "line item is not waiting on a decision")
	}

	out := inv.Clone()
	out.LineItems[idx] = lineitems.Resolve(out.LineItems[idx], bill)

	open := []entity.Decision{}
	for _, d := range decisions {
		ids := make([]string, 0, len(d.LineIDs))
		touched := false
		for _, id := range d.LineIDs {
			if id == lineID {
				touched = true
				continue
			}
			ids = append(ids, id)
		}
		if touched && len(ids) == 0 {
			continue
		}
		d.LineIDs = ids
		open = append(open, d)
	}
	s.Logger.Info("pipeline.decision.resolved", "line_id", lineID, "bill", bill, "open", len(open))
	return s.normalize(out), open, nil
}

func (s *Service) normalize(inv *entity.FinishedInvoice) *entity.FinishedInvoice {
	return normalize.InvoiceWithCurrency(inv, s.Cfg.DefaultCurrency)
}

func validationErr(field string, value any, msg string) error {
	return common.NewValidationError(field, value, msg)
}
