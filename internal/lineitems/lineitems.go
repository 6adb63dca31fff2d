// Package lineitems derives priced invoice lines from a structured invoice.
package lineitems

import (
	"fmt"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
)

// BuildLaborLineItem prices a single task. The first rule that applies wins.
func BuildLaborLineItem(task entity.Task, sessionDate string) entity.LineItem {
	li := entity.LineItem{
		Type:              constants.LineTypeLabor,
		Description:       task.Description,
		SourceSessionDate: sessionDate,
	}

	hours := positive(task.Hours)
	rate := positive(task.Rate)

	var q, p, a float64
	switch {
	case task.Hours != nil && task.Rate != nil:
		q, p = *task.Hours, *task.Rate
		if task.Amount != nil {
			a = *task.Amount
		} else {
			a = money.Mul(q, p)
		}
	case task.Amount != nil && hours:
		q = *task.Hours
		p = money.Div(*task.Amount, q)
		a = *task.Amount
	case task.Amount != nil && rate:
		p = *task.Rate
		q = money.Div(*task.Amount, p)
		a = *task.Amount
	case task.Amount != nil:
		q, p, a = 1, *task.Amount, *task.Amount
	case task.Hours != nil:
		q, p, a = *task.Hours, 0, 0
	case task.Rate != nil:
		q, p, a = 1, *task.Rate, *task.Rate
	default:
		q, p, a = 1, 0, 0
	}

	li.Quantity = money.Float(q)
	li.UnitPrice = money.Float(money.Round(p))
	li.Amount = money.Float(money.Round(a))
	return li
}

// BuildMaterialLineItem prices a material.
func BuildMaterialLineItem(m entity.Material) entity.LineItem {
	q := 1.0
	if positive(m.Quantity) {
		q = *m.Quantity
	}

	var p float64
	switch {
	case m.UnitCost != nil:
		p = *m.UnitCost
	case m.Amount != nil:
		p = money.Div(*m.Amount, q)
	}

	var a float64
	if m.Amount != nil {
		a = *m.Amount
	} else {
		a = money.Mul(q, p)
	}

	return entity.LineItem{
		Type:        constants.LineTypeMaterial,
		Description: m.Description,
		Quantity:    money.Float(q),
		UnitPrice:   money.Float(money.Round(p)),
		Amount:      money.Float(money.Round(a)),
	}
}

// Build emits labor lines in session order, then materials. Line ids are
// positional so later stages can address them.
func Build(si *entity.StructuredInvoice) []entity.LineItem {
	var lines []entity.LineItem
	for _, sess := range si.WorkSessions {
		for _, t := range sess.Tasks {
			lines = append(lines, BuildLaborLineItem(t, sess.Date))
		}
	}
	for _, m := range si.Materials {
		lines = append(lines, BuildMaterialLineItem(m))
	}
	for i := range lines {
		lines[i].ID = fmt.Sprintf("line_%d", i+1)
	}
	return lines
}

// Gate marks a labor line as waiting on a billing decision: quantity and unit
// price are kept, the amount is left unresolved.
func Gate(li entity.LineItem) entity.LineItem {
	li.Amount = nil
	li.PendingDecision = true
	return li
}

// Resolve settles a gated line. Billing restores quantity times unit price;
// not billing zeroes the line.
func Resolve(li entity.LineItem, bill bool) entity.LineItem {
	li.PendingDecision = false
	if !bill {
		li.Amount = money.Float(0)
		return li
	}
	q, p := 1.0, 0.0
	if li.Quantity != nil {
		q = *li.Quantity
	}
	if li.UnitPrice != nil {
		p = *li.UnitPrice
	}
	li.Amount = money.Float(money.Mul(q, p))
	return li
}

func positive(v *float64) bool {
	return v != nil && *v > 0
}
