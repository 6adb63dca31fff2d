// Package normalize recomputes derived invoice fields so every finished
// invoice leaving the pipeline is internally consistent.
package normalize

import (
	"fmt"
	"math"
	"strings"

	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
)

// Invoice returns a normalized copy of inv. The input is never modified and
// Invoice(Invoice(x)) equals Invoice(x).
func Invoice(inv *entity.FinishedInvoice) *entity.FinishedInvoice {
	return InvoiceWithCurrency(inv, entity.DefaultCurrency)
}

// InvoiceWithCurrency is Invoice with a caller-chosen default currency.
func InvoiceWithCurrency(inv *entity.FinishedInvoice, defaultCurrency string) *entity.FinishedInvoice {
	out := inv.Clone()
	if out == nil {
		return nil
	}

	amounts := make([]float64, 0, len(out.LineItems))
	for i := range out.LineItems {
		li := &out.LineItems[i]
		if strings.TrimSpace(li.ID) == "" {
			li.ID = fmt.Sprintf("line_%d", i+1)
		}
		li.Amount = lineAmount(li)
		if li.Amount != nil {
			amounts = append(amounts, *li.Amount)
		}
	}

	out.Subtotal = money.Sum(amounts...)
	discount := 0.0
	if out.DiscountAmount != nil {
		discount = money.Round(math.Max(0, *out.DiscountAmount))
		out.DiscountAmount = money.Float(discount)
	}
	out.Total = money.Round(math.Max(0, out.Subtotal-discount))
	out.BalanceDue = out.Total

	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	if out.Currency == "" {
		out.Currency = strings.ToUpper(defaultCurrency)
		if out.Currency == "" {
			out.Currency = entity.DefaultCurrency
		}
	}
	return out
}

// lineAmount keeps a gated line's amount absent and derives the rest.
func lineAmount(li *entity.LineItem) *float64 {
	if li.PendingDecision && li.Amount == nil {
		return nil
	}
	if li.Amount != nil {
		return money.RoundPtr(li.Amount)
	}
	if li.Quantity != nil && li.UnitPrice != nil {
		return money.Float(money.Mul(*li.Quantity, *li.UnitPrice))
	}
	return money.Float(0)
}
