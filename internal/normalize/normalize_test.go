package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
)

func sample() *entity.FinishedInvoice {
	return &entity.FinishedInvoice{
		InvoiceNumber: "INV-7",
		LineItems: []entity.LineItem{
			{Type: constants.LineTypeLabor, Description: "Install", Quantity: money.Float(0.33), UnitPrice: money.Float(80)},
			{ID: "custom", Type: constants.LineTypeMaterial, Description: "Pipe", Amount: money.Float(12.345)},
			{Type: constants.LineTypeLabor, Description: "Maybe bill", Quantity: money.Float(1), UnitPrice: money.Float(50), PendingDecision: true},
			{Type: constants.LineTypeOther, Description: "Nothing known"},
		},
		DiscountAmount: money.Float(5.004),
	}
}

func TestInvoice_DerivesAmountsAndTotals(t *testing.T) {
	in := sample()
	out := Invoice(in)

	require.Len(t, out.LineItems, 4)
	assert.Equal(t, "line_1", out.LineItems[0].ID)
	assert.Equal(t, "custom", out.LineItems[1].ID)
	assert.Equal(t, 26.40, *out.LineItems[0].Amount)
	assert.Equal(t, 12.35, *out.LineItems[1].Amount)
	assert.Nil(t, out.LineItems[2].Amount, "gated line stays unresolved")
	assert.Equal(t, 0.0, *out.LineItems[3].Amount)

	assert.Equal(t, 38.75, out.Subtotal)
	assert.Equal(t, 5.0, *out.DiscountAmount)
	assert.Equal(t, 33.75, out.Total)
	assert.Equal(t, out.Total, out.BalanceDue)
	assert.Equal(t, "USD", out.Currency)

	assert.Empty(t, in.LineItems[0].ID, "input untouched")
	assert.Nil(t, in.LineItems[0].Amount)
}

func TestInvoice_Idempotent(t *testing.T) {
	once := Invoice(sample())
	twice := Invoice(once)
	assert.Equal(t, once, twice)
}

func TestInvoice_TotalNeverNegative(t *testing.T) {
	inv := &entity.FinishedInvoice{
		LineItems:      []entity.LineItem{{Description: "x", Amount: money.Float(10)}},
		DiscountAmount: money.Float(25),
		Currency:       "eur",
	}
	out := Invoice(inv)
	assert.Equal(t, 0.0, out.Total)
	assert.Equal(t, 0.0, out.BalanceDue)
	assert.Equal(t, "EUR", out.Currency)
}

func TestInvoiceWithCurrency_Default(t *testing.T) {
	inv := &entity.FinishedInvoice{LineItems: []entity.LineItem{{Description: "x"}}}
	assert.Equal(t, "CAD", InvoiceWithCurrency(inv, "cad").Currency)
}
