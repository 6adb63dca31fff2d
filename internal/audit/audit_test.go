package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/lineitems"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm/llmtest"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
	"github.com/joseph-ayodele/invoice-drafter/internal/normalize"
)

func draft(tasks ...entity.Task) (*entity.StructuredInvoice, *entity.FinishedInvoice) {
	si := &entity.StructuredInvoice{
		WorkSessions: []entity.WorkSession{{Date: "Mon", Tasks: tasks}},
		Materials:    []entity.Material{{Description: "Pipe fittings", Amount: money.Float(12)}},
	}
	inv := normalize.Invoice(&entity.FinishedInvoice{InvoiceNumber: "INV-1", LineItems: lineitems.Build(si)})
	return si, inv
}

func TestRun_HedgeWithRateStillGates(t *testing.T) {
	si, inv := draft(
		entity.Task{Description: "Replaced garbage disposal", Hours: money.Float(2), Rate: money.Float(80)},
		entity.Task{Description: "Install sink", Amount: money.Float(100)},
	)
	source := "Replaced garbage disposal at $80/hr for 2 hours, not sure if I should bill for it. Install sink $100. Bill to Acme Corp."

	out, report := New(nil, 0, nil).Run(context.Background(), ModeFast, source, si, inv)

	assert.Equal(t, constants.AuditStatusSkipped, report.Status)
	require.Len(t, report.Decisions, 1)
	d := report.Decisions[0]
	assert.Equal(t, "decision_1", d.ID)
	assert.Equal(t, entity.DecisionKindBilling, d.Kind)
	assert.Equal(t, []string{"line_1"}, d.LineIDs)
	assert.Equal(t, "Replaced garbage disposal", d.Subject)

	assert.Nil(t, out.LineItems[0].Amount)
	assert.True(t, out.LineItems[0].PendingDecision)
	assert.Equal(t, 2.0, *out.LineItems[0].Quantity)
	assert.Equal(t, 80.0, *out.LineItems[0].UnitPrice)
	assert.Equal(t, 112.0, out.Subtotal)
	assert.Equal(t, 272.0, inv.Subtotal, "input untouched")
}

func TestRun_TimeOnlyHedgeInheritsPreviousSentence(t *testing.T) {
	si, inv := draft(
		entity.Task{Description: "Install sink", Amount: money.Float(100)},
		entity.Task{Description: "Drive to supplier for parts", Hours: money.Float(0.75)},
	)
	source := "Install sink. Drove to supplier for parts. 45 mins, not sure if I should bill."

	out, report := New(nil, 0, nil).Run(context.Background(), ModeFast, source, si, inv)

	require.Len(t, report.Decisions, 1)
	assert.Equal(t, []string{"line_2"}, report.Decisions[0].LineIDs)
	assert.Contains(t, report.Decisions[0].SourceSnippet, "45 mins")
	assert.Nil(t, out.LineItems[1].Amount)
	assert.Equal(t, 100.0, *out.LineItems[0].Amount)
}

func TestRun_TaxHedgeIsAssumptionOnly(t *testing.T) {
	si, inv := draft(entity.Task{Description: "Install sink", Amount: money.Float(100)})
	source := "Install sink. I sometimes add tax, do what makes sense. Remind me to order the filter."

	out, report := New(nil, 0, nil).Run(context.Background(), ModeFast, source, si, inv)

	assert.Empty(t, report.Decisions)
	assert.Equal(t, []string{TaxAssumption}, report.Assumptions)
	assert.Equal(t, []string{"Remind me to order the filter"}, report.UnparsedLines)
	assert.Equal(t, inv.Total, out.Total)
}

func TestRun_FullAuditMergesModelFindings(t *testing.T) {
	si, inv := draft(
		entity.Task{Description: "Install sink", Amount: money.Float(100)},
		entity.Task{Description: "Haul away old vanity", Amount: money.Float(40)},
	)
	fake := llmtest.New(`{
		"assumptions": ["Materials billed at cost."],
		"decisions": [
			{"kind": "billing", "prompt": "Bill the haul-away?", "sourceSnippet": "haul away, your call", "subject": "Haul away old vanity"},
			{"kind": "billing", "prompt": "Invented", "sourceSnippet": "never said", "subject": "Rebuilt roof"}
		],
		"unparsedLines": ["call supplier Tuesday"]
	}`)
	source := "Install sink. Haul away old vanity - haul away, your call."

	out, report := New(fake, time.Second, nil).Run(context.Background(), ModeFull, source, si, inv)

	assert.Equal(t, constants.AuditStatusCompleted, report.Status)
	require.Len(t, report.Decisions, 1, "heuristic and model decisions on the same line collapse")
	assert.Equal(t, []string{"line_2"}, report.Decisions[0].LineIDs)
	assert.Contains(t, report.Assumptions, "Materials billed at cost.")
	assert.Equal(t, []string{"call supplier Tuesday"}, report.UnparsedLines)
	assert.Nil(t, out.LineItems[1].Amount)
}

func TestRun_TimeoutFallsBackToHeuristics(t *testing.T) {
	si, inv := draft(entity.Task{Description: "Patch drywall", Amount: money.Float(90)})
	fake := llmtest.New().Push(llmtest.Reply{Text: `{}`, Delay: 2 * time.Second})
	source := "Patch drywall, maybe bill it."

	out, report := New(fake, 20*time.Millisecond, nil).Run(context.Background(), ModeFull, source, si, inv)

	assert.Equal(t, constants.AuditStatusTimedOut, report.Status)
	require.Len(t, report.Decisions, 1)
	assert.Nil(t, out.LineItems[0].Amount)
}

func TestRun_ModelErrorIsSkipped(t *testing.T) {
	si, inv := draft(entity.Task{Description: "Patch drywall", Amount: money.Float(90)})
	fake := llmtest.New().Push(llmtest.Reply{Err: errors.New("503")})

	_, report := New(fake, time.Second, nil).Run(context.Background(), ModeFull, "Patch drywall.", si, inv)
	assert.Equal(t, constants.AuditStatusSkipped, report.Status)
	assert.Empty(t, report.Decisions)
}

func TestRun_FastModeMakesNoCalls(t *testing.T) {
	si, inv := draft(entity.Task{Description: "Patch drywall", Amount: money.Float(90)})
	fake := llmtest.New(`{}`)
	_, report := New(fake, time.Second, nil).Run(context.Background(), ModeFast, "Patch drywall.", si, inv)
	assert.Equal(t, constants.AuditStatusSkipped, report.Status)
	assert.Empty(t, fake.Prompts())
}

func TestRun_ModelDecisionWithoutLineIsAssumption(t *testing.T) {
	si, inv := draft(entity.Task{Description: "Install sink", Amount: money.Float(100)})
	fake := llmtest.New(`{
		"assumptions": [],
		"decisions": [{"kind": "billing", "prompt": "Charge for the layout?", "sourceSnippet": "layout is up to you", "subject": "Invoice layout"}],
		"unparsedLines": []
	}`)
	source := "Install sink. The layout is up to you."

	out, report := New(fake, time.Second, nil).Run(context.Background(), ModeFull, source, si, inv)

	assert.Equal(t, constants.AuditStatusCompleted, report.Status)
	assert.Empty(t, report.Decisions)
	assert.Contains(t, report.Assumptions, JudgmentPrefix+"layout is up to you")
	assert.Equal(t, 100.0, *out.LineItems[0].Amount)
}
