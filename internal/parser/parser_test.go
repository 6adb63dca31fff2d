package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm/llmtest"
	"github.com/joseph-ayodele/invoice-drafter/internal/money"
)

func TestParse_EmptyInputIsInputError(t *testing.T) {
	p := New(llmtest.New(), Config{}, nil)
	_, err := p.Parse(context.Background(), "   \n ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestParse_RecoversPricingFromSource(t *testing.T) {
	fake := llmtest.New("```json\n" + `{
		"customerName": "Dana",
		"workSessions": [{"date": "Mar 3", "tasks": [
			{"description": "Fixed faucet leak"},
			{"description": "Adjusted thermostat"}
		]}]
	}` + "\n```")

	source := "Mar 3 at Dana's.\nFixed faucet leak (2 hours @ $80/hr).\nAdjusted thermostat, 20 minutes at $80/hr."
	si, err := New(fake, Config{}, nil).Parse(context.Background(), source)
	require.NoError(t, err)

	tasks := si.WorkSessions[0].Tasks
	require.Len(t, tasks, 2)
	assert.Equal(t, 2.0, *tasks[0].Hours)
	assert.Equal(t, 80.0, *tasks[0].Rate)
	assert.Equal(t, 0.33, *tasks[1].Hours)
	assert.Equal(t, 80.0, *tasks[1].Rate)
	assert.Equal(t, "Dana", si.CustomerName)
}

func TestParse_ChunksMergeInOrder(t *testing.T) {
	fake := &llmtest.Scripted{}
	fake.Route = func(prompt string) (llmtest.Reply, bool) {
		for _, day := range []string{"Monday", "Tuesday", "Wednesday"} {
			if strings.Contains(prompt, day+" paragraph") {
				header := ""
				if day == "Tuesday" {
					header = `"customerName": "Lee", "invoiceNumber": "INV-9",`
				}
				if day == "Wednesday" {
					header = `"customerName": "Ignored",`
				}
				return llmtest.Reply{Text: fmt.Sprintf(`{%s "workSessions":[{"date":%q,"tasks":[{"description":"%s work","amount":10}]}], "materials":[{"description":"%s part","amount":1}], "notes":"%s note"}`,
					header, day, day, day, day)}, true
			}
		}
		return llmtest.Reply{}, false
	}

	para := func(day string) string {
		return day + " paragraph " + strings.Repeat("x", 40)
	}
	source := para("Monday") + "\n\n" + para("Tuesday") + "\n\n" + para("Wednesday")

	si, err := New(fake, Config{ChunkSize: 70, Concurrency: 3}, nil).Parse(context.Background(), source)
	require.NoError(t, err)

	assert.Len(t, fake.Prompts(), 3)
	require.Len(t, si.WorkSessions, 3)
	assert.Equal(t, "Monday", si.WorkSessions[0].Date)
	assert.Equal(t, "Tuesday", si.WorkSessions[1].Date)
	assert.Equal(t, "Wednesday", si.WorkSessions[2].Date)
	assert.Equal(t, "Tuesday part", si.Materials[1].Description)
	assert.Equal(t, "Lee", si.CustomerName)
	assert.Equal(t, "INV-9", si.InvoiceNumber)
	assert.Equal(t, "Monday note\n\nTuesday note\n\nWednesday note", si.Notes)
}

func TestParse_ModelOutputErrorIsFatal(t *testing.T) {
	fake := llmtest.New("I cannot help with that.", "still no json")
	_, err := New(fake, Config{}, nil).Parse(context.Background(), "Fixed sink")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrModelOutput))
}

func TestSplitChunks(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitChunks("short", 100))

	text := "aaaa\n\nbbbb\n\ncccc"
	assert.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, SplitChunks(text, 10))

	long := "line one is here\nline two is here"
	assert.Equal(t, []string{"line one is here", "line two is here"}, SplitChunks(long, 20))
}

func TestMerge_FirstHeaderWins(t *testing.T) {
	a := &entity.StructuredInvoice{IssueDate: "", Notes: "  "}
	b := &entity.StructuredInvoice{IssueDate: "2024-05-01", Notes: "b"}
	c := &entity.StructuredInvoice{IssueDate: "2024-06-01"}
	m := Merge([]*entity.StructuredInvoice{a, b, c})
	assert.Equal(t, "2024-05-01", m.IssueDate)
	assert.Equal(t, "b", m.Notes)
	assert.NotNil(t, m.WorkSessions)
}

func TestScanPricing(t *testing.T) {
	cases := []struct {
		text  string
		hours *float64
		rate  *float64
	}{
		{"Fixed faucet leak (2 hours @ $80/hr)", money.Float(2), money.Float(80)},
		{"20 minutes at $80/hr", money.Float(0.33), money.Float(80)},
		{"1 hour 30 mins", money.Float(1.5), nil},
		{"1.5 hrs, hourly rate of $95", money.Float(1.5), money.Float(95)},
		{"$80 an hour", nil, money.Float(80)},
		{"half an hour", money.Float(0.5), nil},
		{"2 hours then 3 hours", nil, nil},
		{"nothing stated", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := scanPricing(tc.text)
			assert.Equal(t, tc.hours, got.Hours)
			assert.Equal(t, tc.rate, got.Rate)
		})
	}
}

func TestRecoverTaskPricing_NeverOverwrites(t *testing.T) {
	si := &entity.StructuredInvoice{WorkSessions: []entity.WorkSession{{Tasks: []entity.Task{
		{Description: "Fixed faucet leak", Hours: money.Float(3)},
	}}}}
	out := RecoverTaskPricing(si, "Fixed faucet leak (2 hours @ $80/hr)")
	assert.Equal(t, 3.0, *out.WorkSessions[0].Tasks[0].Hours)
	assert.Equal(t, 80.0, *out.WorkSessions[0].Tasks[0].Rate)
	assert.Nil(t, si.WorkSessions[0].Tasks[0].Rate, "input untouched")
}

func TestRecoverTaskPricing_SharedSentenceHoursNotAttributed(t *testing.T) {
	si := &entity.StructuredInvoice{WorkSessions: []entity.WorkSession{{Tasks: []entity.Task{
		{Description: "Patched drywall"},
		{Description: "Painted trim"},
	}}}}
	out := RecoverTaskPricing(si, "Patched drywall and painted trim, 4 hours total at $60/hr")
	for _, task := range out.WorkSessions[0].Tasks {
		assert.Nil(t, task.Hours, task.Description)
		assert.Equal(t, 60.0, *task.Rate, task.Description)
	}
}
