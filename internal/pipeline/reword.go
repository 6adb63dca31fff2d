package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm"
)

type rewordedInvoice struct {
	LineItems []llm.RewordLine `json:"lineItems"`
	Notes     string           `json:"notes"`
}

// RewordLine rewrites one line description. Nothing else changes.
func (s *Service) RewordLine(ctx context.Context, inv *entity.FinishedInvoice, lineID, instruction string) (*entity.FinishedInvoice, error) {
	if err := entity.ValidateFinishedInvoice(inv); err != nil {
		return nil, err
	}
	idx := inv.LineIndex(lineID)
	if idx < 0 {
		return nil, common.NewNotFoundError("line item " + lineID + " not found")
	}

	desc, err := llm.RunJSONTask(ctx, s.Completer, llm.Task[string]{
		Name:   "reword_line",
		Prompt: llm.BuildRewordLinePrompt(inv.LineItems[idx].Description, instruction),
		Schema: llm.RewordLineSchema(),
		Decode: func(m map[string]any) (string, error) {
			d, _ := m["description"].(string)
			if strings.TrimSpace(d) == "" {
				return "", fmt.Errorf("empty description")
			}
			return strings.TrimSpace(d), nil
		},
	}, s.Logger)
	if err != nil {
		return nil, err
	}

	out := inv.Clone()
	out.LineItems[idx].Description = desc
	return s.normalize(out), nil
}

// RewordInvoice rewrites every line description and the notes. Ids the model
// does not return keep their wording; numbers never change.
func (s *Service) RewordInvoice(ctx context.Context, inv *entity.FinishedInvoice, instruction string) (*entity.FinishedInvoice, error) {
	if err := entity.ValidateFinishedInvoice(inv); err != nil {
		return nil, err
	}
	lines := make([]llm.RewordLine, len(inv.LineItems))
	for i, li := range inv.LineItems {
		lines[i] = llm.RewordLine{ID: li.ID, Description: li.Description}
	}

	rw, err := llm.RunJSONTask(ctx, s.Completer, llm.Task[rewordedInvoice]{
		Name:   "reword_invoice",
		Prompt: llm.BuildRewordInvoicePrompt(lines, inv.Notes, instruction),
		Schema: llm.RewordInvoiceSchema(),
		Decode: func(m map[string]any) (rewordedInvoice, error) {
			var out rewordedInvoice
			b, err := json.Marshal(m)
			if err != nil {
				return out, err
			}
			err = json.Unmarshal(b, &out)
			return out, err
		},
	}, s.Logger)
	if err != nil {
		return nil, err
	}

	out := inv.Clone()
	for _, l := range rw.LineItems {
		if i := out.LineIndex(l.ID); i >= 0 && strings.TrimSpace(l.Description) != "" {
			out.LineItems[i].Description = strings.TrimSpace(l.Description)
		}
	}
	if n := strings.TrimSpace(rw.Notes); n != "" {
		out.Notes = n
	}
	return s.normalize(out), nil
}
