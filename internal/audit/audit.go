// Package audit runs the advisory review of a drafted invoice: assumptions,
// open billing decisions and content the draft did not capture.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/invoice-drafter/constants"
	"github.com/joseph-ayodele/invoice-drafter/internal/common"
	"github.com/joseph-ayodele/invoice-drafter/internal/entity"
	"github.com/joseph-ayodele/invoice-drafter/internal/lineitems"
	"github.com/joseph-ayodele/invoice-drafter/internal/llm"
	"github.com/joseph-ayodele/invoice-drafter/internal/normalize"
)

// Mode selects how much of the audit runs.
type Mode string

const (
	// ModeFast skips the completion call; heuristic decisions still run.
	ModeFast Mode = "fast"
	ModeFull Mode = "full"
)

// DefaultTimeout bounds the completion call of a full audit.
const DefaultTimeout = 4500 * time.Millisecond

// Report is the advisory output of an audit.
type Report struct {
	Assumptions   []string              `json:"assumptions"`
	Decisions     []entity.Decision     `json:"openDecisions"`
	UnparsedLines []string              `json:"unparsedLines"`
	Status        constants.AuditStatus `json:"auditStatus"`
}

// Overlay runs audits.
type Overlay struct {
	completer llm.Completer
	timeout   time.Duration
	log       *slog.Logger
}

func New(completer llm.Completer, timeout time.Duration, logger *slog.Logger) *Overlay {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{completer: completer, timeout: timeout, log: logger}
}

type modelDecision struct {
	Kind          string `json:"kind"`
	Prompt        string `json:"prompt"`
	SourceSnippet string `json:"sourceSnippet"`
	Subject       string `json:"subject"`
}

type modelReport struct {
	Assumptions   []string        `json:"assumptions"`
	Decisions     []modelDecision `json:"decisions"`
	UnparsedLines []string        `json:"unparsedLines"`
}

// Run audits inv against the source notes and returns the invoice with every
// line under an open decision gated, plus the report. It never fails: a
// completion error or timeout degrades to the heuristic findings.
func (o *Overlay) Run(ctx context.Context, mode Mode, source string, si *entity.StructuredInvoice, inv *entity.FinishedInvoice) (*entity.FinishedInvoice, Report) {
	start := time.Now()
	found := scan(source, inv.LineItems)
	report := Report{
		Assumptions:   found.Assumptions,
		UnparsedLines: found.Unparsed,
		Status:        constants.AuditStatusSkipped,
	}
	candidates := found.Decisions

	if mode != ModeFast && o.completer != nil {
		mr, err := o.runModel(ctx, source, si)
		switch {
		case err == nil:
			report.Status = constants.AuditStatusCompleted
			report.Assumptions = append(report.Assumptions, mr.Assumptions...)
			report.UnparsedLines = append(report.UnparsedLines, mr.UnparsedLines...)
			for _, d := range mr.Decisions {
				if c, ok := o.acceptModelDecision(d, source, inv); ok {
					candidates = append(candidates, c)
				}
			}
		case errors.Is(err, common.ErrTimeout):
			report.Status = constants.AuditStatusTimedOut
			o.log.Warn("audit.timed_out", "timeout_ms", o.timeout.Milliseconds())
		default:
			o.log.Warn("audit.model_error", "error", err)
		}
	}

	gated := inv.Clone()
	decisions, unmatched := buildDecisions(candidates, gated)
	report.Decisions = decisions
	for _, c := range unmatched {
		report.Assumptions = append(report.Assumptions, JudgmentPrefix+firstNonEmpty(c.Snippet, c.Subject))
	}
	for _, d := range report.Decisions {
		for _, id := range d.LineIDs {
			if i := gated.LineIndex(id); i >= 0 {
				gated.LineItems[i] = lineitems.Gate(gated.LineItems[i])
			}
		}
	}
	report.Assumptions = dedupe(report.Assumptions)
	report.UnparsedLines = dedupe(report.UnparsedLines)

	o.log.Info("audit.done",
		"mode", string(mode),
		"status", string(report.Status),
		"decisions", len(report.Decisions),
		"assumptions", len(report.Assumptions),
		"unparsed", len(report.UnparsedLines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return normalize.InvoiceWithCurrency(gated, inv.Currency), report
}

func (o *Overlay) runModel(ctx context.Context, source string, si *entity.StructuredInvoice) (modelReport, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	structured, err := json.Marshal(si)
	if err != nil {
		return modelReport{}, fmt.Errorf("encode structured invoice: %w", err)
	}
	mr, err := llm.RunJSONTask(ctx, o.completer, llm.Task[modelReport]{
		Name:   "audit",
		Prompt: llm.BuildAuditPrompt(source, structured),
		Schema: llm.AuditSchema(),
		Decode: decodeModelReport,
	}, o.log)
	if err != nil && !errors.Is(err, common.ErrTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return modelReport{}, common.NewTimeoutError("audit", ctx.Err())
	}
	return mr, err
}

func decodeModelReport(m map[string]any) (modelReport, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return modelReport{}, err
	}
	var mr modelReport
	if err := json.Unmarshal(b, &mr); err != nil {
		return modelReport{}, err
	}
	return mr, nil
}

// acceptModelDecision keeps billing decisions that point at a labor line or
// quote the notes. Anything else the model raised is dropped.
func (o *Overlay) acceptModelDecision(d modelDecision, source string, inv *entity.FinishedInvoice) (candidate, bool) {
	if d.Kind != "" && !strings.EqualFold(d.Kind, entity.DecisionKindBilling) {
		return candidate{}, false
	}
	subject := strings.TrimSpace(d.Subject)
	if subject == "" {
		subject = strings.TrimSpace(d.SourceSnippet)
	}
	c := candidate{Subject: subject, Snippet: strings.TrimSpace(d.SourceSnippet), prompt: strings.TrimSpace(d.Prompt)}
	if len(matchLines(inv.LineItems, subject)) > 0 {
		return c, true
	}
	if c.Snippet != "" && strings.Contains(strings.ToLower(source), strings.ToLower(c.Snippet)) {
		return c, true
	}
	o.log.Debug("audit.decision_dropped", "prompt", d.Prompt)
	return candidate{}, false
}

// buildDecisions dedupes candidates by the lines they gate and assigns stable
// ids. Candidates that match no labor line are returned separately.
func buildDecisions(candidates []candidate, inv *entity.FinishedInvoice) ([]entity.Decision, []candidate) {
	decisions := []entity.Decision{}
	var unmatched []candidate
	seen := map[string]struct{}{}
	for _, c := range candidates {
		ids := matchLines(inv.LineItems, c.Subject)
		if len(ids) == 0 {
			unmatched = append(unmatched, c)
			continue
		}
		key := strings.Join(ids, ",")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		prompt := c.prompt
		if prompt == "" {
			prompt = fmt.Sprintf("Should %q be billed?", c.Subject)
		}
		decisions = append(decisions, entity.Decision{
			ID:            fmt.Sprintf("decision_%d", len(decisions)+1),
			Kind:          entity.DecisionKindBilling,
			Prompt:        prompt,
			SourceSnippet: c.Snippet,
			Subject:       c.Subject,
			LineIDs:       ids,
		})
	}
	return decisions, unmatched
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func dedupe(items []string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, s := range items {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok || s == "" {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
