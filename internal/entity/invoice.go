package entity

import (
	"github.com/joseph-ayodele/invoice-drafter/constants"
)

// Task is one unit of labor inside a work session.
type Task struct {
	Description string   `json:"description"`
	Hours       *float64 `json:"hours,omitempty"`
	Rate        *float64 `json:"rate,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
}

// Priced reports whether the task carries enough numbers to bill it.
func (t Task) Priced() bool {
	if t.Amount != nil {
		return true
	}
	return t.Hours != nil && *t.Hours > 0 && t.Rate != nil && *t.Rate > 0
}

// WorkSession groups tasks under an optional calendar label.
type WorkSession struct {
	Date  string `json:"date,omitempty"`
	Tasks []Task `json:"tasks"`
}

// Material is a billable part or supply.
type Material struct {
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitCost    *float64 `json:"unitCost,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
}

// StructuredInvoice is the intermediate, not-yet-priced model parsed from notes.
type StructuredInvoice struct {
	CustomerName       string        `json:"customerName,omitempty"`
	InvoiceNumber      string        `json:"invoiceNumber,omitempty"`
	IssueDate          string        `json:"issueDate,omitempty"`
	ServicePeriodStart string        `json:"servicePeriodStart,omitempty"`
	ServicePeriodEnd   string        `json:"servicePeriodEnd,omitempty"`
	WorkSessions       []WorkSession `json:"workSessions"`
	Materials          []Material    `json:"materials"`
	Notes              string        `json:"notes,omitempty"`
}

// TaskRef addresses a task by session and task index.
type TaskRef struct {
	Session int
	Task    int
}

// Tasks returns every task reference in session order.
func (si *StructuredInvoice) Tasks() []TaskRef {
	var refs []TaskRef
	for s, sess := range si.WorkSessions {
		for t := range sess.Tasks {
			refs = append(refs, TaskRef{Session: s, Task: t})
		}
	}
	return refs
}

// Task returns the task at ref.
func (si *StructuredInvoice) Task(ref TaskRef) *Task {
	return &si.WorkSessions[ref.Session].Tasks[ref.Task]
}

// Clone returns a deep copy; pipeline stages never mutate their input.
func (si *StructuredInvoice) Clone() *StructuredInvoice {
	if si == nil {
		return nil
	}
	out := *si
	out.WorkSessions = make([]WorkSession, len(si.WorkSessions))
	for i, sess := range si.WorkSessions {
		tasks := make([]Task, len(sess.Tasks))
		for j, t := range sess.Tasks {
			tasks[j] = Task{
				Description: t.Description,
				Hours:       clonePtr(t.Hours),
				Rate:        clonePtr(t.Rate),
				Amount:      clonePtr(t.Amount),
			}
		}
		out.WorkSessions[i] = WorkSession{Date: sess.Date, Tasks: tasks}
	}
	out.Materials = make([]Material, len(si.Materials))
	for i, m := range si.Materials {
		out.Materials[i] = Material{
			Description: m.Description,
			Quantity:    clonePtr(m.Quantity),
			UnitCost:    clonePtr(m.UnitCost),
			Amount:      clonePtr(m.Amount),
		}
	}
	return &out
}

// LineItem is one priced row of a finished invoice. A nil Amount on a line with
// PendingDecision set means "not decided yet", which is different from zero.
type LineItem struct {
	ID                string             `json:"id"`
	Type              constants.LineType `json:"type"`
	Description       string             `json:"description"`
	Quantity          *float64           `json:"quantity,omitempty"`
	UnitPrice         *float64           `json:"unitPrice,omitempty"`
	Amount            *float64           `json:"amount,omitempty"`
	SourceSessionDate string             `json:"sourceSessionDate,omitempty"`
	PendingDecision   bool               `json:"pendingDecision,omitempty"`
}

// FinishedInvoice is the priced, normalized invoice.
type FinishedInvoice struct {
	InvoiceNumber      string     `json:"invoiceNumber"`
	IssueDate          string     `json:"issueDate,omitempty"`
	ServicePeriodStart string     `json:"servicePeriodStart,omitempty"`
	ServicePeriodEnd   string     `json:"servicePeriodEnd,omitempty"`
	CustomerName       string     `json:"customerName,omitempty"`
	Currency           string     `json:"currency"`
	LineItems          []LineItem `json:"lineItems"`
	Notes              string     `json:"notes,omitempty"`
	Subtotal           float64    `json:"subtotal"`
	Total              float64    `json:"total"`
	BalanceDue         float64    `json:"balanceDue"`
	DiscountAmount     *float64   `json:"discountAmount,omitempty"`
	DiscountReason     string     `json:"discountReason,omitempty"`
}

// Clone returns a deep copy.
func (inv *FinishedInvoice) Clone() *FinishedInvoice {
	if inv == nil {
		return nil
	}
	out := *inv
	out.LineItems = make([]LineItem, len(inv.LineItems))
	for i, li := range inv.LineItems {
		li.Quantity = clonePtr(li.Quantity)
		li.UnitPrice = clonePtr(li.UnitPrice)
		li.Amount = clonePtr(li.Amount)
		out.LineItems[i] = li
	}
	out.DiscountAmount = clonePtr(inv.DiscountAmount)
	return &out
}

// LineIndex returns the index of the line with id, or -1.
func (inv *FinishedInvoice) LineIndex(id string) int {
	for i, li := range inv.LineItems {
		if li.ID == id {
			return i
		}
	}
	return -1
}

// Decision is an open billing ambiguity that leaves line amounts unresolved.
type Decision struct {
	ID            string   `json:"id"`
	Kind          string   `json:"kind"`
	Prompt        string   `json:"prompt"`
	SourceSnippet string   `json:"sourceSnippet"`
	Subject       string   `json:"subject,omitempty"`
	LineIDs       []string `json:"lineIds,omitempty"`
}

// DecisionKindBilling is the only decision kind raised today.
const DecisionKindBilling = "billing"

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
