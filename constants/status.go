package constants

// InvoiceStatus is the lifecycle status of a saved invoice.
type InvoiceStatus string

// Stable values (store these exact strings in DB).
const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusDeleted InvoiceStatus = "deleted" // soft delete; restore returns to the prior status
)

var allInvoiceStatuses = []InvoiceStatus{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusPaid,
	InvoiceStatusDeleted,
}

// ParseInvoiceStatus reports whether s names a known status.
func ParseInvoiceStatus(s string) (InvoiceStatus, bool) {
	for _, st := range allInvoiceStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// AuditStatus describes how the audit overlay finished.
type AuditStatus string

const (
	AuditStatusCompleted AuditStatus = "completed"
	AuditStatusSkipped   AuditStatus = "skipped"
	AuditStatusTimedOut  AuditStatus = "timed_out"
)

// SourceType records where the job notes came from.
type SourceType string

const (
	SourceTypeText   SourceType = "text"
	SourceTypeUpload SourceType = "upload"
	SourceTypeInbox  SourceType = "inbox"
)
