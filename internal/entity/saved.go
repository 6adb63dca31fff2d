package entity

import (
	"time"

	"github.com/joseph-ayodele/invoice-drafter/constants"
)

// SavedInvoice is a persisted finished invoice with its lifecycle metadata.
type SavedInvoice struct {
	InvoiceID      string                  `json:"invoiceId"`
	CreatedAt      time.Time               `json:"createdAt"`
	UpdatedAt      time.Time               `json:"updatedAt"`
	Status         constants.InvoiceStatus `json:"status"`
	PreviousStatus constants.InvoiceStatus `json:"previousStatus,omitempty"`
	SourceType     constants.SourceType    `json:"sourceType"`
	SourceName     string                  `json:"sourceName,omitempty"`
	Invoice        *FinishedInvoice        `json:"invoice"`
}
