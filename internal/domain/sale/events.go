package sale

import (
	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/shared"
)

// Event types emitted by the sale aggregate
const (
	EventDocumentCommitted = "sale.document.committed"
	EventDocumentCancelled = "sale.document.cancelled"
)

// DocumentCommittedEvent is published after a document transaction commits.
// Listeners (print queueing, audit, cache invalidation) run out of band and
// never participate in the transaction's success or failure.
type DocumentCommittedEvent struct {
	shared.BaseDomainEvent
	Number    string            `json:"number"`
	DocType   numbering.DocType `json:"doc_type"`
	Total     decimal.Decimal   `json:"total"`
	LineCount int               `json:"line_count"`
}

// NewDocumentCommittedEvent creates a committed event for the document
func NewDocumentCommittedEvent(doc *Document) *DocumentCommittedEvent {
	return &DocumentCommittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventDocumentCommitted, "SaleDocument", doc.ID, doc.TenantID),
		Number:          doc.Number,
		DocType:         doc.DocType,
		Total:           doc.Total,
		LineCount:       len(doc.Lines),
	}
}

// DocumentCancelledEvent is published after a compensation commits.
type DocumentCancelledEvent struct {
	shared.BaseDomainEvent
	Number  string            `json:"number"`
	DocType numbering.DocType `json:"doc_type"`
	Reason  string            `json:"reason"`
}

// NewDocumentCancelledEvent creates a cancelled event for the document
func NewDocumentCancelledEvent(doc *Document) *DocumentCancelledEvent {
	return &DocumentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventDocumentCancelled, "SaleDocument", doc.ID, doc.TenantID),
		Number:          doc.Number,
		DocType:         doc.DocType,
		Reason:          doc.CancelReason,
	}
}
