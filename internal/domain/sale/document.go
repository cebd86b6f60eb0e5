package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/shared"
)

// Status is the lifecycle state of a document.
// Draft -> Committed -> Cancelled; Cancelled is terminal.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusCommitted Status = "committed"
	StatusCancelled Status = "cancelled"
)

// Document is a committed transaction: a bill, a kitchen ticket, or a
// purchase receipt. It owns its lines, each of which owns zero or more
// allocation records, and carries exactly one assigned sequence number.
// Totals are denormalized so reads never re-derive sums from the
// allocation trail.
type Document struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	UserID        uuid.UUID
	DocType       numbering.DocType
	Number        string
	SequenceValue int64
	PeriodKey     string
	Status        Status
	Policy        ledger.Policy
	PaymentMethod string
	Subtotal      decimal.Decimal
	TaxTotal      decimal.Decimal
	Total         decimal.Decimal
	// RefDocumentID links a document to the one it was produced from,
	// e.g. a bill settled from a kitchen ticket. A referenced document
	// can no longer be cancelled.
	RefDocumentID *uuid.UUID
	CancelReason  string
	CancelledAt   *time.Time
	Lines         []Line `gorm:"foreignKey:DocumentID"`
}

// TableName returns the database table name for documents
func (Document) TableName() string {
	return "sale_documents"
}

// Line is one item position on a document.
type Line struct {
	shared.BaseEntity
	DocumentID uuid.UUID
	TenantID   uuid.UUID
	ItemID     uuid.UUID
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	TaxRate    decimal.Decimal
	Subtotal   decimal.Decimal
	TaxAmount  decimal.Decimal
	LineTotal  decimal.Decimal
	// TrackStock marks lines that consume ledger stock. Service charges
	// and open-priced lines are billed but never allocated.
	TrackStock bool
}

// TableName returns the database table name for document lines
func (Line) TableName() string {
	return "sale_document_lines"
}

// NewDocument creates a draft document with no lines.
func NewDocument(tenantID, userID uuid.UUID, docType numbering.DocType, policy ledger.Policy, paymentMethod string) *Document {
	return &Document{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		UserID:        userID,
		DocType:       docType,
		Status:        StatusDraft,
		Policy:        policy,
		PaymentMethod: paymentMethod,
		Subtotal:      decimal.Zero,
		TaxTotal:      decimal.Zero,
		Total:         decimal.Zero,
	}
}

// AddLine appends a line and folds its amounts into the document totals.
// Tax and totals are computed line by line and summed, never derived by
// dividing a grand total.
func (d *Document) AddLine(itemID uuid.UUID, quantity, unitPrice, taxRate decimal.Decimal, trackStock bool) (*Line, error) {
	if d.Status != StatusDraft {
		return nil, shared.ErrInvalidState
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if taxRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}

	subtotal := quantity.Mul(unitPrice)
	taxAmount := subtotal.Mul(taxRate)
	line := Line{
		BaseEntity: shared.NewBaseEntity(),
		DocumentID: d.ID,
		TenantID:   d.TenantID,
		ItemID:     itemID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TaxRate:    taxRate,
		Subtotal:   subtotal,
		TaxAmount:  taxAmount,
		LineTotal:  subtotal.Add(taxAmount),
		TrackStock: trackStock,
	}
	d.Lines = append(d.Lines, line)

	d.Subtotal = d.Subtotal.Add(line.Subtotal)
	d.TaxTotal = d.TaxTotal.Add(line.TaxAmount)
	d.Total = d.Total.Add(line.LineTotal)
	d.Touch()
	return &d.Lines[len(d.Lines)-1], nil
}

// TrackedLines returns the lines that consume ledger stock.
func (d *Document) TrackedLines() []Line {
	tracked := make([]Line, 0, len(d.Lines))
	for _, l := range d.Lines {
		if l.TrackStock {
			tracked = append(tracked, l)
		}
	}
	return tracked
}

// Commit assigns the document its number and moves it to committed.
func (d *Document) Commit(number string, sequenceValue int64, periodKey string) error {
	if d.Status != StatusDraft {
		return shared.ErrInvalidState
	}
	if len(d.Lines) == 0 {
		return shared.NewDomainError("EMPTY_DOCUMENT", "Document has no lines")
	}
	d.Number = number
	d.SequenceValue = sequenceValue
	d.PeriodKey = periodKey
	d.Status = StatusCommitted
	d.Touch()
	return nil
}

// Cancel moves a committed document to the terminal cancelled state.
// Cancelling twice is rejected so stock is never double-credited.
func (d *Document) Cancel(reason string) error {
	switch d.Status {
	case StatusCancelled:
		return shared.ErrAlreadyCompensated
	case StatusDraft:
		return shared.ErrInvalidState
	}
	now := time.Now()
	d.Status = StatusCancelled
	d.CancelReason = reason
	d.CancelledAt = &now
	d.UpdatedAt = now
	return nil
}

// IsCancelled returns true once the document reached its terminal state
func (d *Document) IsCancelled() bool {
	return d.Status == StatusCancelled
}
