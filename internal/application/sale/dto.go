package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/shared"
)

// SaleLineInput is one requested item position on a sale.
type SaleLineInput struct {
	ItemID    uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	// TrackStock marks lines that consume ledger stock; service charges
	// are billed without allocation.
	TrackStock bool
}

// CreateSaleInput carries everything needed to commit a sale or a
// kitchen ticket. Tenant identity is an explicit parameter on every
// call, never ambient state.
type CreateSaleInput struct {
	TenantID      uuid.UUID
	UserID        uuid.UUID
	DocType       numbering.DocType
	Policy        ledger.Policy
	PaymentMethod string
	// RefDocumentID links the new document to the one it settles,
	// e.g. a bill produced from a kitchen ticket.
	RefDocumentID *uuid.UUID
	Lines         []SaleLineInput
}

// Validate checks the input before any work is attempted
func (in *CreateSaleInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if in.DocType != numbering.DocTypeBill && in.DocType != numbering.DocTypeKOT {
		return shared.NewDomainError("INVALID_DOC_TYPE", "Sale document type must be BILL or KOT")
	}
	if len(in.Lines) == 0 {
		return shared.NewDomainError("EMPTY_DOCUMENT", "Sale requires at least one line")
	}
	for _, line := range in.Lines {
		if line.ItemID == uuid.Nil {
			return shared.NewDomainError("INVALID_ITEM", "Line item ID is required")
		}
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
		}
	}
	return nil
}

// PurchaseLineInput is one received lot on a purchase.
type PurchaseLineInput struct {
	ItemID    uuid.UUID
	Quantity  decimal.Decimal
	UnitCost  decimal.Decimal
	ExpiresAt *time.Time
}

// ReceivePurchaseInput carries a purchase receipt: each line becomes a
// new stock batch.
type ReceivePurchaseInput struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Lines    []PurchaseLineInput
}

// Validate checks the input before any work is attempted
func (in *ReceivePurchaseInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return shared.NewDomainError("INVALID_TENANT", "Tenant ID is required")
	}
	if len(in.Lines) == 0 {
		return shared.NewDomainError("EMPTY_DOCUMENT", "Purchase requires at least one line")
	}
	for _, line := range in.Lines {
		if line.ItemID == uuid.Nil {
			return shared.NewDomainError("INVALID_ITEM", "Line item ID is required")
		}
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
		}
		if line.UnitCost.IsNegative() {
			return shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
		}
	}
	return nil
}
