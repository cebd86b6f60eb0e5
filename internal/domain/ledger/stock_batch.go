package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/shared"
)

// StockBatch is one discrete lot of inventory received at a point in time.
// It is the atomic unit of stock tracking: allocation decrements it,
// compensation increments it, and it is never deleted so the target of a
// reversal always exists.
type StockBatch struct {
	shared.BaseEntity
	TenantID        uuid.UUID
	ItemID          uuid.UUID
	InitialQuantity decimal.Decimal
	Quantity        decimal.Decimal // invariant: 0 <= Quantity <= InitialQuantity
	UnitCost        decimal.Decimal
	ReceivedAt      time.Time
	ExpiresAt       *time.Time
	Consumed        bool
}

// TableName returns the database table name for stock batches
func (StockBatch) TableName() string {
	return "stock_batches"
}

// NewStockBatch creates a batch from a purchase receipt line.
func NewStockBatch(
	tenantID, itemID uuid.UUID,
	quantity, unitCost decimal.Decimal,
	receivedAt time.Time,
	expiresAt *time.Time,
) (*StockBatch, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Unit cost cannot be negative")
	}
	return &StockBatch{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        tenantID,
		ItemID:          itemID,
		InitialQuantity: quantity,
		Quantity:        quantity,
		UnitCost:        unitCost,
		ReceivedAt:      receivedAt,
		ExpiresAt:       expiresAt,
		Consumed:        false,
	}, nil
}

// Deduct reduces the batch quantity. Unlike a best-effort deduction,
// requesting more than is available is an error: the caller plans
// allocations against a locked snapshot, so a shortfall here means the
// plan was wrong.
func (b *StockBatch) Deduct(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Deduction must be positive")
	}
	if quantity.GreaterThan(b.Quantity) {
		return &InsufficientStockError{
			ItemID:    b.ItemID,
			Required:  quantity,
			Available: b.Quantity,
		}
	}
	b.Quantity = b.Quantity.Sub(quantity)
	if b.Quantity.IsZero() {
		b.Consumed = true
	}
	b.Touch()
	return nil
}

// Restore puts previously deducted quantity back into the batch.
// The batch can never exceed its initial quantity.
func (b *StockBatch) Restore(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Restoration must be positive")
	}
	if b.Quantity.Add(quantity).GreaterThan(b.InitialQuantity) {
		return shared.NewDomainError("RESTORE_EXCEEDS_INITIAL", "Restoration would exceed the batch's initial quantity")
	}
	b.Quantity = b.Quantity.Add(quantity)
	if b.Consumed && b.Quantity.GreaterThan(decimal.Zero) {
		b.Consumed = false
	}
	b.Touch()
	return nil
}

// IsExpired returns true if the batch has expired
func (b *StockBatch) IsExpired() bool {
	if b.ExpiresAt == nil {
		return false
	}
	return b.ExpiresAt.Before(time.Now())
}

// HasStock returns true if the batch has available quantity
func (b *StockBatch) HasStock() bool {
	return b.Quantity.GreaterThan(decimal.Zero) && !b.Consumed
}

// TotalValue returns the value of the remaining quantity at batch cost
func (b *StockBatch) TotalValue() decimal.Decimal {
	return b.Quantity.Mul(b.UnitCost)
}
