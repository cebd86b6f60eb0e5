package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/shared"
)

// RecordKind classifies an allocation record in the audit trail.
type RecordKind string

const (
	// KindConsumption records stock drawn from a batch by a sale line.
	KindConsumption RecordKind = "consumption"
	// KindReceipt records stock delivered into a batch by a purchase line.
	KindReceipt RecordKind = "receipt"
	// KindRestoration records a compensating reversal of an earlier record.
	KindRestoration RecordKind = "restoration"
)

// AllocationRecord is the immutable proof of which batch supplied (or
// received) how much stock for which document line, and at what cost.
// Records are created atomically with their document and never mutated;
// a cancellation supersedes them with restoration records.
type AllocationRecord struct {
	shared.BaseEntity
	TenantID   uuid.UUID
	DocumentID uuid.UUID
	LineID     uuid.UUID
	ItemID     uuid.UUID
	BatchID    uuid.UUID
	Kind       RecordKind
	Quantity   decimal.Decimal
	// UnitCost is the cost the consuming line was charged per unit.
	// Under weighted-average costing this is the blended average, not the
	// originating batch's raw cost.
	UnitCost decimal.Decimal
}

// TableName returns the database table name for allocation records
func (AllocationRecord) TableName() string {
	return "allocation_records"
}

// NewAllocationRecord creates a record linking a document line to a batch.
func NewAllocationRecord(
	tenantID, documentID, lineID, itemID, batchID uuid.UUID,
	kind RecordKind,
	quantity, unitCost decimal.Decimal,
) *AllocationRecord {
	return &AllocationRecord{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		DocumentID: documentID,
		LineID:     lineID,
		ItemID:     itemID,
		BatchID:    batchID,
		Kind:       kind,
		Quantity:   quantity,
		UnitCost:   unitCost,
	}
}

// TotalCost returns quantity times unit cost for this record
func (r *AllocationRecord) TotalCost() decimal.Decimal {
	return r.Quantity.Mul(r.UnitCost)
}
