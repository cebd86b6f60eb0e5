package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchDelta is a signed quantity mutation against one batch.
type BatchDelta struct {
	BatchID uuid.UUID
	Delta   decimal.Decimal
}

// StockBatchRepository is the authoritative store of stock batches.
//
// Concurrency contract: SnapshotForItems and ApplyDeltas are expected to
// run inside one transaction per coordinator attempt. The snapshot locks
// the returned rows for the duration of the transaction so concurrent
// allocations against the same item serialize instead of double-spending
// stock; batches of unrelated items are never locked.
type StockBatchRepository interface {
	// Create persists a new batch
	Create(ctx context.Context, batch *StockBatch) error
	// CreateAll persists a set of batches
	CreateAll(ctx context.Context, batches []*StockBatch) error
	// FindByID finds a batch by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockBatch, error)
	// SnapshotForItems returns a consistent point-in-time view of all
	// batches for the given items, grouped by item and ordered by
	// (received_at, id) ascending.
	SnapshotForItems(ctx context.Context, tenantID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID][]StockBatch, error)
	// ApplyDeltas applies all deltas or none. A negative delta that would
	// drive a batch below zero fails the whole call; a positive delta that
	// would exceed the batch's initial quantity fails likewise.
	ApplyDeltas(ctx context.Context, tenantID uuid.UUID, deltas []BatchDelta) error
}

// AllocationRecordRepository is the append-only store of the audit trail.
type AllocationRecordRepository interface {
	// CreateAll persists a set of allocation records
	CreateAll(ctx context.Context, records []*AllocationRecord) error
	// FindByDocument returns all records for a document, oldest first
	FindByDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]AllocationRecord, error)
}
