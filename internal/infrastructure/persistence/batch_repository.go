package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/shared"
)

// GormStockBatchRepository implements StockBatchRepository using GORM
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// Create persists a new batch
func (r *GormStockBatchRepository) Create(ctx context.Context, batch *ledger.StockBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}

// CreateAll persists a set of batches
func (r *GormStockBatchRepository) CreateAll(ctx context.Context, batches []*ledger.StockBatch) error {
	if len(batches) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(batches).Error
}

// FindByID finds a batch by ID within a tenant
func (r *GormStockBatchRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.StockBatch, error) {
	var batch ledger.StockBatch
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

// SnapshotForItems returns a consistent, row-locked view of all batches
// for the given items. The SELECT ... FOR UPDATE holds until the enclosing
// transaction ends, which serializes concurrent allocations per item while
// leaving other items' batches untouched.
func (r *GormStockBatchRepository) SnapshotForItems(ctx context.Context, tenantID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID][]ledger.StockBatch, error) {
	snapshot := make(map[uuid.UUID][]ledger.StockBatch, len(itemIDs))
	if len(itemIDs) == 0 {
		return snapshot, nil
	}

	var batches []ledger.StockBatch
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND item_id IN ?", tenantID, itemIDs).
		Order("received_at ASC, id ASC").
		Find(&batches).Error; err != nil {
		return nil, translateLockError(err)
	}

	for _, b := range batches {
		snapshot[b.ItemID] = append(snapshot[b.ItemID], b)
	}
	return snapshot, nil
}

// ApplyDeltas applies all signed quantity deltas or none. The quantity
// bounds are enforced in the UPDATE predicate itself, so a stale plan can
// never push a batch negative or past its initial quantity.
func (r *GormStockBatchRepository) ApplyDeltas(ctx context.Context, tenantID uuid.UUID, deltas []ledger.BatchDelta) error {
	now := time.Now()
	for _, d := range deltas {
		if d.Delta.IsZero() {
			continue
		}

		query := r.db.WithContext(ctx).
			Model(&ledger.StockBatch{}).
			Where("tenant_id = ? AND id = ?", tenantID, d.BatchID)
		if d.Delta.IsNegative() {
			query = query.Where("quantity + ? >= 0", d.Delta)
		} else {
			query = query.Where("quantity + ? <= initial_quantity", d.Delta)
		}

		result := query.Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", d.Delta),
			"consumed":   gorm.Expr("quantity + ? = 0", d.Delta),
			"updated_at": now,
		})
		if result.Error != nil {
			return translateLockError(result.Error)
		}
		if result.RowsAffected == 0 {
			// Batch missing or bounds violated; the transaction rolls
			// back, so earlier deltas in the slice are undone with it.
			return shared.ErrConcurrencyConflict
		}
	}
	return nil
}

// translateLockError maps a cancelled lock wait to the retryable
// ledger lock timeout error.
func translateLockError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return shared.ErrLedgerLockTimeout
	}
	return err
}

// Ensure GormStockBatchRepository implements StockBatchRepository
var _ ledger.StockBatchRepository = (*GormStockBatchRepository)(nil)
