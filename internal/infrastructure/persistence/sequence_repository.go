package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/poscore/backend/internal/domain/numbering"
)

// GormCounterRepository implements the durable side of sequence
// allocation on the sequence_counters table. The table is a dedicated
// monotonic counter, not a max() over business documents, so the floor
// stays correct even if document numbers are skipped.
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new GormCounterRepository
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

// CurrentValue returns the highest issued value for the key, or zero
func (r *GormCounterRepository) CurrentValue(ctx context.Context, tenantID uuid.UUID, docType numbering.DocType, periodKey string) (int64, error) {
	var counter numbering.SequenceCounter
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND doc_type = ? AND period_key = ?", tenantID, docType, periodKey).
		First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Value, nil
}

// Advance raises the durable floor to at least value. GREATEST in the
// conflict clause means concurrent writers can only ever raise the floor.
func (r *GormCounterRepository) Advance(ctx context.Context, tenantID uuid.UUID, docType numbering.DocType, periodKey string, value int64) error {
	counter := numbering.SequenceCounter{
		TenantID:  tenantID,
		DocType:   docType,
		PeriodKey: periodKey,
		Value:     value,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "doc_type"}, {Name: "period_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      gorm.Expr("GREATEST(sequence_counters.value, EXCLUDED.value)"),
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(&counter).Error
}

// NextValue atomically increments the durable counter and returns the
// new value; a fresh key starts at 1. The increment reads the stored
// value inside the conflict clause of a single statement, so concurrent
// callers serialize on the row and a floor raised by Advance in between
// can never be overwritten with a lower value.
func (r *GormCounterRepository) NextValue(ctx context.Context, tenantID uuid.UUID, docType numbering.DocType, periodKey string) (int64, error) {
	counter := numbering.SequenceCounter{
		TenantID:  tenantID,
		DocType:   docType,
		PeriodKey: periodKey,
		Value:     1,
	}
	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{{Name: "tenant_id"}, {Name: "doc_type"}, {Name: "period_key"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"value":      gorm.Expr("sequence_counters.value + 1"),
					"updated_at": gorm.Expr("NOW()"),
				}),
			},
			clause.Returning{Columns: []clause.Column{{Name: "value"}}},
		).
		Create(&counter).Error
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}

// Ensure GormCounterRepository implements CounterRepository
var _ numbering.CounterRepository = (*GormCounterRepository)(nil)
