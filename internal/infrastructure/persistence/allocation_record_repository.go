package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/poscore/backend/internal/domain/ledger"
)

// GormAllocationRecordRepository implements AllocationRecordRepository using GORM.
// Records are append-only; there is deliberately no update or delete.
type GormAllocationRecordRepository struct {
	db *gorm.DB
}

// NewGormAllocationRecordRepository creates a new GormAllocationRecordRepository
func NewGormAllocationRecordRepository(db *gorm.DB) *GormAllocationRecordRepository {
	return &GormAllocationRecordRepository{db: db}
}

// CreateAll persists a set of allocation records
func (r *GormAllocationRecordRepository) CreateAll(ctx context.Context, records []*ledger.AllocationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(records).Error
}

// FindByDocument returns all records for a document, oldest first
func (r *GormAllocationRecordRepository) FindByDocument(ctx context.Context, tenantID, documentID uuid.UUID) ([]ledger.AllocationRecord, error) {
	var records []ledger.AllocationRecord
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND document_id = ?", tenantID, documentID).
		Order("created_at ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Ensure GormAllocationRecordRepository implements AllocationRecordRepository
var _ ledger.AllocationRecordRepository = (*GormAllocationRecordRepository)(nil)
