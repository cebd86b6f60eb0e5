package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/poscore/backend/internal/domain/sale"
	"github.com/poscore/backend/internal/domain/shared"
)

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Create persists a committed document together with its lines. A
// duplicate key on the (tenant, doc type, number) unique index means a
// concurrent writer claimed the same number; that is surfaced as
// ErrSequenceCollision so the coordinator can renumber and retry.
func (r *GormDocumentRepository) Create(ctx context.Context, doc *sale.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrSequenceCollision
		}
		return err
	}
	return nil
}

// FindByIDForTenant loads a document with its lines
func (r *GormDocumentRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*sale.Document, error) {
	var doc sale.Document
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// MarkCancelled persists the terminal state transition. The status guard
// in the predicate makes a lost race with another canceller visible as a
// conflict instead of a silent double-write.
func (r *GormDocumentRepository) MarkCancelled(ctx context.Context, doc *sale.Document) error {
	result := r.db.WithContext(ctx).
		Model(&sale.Document{}).
		Where("tenant_id = ? AND id = ? AND status = ?", doc.TenantID, doc.ID, sale.StatusCommitted).
		Updates(map[string]interface{}{
			"status":        doc.Status,
			"cancel_reason": doc.CancelReason,
			"cancelled_at":  doc.CancelledAt,
			"updated_at":    doc.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// HasSuccessor reports whether any document references this one
func (r *GormDocumentRepository) HasSuccessor(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sale.Document{}).
		Where("tenant_id = ? AND ref_document_id = ?", tenantID, id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ sale.DocumentRepository = (*GormDocumentRepository)(nil)
