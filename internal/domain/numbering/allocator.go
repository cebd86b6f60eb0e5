package numbering

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DocType identifies the class of document a sequence belongs to.
// Each type carries its own independent counter per tenant and period.
type DocType string

const (
	DocTypeBill     DocType = "BILL"
	DocTypeKOT      DocType = "KOT"
	DocTypePurchase DocType = "PUR"
)

// Allocator issues strictly increasing sequence values per
// (tenant, document type, period). Issued values are never reused,
// even across process restarts or cache eviction.
type Allocator interface {
	// Next returns the next sequence value for the given key.
	Next(ctx context.Context, tenantID uuid.UUID, docType DocType, period Period) (int64, error)
}

// SequenceCounter is the durable numbering floor for one
// (tenant, document type, period). It is advanced on every issued
// number so that reconciliation after cache eviction is exact.
type SequenceCounter struct {
	TenantID  uuid.UUID `gorm:"primaryKey"`
	DocType   DocType   `gorm:"primaryKey"`
	PeriodKey string    `gorm:"primaryKey"`
	Value     int64
	UpdatedAt time.Time
}

// TableName returns the database table name for sequence counters
func (SequenceCounter) TableName() string {
	return "sequence_counters"
}

// CounterRepository is the durable side of sequence allocation.
type CounterRepository interface {
	// CurrentValue returns the highest issued value for the key,
	// or zero if no value has been issued yet.
	CurrentValue(ctx context.Context, tenantID uuid.UUID, docType DocType, periodKey string) (int64, error)
	// Advance raises the durable floor to at least value.
	// Lower values are ignored so concurrent writers can never lower the floor.
	Advance(ctx context.Context, tenantID uuid.UUID, docType DocType, periodKey string, value int64) error
	// NextValue atomically increments the durable counter and returns
	// the new value; a fresh key starts at 1. This is the slow fallback
	// path used when the cache is unavailable. The increment must be a
	// single atomic operation and must never return a value at or below
	// the stored floor.
	NextValue(ctx context.Context, tenantID uuid.UUID, docType DocType, periodKey string) (int64, error)
}
