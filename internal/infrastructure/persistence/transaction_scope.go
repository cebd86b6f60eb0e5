package persistence

import (
	"context"

	"gorm.io/gorm"

	appsale "github.com/poscore/backend/internal/application/sale"
	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/sale"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appsale.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Batches returns the stock batch repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Batches() ledger.StockBatchRepository {
	return NewGormStockBatchRepository(r.tx)
}

// Allocations returns the allocation record repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Allocations() ledger.AllocationRecordRepository {
	return NewGormAllocationRecordRepository(r.tx)
}

// Documents returns the document repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Documents() sale.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

// Counters returns the durable sequence counter repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Counters() numbering.CounterRepository {
	return NewGormCounterRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appsale.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appsale.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
