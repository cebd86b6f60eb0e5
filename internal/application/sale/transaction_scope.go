package sale

import (
	"context"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/sale"
)

// TransactionScope provides transactional access to the sale repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same database transaction and commit or roll
// back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all repositories within a
// transaction. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	// Batches returns the stock batch repository scoped to the current transaction
	Batches() ledger.StockBatchRepository
	// Allocations returns the allocation record repository scoped to the current transaction
	Allocations() ledger.AllocationRecordRepository
	// Documents returns the document repository scoped to the current transaction
	Documents() sale.DocumentRepository
	// Counters returns the durable sequence counter repository scoped to the current transaction
	Counters() numbering.CounterRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is
// not required.
type NoOpTransactionScope struct {
	batches     ledger.StockBatchRepository
	allocations ledger.AllocationRecordRepository
	documents   sale.DocumentRepository
	counters    numbering.CounterRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	batches ledger.StockBatchRepository,
	allocations ledger.AllocationRecordRepository,
	documents sale.DocumentRepository,
	counters numbering.CounterRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		batches:     batches,
		allocations: allocations,
		documents:   documents,
		counters:    counters,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Batches returns the stock batch repository
func (s *NoOpTransactionScope) Batches() ledger.StockBatchRepository { return s.batches }

// Allocations returns the allocation record repository
func (s *NoOpTransactionScope) Allocations() ledger.AllocationRecordRepository {
	return s.allocations
}

// Documents returns the document repository
func (s *NoOpTransactionScope) Documents() sale.DocumentRepository { return s.documents }

// Counters returns the durable sequence counter repository
func (s *NoOpTransactionScope) Counters() numbering.CounterRepository { return s.counters }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
