package sale

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/sale"
	"github.com/poscore/backend/internal/domain/shared"
)

// CompensationEngine reverses a committed document by replaying its
// allocation trail in reverse: every consumed quantity goes back to the
// exact batch it came from, and every received quantity is withdrawn from
// the batch it created. Batches are never deleted, so the target of a
// reversal always exists.
type CompensationEngine struct {
	scope     TransactionScope
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewCompensationEngine creates a compensation engine
func NewCompensationEngine(scope TransactionScope, publisher shared.EventPublisher, logger *zap.Logger) *CompensationEngine {
	return &CompensationEngine{
		scope:     scope,
		publisher: publisher,
		logger:    logger,
	}
}

// Compensate cancels a committed document and restores the ledger.
// Compensating twice is rejected with ErrAlreadyCompensated; a document
// that a later document references (a ticket already billed) is rejected
// with ErrDocumentSuperseded.
func (e *CompensationEngine) Compensate(ctx context.Context, tenantID, documentID uuid.UUID, reason string) error {
	var cancelled *sale.Document

	err := e.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.Documents().FindByIDForTenant(ctx, tenantID, documentID)
		if err != nil {
			return err
		}
		if doc.IsCancelled() {
			return shared.ErrAlreadyCompensated
		}

		superseded, err := repos.Documents().HasSuccessor(ctx, tenantID, documentID)
		if err != nil {
			return err
		}
		if superseded {
			return shared.ErrDocumentSuperseded
		}

		trail, err := repos.Allocations().FindByDocument(ctx, tenantID, documentID)
		if err != nil {
			return err
		}

		deltas, restorations := invertTrail(tenantID, doc.ID, trail)
		if err := repos.Batches().ApplyDeltas(ctx, tenantID, deltas); err != nil {
			return err
		}
		if err := doc.Cancel(reason); err != nil {
			return err
		}
		if err := repos.Documents().MarkCancelled(ctx, doc); err != nil {
			return err
		}
		if err := repos.Allocations().CreateAll(ctx, restorations); err != nil {
			return err
		}
		cancelled = doc
		return nil
	})
	if err != nil {
		return err
	}

	e.notifyCancelled(ctx, cancelled)
	return nil
}

// invertTrail builds the exact inverse deltas for an allocation trail
// plus the restoration records that supersede it. Consumptions are
// credited back, receipts are withdrawn; a withdrawal of stock that was
// meanwhile consumed fails the transaction through the ledger's bounds
// check.
func invertTrail(tenantID, documentID uuid.UUID, trail []ledger.AllocationRecord) ([]ledger.BatchDelta, []*ledger.AllocationRecord) {
	deltas := make([]ledger.BatchDelta, 0, len(trail))
	restorations := make([]*ledger.AllocationRecord, 0, len(trail))

	for _, record := range trail {
		if record.Kind == ledger.KindRestoration {
			continue
		}
		delta := record.Quantity
		if record.Kind == ledger.KindReceipt {
			delta = delta.Neg()
		}
		deltas = append(deltas, ledger.BatchDelta{BatchID: record.BatchID, Delta: delta})
		restorations = append(restorations, ledger.NewAllocationRecord(
			tenantID, documentID, record.LineID, record.ItemID, record.BatchID,
			ledger.KindRestoration, record.Quantity, record.UnitCost,
		))
	}
	return deltas, restorations
}

// notifyCancelled hands the cancelled document to out-of-band listeners;
// their failure never unwinds the committed compensation.
func (e *CompensationEngine) notifyCancelled(ctx context.Context, doc *sale.Document) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, sale.NewDocumentCancelledEvent(doc)); err != nil {
		e.logger.Error("failed to publish cancelled event",
			zap.String("number", doc.Number),
			zap.Error(err),
		)
	}
}
