package sale

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/sale"
)

// ReceivePurchase commits a purchase receipt: the document is numbered,
// one stock batch is created per line, and the receipt trail is written,
// all in one atomic unit with the same retry semantics as a sale.
// The returned batches are the lots now available for allocation.
func (c *Coordinator) ReceivePurchase(ctx context.Context, input ReceivePurchaseInput) (*sale.Document, []*ledger.StockBatch, error) {
	if err := input.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		committed *sale.Document
		created   []*ledger.StockBatch
	)
	err := c.withRetry(ctx, "receive_purchase", func() error {
		doc, batches, err := c.attemptPurchase(ctx, input)
		if err != nil {
			return err
		}
		committed = doc
		created = batches
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	c.notifyCommitted(ctx, committed)
	return committed, created, nil
}

func (c *Coordinator) attemptPurchase(ctx context.Context, input ReceivePurchaseInput) (*sale.Document, []*ledger.StockBatch, error) {
	now := c.now()
	period := c.periodOf(now)
	seq, err := c.sequences.Next(ctx, input.TenantID, numbering.DocTypePurchase, period)
	if err != nil {
		return nil, nil, err
	}
	number := numbering.Format(numbering.DocTypePurchase, period, seq, c.cfg.PadWidth)

	doc := sale.NewDocument(input.TenantID, input.UserID, numbering.DocTypePurchase, ledger.PolicyFIFO, "")
	batches := make([]*ledger.StockBatch, 0, len(input.Lines))
	records := make([]*ledger.AllocationRecord, 0, len(input.Lines))

	for _, lineInput := range input.Lines {
		line, err := doc.AddLine(lineInput.ItemID, lineInput.Quantity, lineInput.UnitCost, decimal.Zero, true)
		if err != nil {
			return nil, nil, err
		}
		batch, err := ledger.NewStockBatch(input.TenantID, lineInput.ItemID, lineInput.Quantity, lineInput.UnitCost, now, lineInput.ExpiresAt)
		if err != nil {
			return nil, nil, err
		}
		batches = append(batches, batch)
		records = append(records, ledger.NewAllocationRecord(
			input.TenantID, doc.ID, line.ID, lineInput.ItemID, batch.ID,
			ledger.KindReceipt, lineInput.Quantity, lineInput.UnitCost,
		))
	}
	if err := doc.Commit(number, seq, period.Key); err != nil {
		return nil, nil, err
	}

	err = c.inWriteWindow(ctx, func(txCtx context.Context) error {
		return c.scope.Execute(txCtx, func(repos TransactionalRepositories) error {
			if err := repos.Batches().CreateAll(txCtx, batches); err != nil {
				return err
			}
			if err := repos.Documents().Create(txCtx, doc); err != nil {
				return err
			}
			if err := repos.Allocations().CreateAll(txCtx, records); err != nil {
				return err
			}
			return repos.Counters().Advance(txCtx, input.TenantID, numbering.DocTypePurchase, period.Key, seq)
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return doc, batches, nil
}
