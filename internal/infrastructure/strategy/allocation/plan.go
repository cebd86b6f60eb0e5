package allocation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/ledger"
)

// costPrecision is the number of decimal places a computed unit cost is
// rounded to, matching the precision stored on batches.
const costPrecision = 4

// candidateBatches filters out batches with nothing left to give and
// orders the rest oldest first. Ties on receipt time break on batch ID so
// identical inputs always produce identical plans.
func candidateBatches(batches []ledger.StockBatch) []ledger.StockBatch {
	candidates := make([]ledger.StockBatch, 0, len(batches))
	for _, b := range batches {
		if b.HasStock() {
			candidates = append(candidates, b)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].ReceivedAt.Equal(candidates[j].ReceivedAt) {
			return candidates[i].ID.String() < candidates[j].ID.String()
		}
		return candidates[i].ReceivedAt.Before(candidates[j].ReceivedAt)
	})
	return candidates
}

// totalAvailable sums the remaining quantity across batches
func totalAvailable(batches []ledger.StockBatch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.Quantity)
	}
	return total
}

// shortfallError builds the no-partial-result failure for a plan
func shortfallError(required, available decimal.Decimal, batches []ledger.StockBatch) error {
	e := &ledger.InsufficientStockError{
		Required:  required,
		Available: available,
	}
	if len(batches) > 0 {
		e.ItemID = batches[0].ItemID
	}
	return e
}

// consume walks the ordered candidates oldest to newest, draining each
// batch fully before moving to the next. costOf decides the unit cost
// recorded per allocation. The caller has already verified sufficiency,
// so the walk always terminates with remaining at zero.
func consume(required decimal.Decimal, candidates []ledger.StockBatch, costOf func(ledger.StockBatch) decimal.Decimal) []ledger.Allocation {
	remaining := required
	plan := make([]ledger.Allocation, 0, len(candidates))
	for _, b := range candidates {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, b.Quantity)
		plan = append(plan, ledger.Allocation{
			BatchID:  b.ID,
			Quantity: take,
			UnitCost: costOf(b),
		})
		remaining = remaining.Sub(take)
	}
	return plan
}
