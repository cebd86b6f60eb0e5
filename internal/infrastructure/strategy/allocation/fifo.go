package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/shared"
)

// FIFOPlanner implements first-in-first-out allocation: oldest-received
// stock is consumed first and every allocation is costed at the
// originating batch's own unit cost.
type FIFOPlanner struct{}

// NewFIFOPlanner creates a new FIFO planner
func NewFIFOPlanner() *FIFOPlanner {
	return &FIFOPlanner{}
}

// Policy returns the policy this planner implements
func (p *FIFOPlanner) Policy() ledger.Policy {
	return ledger.PolicyFIFO
}

// Plan computes a FIFO allocation covering required quantity, or fails
// with InsufficientStock and no partial result.
func (p *FIFOPlanner) Plan(required decimal.Decimal, batches []ledger.StockBatch) ([]ledger.Allocation, error) {
	if required.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Required quantity must be positive")
	}

	candidates := candidateBatches(batches)
	available := totalAvailable(candidates)
	if available.LessThan(required) {
		return nil, shortfallError(required, available, batches)
	}

	return consume(required, candidates, func(b ledger.StockBatch) decimal.Decimal {
		return b.UnitCost
	}), nil
}

// Ensure FIFOPlanner implements Planner
var _ ledger.Planner = (*FIFOPlanner)(nil)
