package allocation

import (
	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/shared"
)

// WeightedAveragePlanner consumes stock in the same oldest-first order as
// FIFO but costs every allocation at the blended average cost of the full
// candidate set at plan time.
type WeightedAveragePlanner struct{}

// NewWeightedAveragePlanner creates a new weighted average planner
func NewWeightedAveragePlanner() *WeightedAveragePlanner {
	return &WeightedAveragePlanner{}
}

// Policy returns the policy this planner implements
func (p *WeightedAveragePlanner) Policy() ledger.Policy {
	return ledger.PolicyWeightedAverage
}

// Plan computes a weighted-average allocation covering required quantity,
// or fails with InsufficientStock and no partial result.
func (p *WeightedAveragePlanner) Plan(required decimal.Decimal, batches []ledger.StockBatch) ([]ledger.Allocation, error) {
	if required.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Required quantity must be positive")
	}

	candidates := candidateBatches(batches)
	available := totalAvailable(candidates)
	if available.LessThan(required) {
		return nil, shortfallError(required, available, batches)
	}

	// Average over the full candidate set, not just the batches the walk
	// ends up touching.
	totalValue := decimal.Zero
	for _, b := range candidates {
		totalValue = totalValue.Add(b.Quantity.Mul(b.UnitCost))
	}
	averageCost := totalValue.Div(available).Round(costPrecision)

	return consume(required, candidates, func(ledger.StockBatch) decimal.Decimal {
		return averageCost
	}), nil
}

// Ensure WeightedAveragePlanner implements Planner
var _ ledger.Planner = (*WeightedAveragePlanner)(nil)
