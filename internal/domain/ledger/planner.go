package ledger

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/poscore/backend/internal/domain/shared"
)

// Policy selects how stock is drawn from batches and how it is costed.
type Policy string

const (
	// PolicyFIFO consumes oldest-received stock first at each batch's own cost.
	PolicyFIFO Policy = "fifo"
	// PolicyWeightedAverage consumes in FIFO order but costs every unit at
	// the blended average cost of all candidate batches.
	PolicyWeightedAverage Policy = "weighted_average"
)

// Allocation is one step of an allocation plan: draw Quantity units from
// BatchID, charged at UnitCost per unit.
type Allocation struct {
	BatchID  uuid.UUID
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// Planner computes a deterministic allocation plan for a required quantity
// against a snapshot of candidate batches. Planners are pure: they never
// touch storage, never mutate their inputs, and identical inputs always
// produce identical plans, which makes the coordinator's retry loop safe
// to re-run.
type Planner interface {
	// Policy returns the policy this planner implements
	Policy() Policy
	// Plan returns the allocations covering required quantity, or an
	// InsufficientStockError with no partial result.
	Plan(required decimal.Decimal, batches []StockBatch) ([]Allocation, error)
}

// InsufficientStockError reports that the candidate batches cannot cover
// the required quantity. It carries what the caller needs to produce an
// actionable message: which item, how much was asked, how much was there.
type InsufficientStockError struct {
	ItemID    uuid.UUID
	Required  decimal.Decimal
	Available decimal.Decimal
}

// Error implements the error interface
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: required %s, available %s",
		e.ItemID, e.Required.String(), e.Available.String())
}

// Unwrap allows errors.Is(err, shared.ErrInsufficientStock)
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}

// IsInsufficientStock reports whether err is an insufficient stock failure.
func IsInsufficientStock(err error) bool {
	return errors.Is(err, shared.ErrInsufficientStock)
}
