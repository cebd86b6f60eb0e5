package allocation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poscore/backend/internal/domain/ledger"
)

func TestWeightedAveragePlanBlendsCost(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	b1 := makeBatch(t, "5", "10.00", base)
	b2 := makeBatch(t, "10", "12.00", base.Add(time.Hour))

	// (5*10 + 10*12) / 15 = 170/15 = 11.3333
	plan, err := NewWeightedAveragePlanner().Plan(decimal.NewFromInt(8), []ledger.StockBatch{b1, b2})
	require.NoError(t, err)
	require.Len(t, plan, 2)

	want := decimal.RequireFromString("11.3333")
	for _, alloc := range plan {
		assert.True(t, alloc.UnitCost.Equal(want),
			"unit cost %s, want %s", alloc.UnitCost, want)
	}

	// Consumption order is still FIFO
	assert.Equal(t, b1.ID, plan[0].BatchID)
	assert.True(t, plan[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, b2.ID, plan[1].BatchID)
	assert.True(t, plan[1].Quantity.Equal(decimal.NewFromInt(3)))
}

func TestWeightedAverageCoversFullCandidateSet(t *testing.T) {
	base := time.Now()
	b1 := makeBatch(t, "5", "10.00", base)
	b2 := makeBatch(t, "10", "12.00", base.Add(time.Hour))

	// A required quantity the walk satisfies from the first batch alone
	// is still costed against the average of both.
	plan, err := NewWeightedAveragePlanner().Plan(decimal.NewFromInt(2), []ledger.StockBatch{b1, b2})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.True(t, plan[0].UnitCost.Equal(decimal.RequireFromString("11.3333")))
}

func TestWeightedAverageInsufficientStock(t *testing.T) {
	b := makeBatch(t, "5", "10.00", time.Now())

	_, err := NewWeightedAveragePlanner().Plan(decimal.NewFromInt(6), []ledger.StockBatch{b})
	require.Error(t, err)

	var insufficient *ledger.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.Equal(decimal.NewFromInt(5)))
}

func TestWeightedAverageSingleBatchIsOwnCost(t *testing.T) {
	b := makeBatch(t, "10", "3.25", time.Now())

	plan, err := NewWeightedAveragePlanner().Plan(decimal.NewFromInt(10), []ledger.StockBatch{b})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.True(t, plan[0].UnitCost.Equal(decimal.RequireFromString("3.25")))
}

func TestRegistryResolvesBuiltInPolicies(t *testing.T) {
	r := NewRegistry()

	fifo, err := r.Get(ledger.PolicyFIFO)
	require.NoError(t, err)
	assert.Equal(t, ledger.PolicyFIFO, fifo.Policy())

	avg, err := r.Get(ledger.PolicyWeightedAverage)
	require.NoError(t, err)
	assert.Equal(t, ledger.PolicyWeightedAverage, avg.Policy())

	_, err = r.Get(ledger.Policy("lifo"))
	assert.Error(t, err)
}
