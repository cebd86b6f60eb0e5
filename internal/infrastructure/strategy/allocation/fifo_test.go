package allocation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/shared"
)

func makeBatch(t *testing.T, qty, cost string, receivedAt time.Time) ledger.StockBatch {
	t.Helper()
	b, err := ledger.NewStockBatch(
		uuid.New(), uuid.New(),
		decimal.RequireFromString(qty), decimal.RequireFromString(cost),
		receivedAt, nil,
	)
	require.NoError(t, err)
	return *b
}

func TestFIFOPlanSpansBatchesOldestFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	b1 := makeBatch(t, "5", "10.00", base)
	b2 := makeBatch(t, "10", "12.00", base.Add(time.Hour))

	plan, err := NewFIFOPlanner().Plan(decimal.RequireFromString("8"), []ledger.StockBatch{b2, b1})
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Equal(t, b1.ID, plan[0].BatchID)
	assert.True(t, plan[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.True(t, plan[0].UnitCost.Equal(decimal.RequireFromString("10.00")))

	assert.Equal(t, b2.ID, plan[1].BatchID)
	assert.True(t, plan[1].Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, plan[1].UnitCost.Equal(decimal.RequireFromString("12.00")))
}

func TestFIFOPlanSingleBatch(t *testing.T) {
	b := makeBatch(t, "10", "7.50", time.Now())

	plan, err := NewFIFOPlanner().Plan(decimal.NewFromInt(4), []ledger.StockBatch{b})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.True(t, plan[0].Quantity.Equal(decimal.NewFromInt(4)))
	assert.True(t, plan[0].UnitCost.Equal(decimal.RequireFromString("7.50")))
}

func TestFIFOPlanInsufficientStock(t *testing.T) {
	base := time.Now()
	batches := []ledger.StockBatch{
		makeBatch(t, "5", "10.00", base),
		makeBatch(t, "10", "12.00", base.Add(time.Hour)),
	}

	plan, err := NewFIFOPlanner().Plan(decimal.NewFromInt(20), batches)
	require.Error(t, err)
	assert.Nil(t, plan)

	var insufficient *ledger.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Required.Equal(decimal.NewFromInt(20)))
	assert.True(t, insufficient.Available.Equal(decimal.NewFromInt(15)))
	assert.True(t, ledger.IsInsufficientStock(err))
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
}

func TestFIFOPlanSkipsConsumedBatches(t *testing.T) {
	base := time.Now()
	drained := makeBatch(t, "5", "10.00", base)
	require.NoError(t, drained.Deduct(decimal.NewFromInt(5)))
	fresh := makeBatch(t, "10", "12.00", base.Add(time.Hour))

	plan, err := NewFIFOPlanner().Plan(decimal.NewFromInt(3), []ledger.StockBatch{drained, fresh})
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, fresh.ID, plan[0].BatchID)
}

func TestFIFOPlanRejectsNonPositiveQuantity(t *testing.T) {
	b := makeBatch(t, "10", "1.00", time.Now())

	_, err := NewFIFOPlanner().Plan(decimal.Zero, []ledger.StockBatch{b})
	assert.Error(t, err)

	_, err = NewFIFOPlanner().Plan(decimal.NewFromInt(-1), []ledger.StockBatch{b})
	assert.Error(t, err)
}

func TestFIFOPlanDeterministicTieBreak(t *testing.T) {
	receivedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	a := makeBatch(t, "5", "10.00", receivedAt)
	b := makeBatch(t, "5", "11.00", receivedAt)

	first, err := NewFIFOPlanner().Plan(decimal.NewFromInt(7), []ledger.StockBatch{a, b})
	require.NoError(t, err)
	second, err := NewFIFOPlanner().Plan(decimal.NewFromInt(7), []ledger.StockBatch{b, a})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].BatchID, second[i].BatchID)
		assert.True(t, first[i].Quantity.Equal(second[i].Quantity))
		assert.True(t, first[i].UnitCost.Equal(second[i].UnitCost))
	}
}

func TestFIFOPlanDoesNotMutateInput(t *testing.T) {
	b := makeBatch(t, "10", "5.00", time.Now())
	batches := []ledger.StockBatch{b}

	_, err := NewFIFOPlanner().Plan(decimal.NewFromInt(6), batches)
	require.NoError(t, err)

	assert.True(t, batches[0].Quantity.Equal(decimal.NewFromInt(10)))
	assert.False(t, batches[0].Consumed)
}
