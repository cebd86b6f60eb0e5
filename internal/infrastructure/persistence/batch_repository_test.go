package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/shared"
)

// newMockDB opens a GORM connection over sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return db, mock
}

func batchRows(batches ...ledger.StockBatch) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "item_id", "initial_quantity", "quantity",
		"unit_cost", "received_at", "expires_at", "consumed",
		"created_at", "updated_at",
	})
	for _, b := range batches {
		rows.AddRow(
			b.ID, b.TenantID, b.ItemID, b.InitialQuantity.String(), b.Quantity.String(),
			b.UnitCost.String(), b.ReceivedAt, b.ExpiresAt, b.Consumed,
			b.CreatedAt, b.UpdatedAt,
		)
	}
	return rows
}

func TestSnapshotForItemsLocksRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormStockBatchRepository(db)
	tenantID := uuid.New()
	itemID := uuid.New()

	b1, err := ledger.NewStockBatch(tenantID, itemID, decimal.NewFromInt(5), decimal.NewFromInt(10), time.Now().Add(-time.Hour), nil)
	require.NoError(t, err)
	b2, err := ledger.NewStockBatch(tenantID, itemID, decimal.NewFromInt(10), decimal.NewFromInt(12), time.Now(), nil)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT \* FROM "stock_batches" WHERE tenant_id = \$1 AND item_id IN \(\$2\) ORDER BY received_at ASC, id ASC FOR UPDATE`).
		WithArgs(tenantID, itemID).
		WillReturnRows(batchRows(*b1, *b2))

	snapshot, err := repo.SnapshotForItems(context.Background(), tenantID, []uuid.UUID{itemID})
	require.NoError(t, err)

	require.Len(t, snapshot[itemID], 2)
	assert.Equal(t, b1.ID, snapshot[itemID][0].ID)
	assert.Equal(t, b2.ID, snapshot[itemID][1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSnapshotForItemsEmptyInput(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormStockBatchRepository(db)

	snapshot, err := repo.SnapshotForItems(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDeltasGuardsLowerBound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormStockBatchRepository(db)
	tenantID := uuid.New()
	batchID := uuid.New()

	// The deduction predicate keeps the quantity from going negative
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "stock_batches" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ApplyDeltas(context.Background(), tenantID, []ledger.BatchDelta{
		{BatchID: batchID, Delta: decimal.NewFromInt(-3)},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDeltasConflictWhenNoRowMatches(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormStockBatchRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "stock_batches" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ApplyDeltas(context.Background(), uuid.New(), []ledger.BatchDelta{
		{BatchID: uuid.New(), Delta: decimal.NewFromInt(-3)},
	})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
}

func TestApplyDeltasSkipsZeroDelta(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormStockBatchRepository(db)

	// No SQL expected at all
	err := repo.ApplyDeltas(context.Background(), uuid.New(), []ledger.BatchDelta{
		{BatchID: uuid.New(), Delta: decimal.Zero},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyDeltasTimeoutIsRetryable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormStockBatchRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "stock_batches" SET`)).
		WillReturnError(context.DeadlineExceeded)

	err := repo.ApplyDeltas(context.Background(), uuid.New(), []ledger.BatchDelta{
		{BatchID: uuid.New(), Delta: decimal.NewFromInt(-1)},
	})
	assert.ErrorIs(t, err, shared.ErrLedgerLockTimeout)
}

func TestFindByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGormStockBatchRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "stock_batches"`).
		WillReturnRows(batchRows())

	_, err := repo.FindByID(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
