package sale

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/shared"
)

func draftDocument() *Document {
	return NewDocument(uuid.New(), uuid.New(), numbering.DocTypeBill, ledger.PolicyFIFO, "cash")
}

func TestAddLineComputesTotalsLineByLine(t *testing.T) {
	doc := draftDocument()

	_, err := doc.AddLine(uuid.New(), decimal.NewFromInt(2), decimal.RequireFromString("10.00"), decimal.RequireFromString("0.10"), true)
	require.NoError(t, err)
	_, err = doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.RequireFromString("5.00"), decimal.RequireFromString("0.20"), false)
	require.NoError(t, err)

	// line 1: 20.00 + 2.00 tax; line 2: 5.00 + 1.00 tax
	assert.True(t, doc.Subtotal.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, doc.TaxTotal.Equal(decimal.RequireFromString("3.00")))
	assert.True(t, doc.Total.Equal(decimal.RequireFromString("28.00")))

	require.Len(t, doc.Lines, 2)
	assert.True(t, doc.Lines[0].LineTotal.Equal(decimal.RequireFromString("22.00")))
	assert.True(t, doc.Lines[1].LineTotal.Equal(decimal.RequireFromString("6.00")))
}

func TestAddLineValidation(t *testing.T) {
	doc := draftDocument()

	_, err := doc.AddLine(uuid.New(), decimal.Zero, decimal.NewFromInt(1), decimal.Zero, true)
	assert.Error(t, err)

	_, err = doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(-1), decimal.Zero, true)
	assert.Error(t, err)

	_, err = doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.RequireFromString("-0.1"), true)
	assert.Error(t, err)
}

func TestTrackedLines(t *testing.T) {
	doc := draftDocument()

	_, err := doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(10), decimal.Zero, true)
	require.NoError(t, err)
	// Service charge line: billed, never allocated
	_, err = doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.Zero, false)
	require.NoError(t, err)

	tracked := doc.TrackedLines()
	require.Len(t, tracked, 1)
	assert.True(t, tracked[0].TrackStock)
}

func TestCommitAssignsNumber(t *testing.T) {
	doc := draftDocument()
	_, err := doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(10), decimal.Zero, true)
	require.NoError(t, err)

	require.NoError(t, doc.Commit("BILL202501-000042", 42, "202501"))
	assert.Equal(t, StatusCommitted, doc.Status)
	assert.Equal(t, "BILL202501-000042", doc.Number)
	assert.Equal(t, int64(42), doc.SequenceValue)
	assert.Equal(t, "202501", doc.PeriodKey)
}

func TestCommitEmptyDocumentFails(t *testing.T) {
	doc := draftDocument()
	assert.Error(t, doc.Commit("BILL202501-000001", 1, "202501"))
}

func TestCommitTwiceFails(t *testing.T) {
	doc := draftDocument()
	_, err := doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(10), decimal.Zero, true)
	require.NoError(t, err)
	require.NoError(t, doc.Commit("BILL202501-000001", 1, "202501"))

	assert.ErrorIs(t, doc.Commit("BILL202501-000002", 2, "202501"), shared.ErrInvalidState)
}

func TestAddLineAfterCommitFails(t *testing.T) {
	doc := draftDocument()
	_, err := doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(10), decimal.Zero, true)
	require.NoError(t, err)
	require.NoError(t, doc.Commit("BILL202501-000001", 1, "202501"))

	_, err = doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(10), decimal.Zero, true)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCancelLifecycle(t *testing.T) {
	doc := draftDocument()
	_, err := doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(10), decimal.Zero, true)
	require.NoError(t, err)

	// Draft documents cannot be cancelled; nothing was committed yet.
	assert.ErrorIs(t, doc.Cancel("mistake"), shared.ErrInvalidState)

	require.NoError(t, doc.Commit("BILL202501-000001", 1, "202501"))
	require.NoError(t, doc.Cancel("customer walked out"))
	assert.True(t, doc.IsCancelled())
	assert.Equal(t, "customer walked out", doc.CancelReason)
	require.NotNil(t, doc.CancelledAt)

	// Second cancellation is rejected so stock is never double-credited.
	assert.ErrorIs(t, doc.Cancel("again"), shared.ErrAlreadyCompensated)
}

func TestCommittedEventCarriesDocumentFacts(t *testing.T) {
	doc := draftDocument()
	_, err := doc.AddLine(uuid.New(), decimal.NewFromInt(2), decimal.NewFromInt(10), decimal.Zero, true)
	require.NoError(t, err)
	require.NoError(t, doc.Commit("BILL202501-000009", 9, "202501"))

	ev := NewDocumentCommittedEvent(doc)
	assert.Equal(t, EventDocumentCommitted, ev.EventType())
	assert.Equal(t, doc.ID, ev.AggregateID())
	assert.Equal(t, doc.TenantID, ev.TenantID())
	assert.Equal(t, "BILL202501-000009", ev.Number)
	assert.True(t, ev.Total.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, 1, ev.LineCount)
}

func TestCancelledEventCarriesReason(t *testing.T) {
	doc := draftDocument()
	_, err := doc.AddLine(uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(10), decimal.Zero, true)
	require.NoError(t, err)
	require.NoError(t, doc.Commit("BILL202501-000010", 10, "202501"))
	require.NoError(t, doc.Cancel("wrong table"))

	ev := NewDocumentCancelledEvent(doc)
	assert.Equal(t, EventDocumentCancelled, ev.EventType())
	assert.Equal(t, "wrong table", ev.Reason)
}
