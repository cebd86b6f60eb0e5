package sale

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/sale"
	"github.com/poscore/backend/internal/domain/shared"
)

// memState is the mutable store behind the in-memory transaction scope
type memState struct {
	batches  map[uuid.UUID]*ledger.StockBatch
	records  []*ledger.AllocationRecord
	docs     map[uuid.UUID]*sale.Document
	counters map[string]int64
}

func newMemState() *memState {
	return &memState{
		batches:  make(map[uuid.UUID]*ledger.StockBatch),
		docs:     make(map[uuid.UUID]*sale.Document),
		counters: make(map[string]int64),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for id, b := range s.batches {
		copied := *b
		c.batches[id] = &copied
	}
	c.records = append(c.records, s.records...)
	for id, d := range s.docs {
		copied := *d
		copied.Lines = append([]sale.Line(nil), d.Lines...)
		c.docs[id] = &copied
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	return c
}

// memScope emulates the database transaction scope: the store is locked
// for the duration of Execute, so concurrent transactions serialize like
// row-locked ones, and a failed function restores the pre-transaction
// state like a rollback.
type memScope struct {
	mu    sync.Mutex
	state *memState

	// failDocCreates makes the next n document creates fail with a
	// sequence collision, simulating a concurrent writer taking the number
	failDocCreates int
	docCreates     int
}

func newMemScope() *memScope {
	return &memScope{state: newMemState()}
}

func (s *memScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&memRepos{scope: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// snapshotTotals returns the remaining quantity per batch outside any
// transaction, for assertions.
func (s *memScope) batchQuantity(id uuid.UUID) *ledger.StockBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.state.batches[id]; ok {
		copied := *b
		return &copied
	}
	return nil
}

func (s *memScope) documentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.docs)
}

func (s *memScope) recordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.records)
}

type memRepos struct {
	scope *memScope
}

func (r *memRepos) Batches() ledger.StockBatchRepository         { return &memBatchRepo{r.scope} }
func (r *memRepos) Allocations() ledger.AllocationRecordRepository { return &memRecordRepo{r.scope} }
func (r *memRepos) Documents() sale.DocumentRepository           { return &memDocRepo{r.scope} }
func (r *memRepos) Counters() numbering.CounterRepository        { return &memCounterRepo{r.scope} }

type memBatchRepo struct{ scope *memScope }

func (r *memBatchRepo) Create(_ context.Context, batch *ledger.StockBatch) error {
	copied := *batch
	r.scope.state.batches[batch.ID] = &copied
	return nil
}

func (r *memBatchRepo) CreateAll(ctx context.Context, batches []*ledger.StockBatch) error {
	for _, b := range batches {
		if err := r.Create(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (r *memBatchRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*ledger.StockBatch, error) {
	b, ok := r.scope.state.batches[id]
	if !ok || b.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *memBatchRepo) SnapshotForItems(_ context.Context, tenantID uuid.UUID, itemIDs []uuid.UUID) (map[uuid.UUID][]ledger.StockBatch, error) {
	wanted := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}

	grouped := make(map[uuid.UUID][]ledger.StockBatch)
	for _, b := range r.scope.state.batches {
		if b.TenantID == tenantID && wanted[b.ItemID] {
			grouped[b.ItemID] = append(grouped[b.ItemID], *b)
		}
	}
	for itemID := range grouped {
		batches := grouped[itemID]
		sort.Slice(batches, func(i, j int) bool {
			if batches[i].ReceivedAt.Equal(batches[j].ReceivedAt) {
				return batches[i].ID.String() < batches[j].ID.String()
			}
			return batches[i].ReceivedAt.Before(batches[j].ReceivedAt)
		})
		grouped[itemID] = batches
	}
	return grouped, nil
}

func (r *memBatchRepo) ApplyDeltas(_ context.Context, tenantID uuid.UUID, deltas []ledger.BatchDelta) error {
	// Validate all bounds before mutating anything
	for _, d := range deltas {
		b, ok := r.scope.state.batches[d.BatchID]
		if !ok || b.TenantID != tenantID {
			return shared.ErrConcurrencyConflict
		}
		next := b.Quantity.Add(d.Delta)
		if next.IsNegative() || next.GreaterThan(b.InitialQuantity) {
			return shared.ErrConcurrencyConflict
		}
	}
	for _, d := range deltas {
		b := r.scope.state.batches[d.BatchID]
		b.Quantity = b.Quantity.Add(d.Delta)
		b.Consumed = b.Quantity.IsZero()
	}
	return nil
}

type memRecordRepo struct{ scope *memScope }

func (r *memRecordRepo) CreateAll(_ context.Context, records []*ledger.AllocationRecord) error {
	for _, rec := range records {
		copied := *rec
		r.scope.state.records = append(r.scope.state.records, &copied)
	}
	return nil
}

func (r *memRecordRepo) FindByDocument(_ context.Context, tenantID, documentID uuid.UUID) ([]ledger.AllocationRecord, error) {
	var out []ledger.AllocationRecord
	for _, rec := range r.scope.state.records {
		if rec.TenantID == tenantID && rec.DocumentID == documentID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type memDocRepo struct{ scope *memScope }

func (r *memDocRepo) Create(_ context.Context, doc *sale.Document) error {
	r.scope.docCreates++
	if r.scope.failDocCreates > 0 {
		r.scope.failDocCreates--
		return shared.ErrSequenceCollision
	}
	for _, existing := range r.scope.state.docs {
		if existing.TenantID == doc.TenantID && existing.DocType == doc.DocType && existing.Number == doc.Number {
			return shared.ErrSequenceCollision
		}
	}
	copied := *doc
	copied.Lines = append([]sale.Line(nil), doc.Lines...)
	r.scope.state.docs[doc.ID] = &copied
	return nil
}

func (r *memDocRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*sale.Document, error) {
	d, ok := r.scope.state.docs[id]
	if !ok || d.TenantID != tenantID {
		return nil, shared.ErrDocumentNotFound
	}
	copied := *d
	copied.Lines = append([]sale.Line(nil), d.Lines...)
	return &copied, nil
}

func (r *memDocRepo) MarkCancelled(_ context.Context, doc *sale.Document) error {
	stored, ok := r.scope.state.docs[doc.ID]
	if !ok || stored.Status != sale.StatusCommitted {
		return shared.ErrConcurrencyConflict
	}
	stored.Status = doc.Status
	stored.CancelReason = doc.CancelReason
	stored.CancelledAt = doc.CancelledAt
	stored.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *memDocRepo) HasSuccessor(_ context.Context, tenantID, id uuid.UUID) (bool, error) {
	for _, d := range r.scope.state.docs {
		if d.TenantID == tenantID && d.RefDocumentID != nil && *d.RefDocumentID == id {
			return true, nil
		}
	}
	return false, nil
}

type memCounterRepo struct{ scope *memScope }

func counterKey(tenantID uuid.UUID, docType numbering.DocType, periodKey string) string {
	return tenantID.String() + ":" + string(docType) + ":" + periodKey
}

func (r *memCounterRepo) CurrentValue(_ context.Context, tenantID uuid.UUID, docType numbering.DocType, periodKey string) (int64, error) {
	return r.scope.state.counters[counterKey(tenantID, docType, periodKey)], nil
}

func (r *memCounterRepo) Advance(_ context.Context, tenantID uuid.UUID, docType numbering.DocType, periodKey string, value int64) error {
	k := counterKey(tenantID, docType, periodKey)
	if value > r.scope.state.counters[k] {
		r.scope.state.counters[k] = value
	}
	return nil
}

func (r *memCounterRepo) NextValue(_ context.Context, tenantID uuid.UUID, docType numbering.DocType, periodKey string) (int64, error) {
	k := counterKey(tenantID, docType, periodKey)
	r.scope.state.counters[k]++
	return r.scope.state.counters[k], nil
}

// seqStub issues sequence values from an in-memory map and counts calls
type seqStub struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
}

func newSeqStub() *seqStub {
	return &seqStub{values: make(map[string]int64)}
}

func (s *seqStub) Next(_ context.Context, tenantID uuid.UUID, docType numbering.DocType, period numbering.Period) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	k := counterKey(tenantID, docType, period.Key)
	s.values[k]++
	return s.values[k], nil
}

func (s *seqStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// capturingPublisher records published events; err, when set, is returned
// from Publish to exercise the swallow-and-log path
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}

func (p *capturingPublisher) published() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.DomainEvent(nil), p.events...)
}
