package sale

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/poscore/backend/internal/domain/ledger"
	"github.com/poscore/backend/internal/domain/numbering"
	"github.com/poscore/backend/internal/domain/sale"
	"github.com/poscore/backend/internal/domain/shared"
)

// PlannerResolver resolves an allocation planner for a policy.
type PlannerResolver interface {
	Get(policy ledger.Policy) (ledger.Planner, error)
}

// CoordinatorConfig tunes the retry and timeout behavior of the coordinator.
type CoordinatorConfig struct {
	// MaxAttempts bounds the whole attempt loop, first try included
	MaxAttempts int
	// RetryBaseDelay is the backoff delay before the first retry; it
	// doubles on each subsequent retry and gets a random jitter component
	RetryBaseDelay time.Duration
	// WriteTimeout is the wall-clock budget for one transactional write
	// phase; an attempt exceeding it aborts, releases its locks, and
	// counts as retryable
	WriteTimeout time.Duration
	// PadWidth is the zero-pad width of formatted document numbers
	PadWidth int
	// Period selects the counter reset bucket, "monthly" or "daily";
	// empty means monthly
	Period string
}

// DefaultCoordinatorConfig returns the coordinator defaults
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MaxAttempts:    3,
		RetryBaseDelay: 50 * time.Millisecond,
		WriteTimeout:   5 * time.Second,
		PadWidth:       numbering.DefaultPadWidth,
	}
}

// Coordinator commits sales and purchase receipts as single atomic units:
// reserve a sequence number, plan and apply allocations for every line,
// persist the document with its allocation trail, and retry the whole
// unit when the number collided with a concurrent writer.
type Coordinator struct {
	scope     TransactionScope
	sequences numbering.Allocator
	planners  PlannerResolver
	publisher shared.EventPublisher
	logger    *zap.Logger
	cfg       CoordinatorConfig
	periodOf  func(time.Time) numbering.Period
	now       func() time.Time
}

// NewCoordinator creates a sale transaction coordinator
func NewCoordinator(
	scope TransactionScope,
	sequences numbering.Allocator,
	planners PlannerResolver,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	cfg CoordinatorConfig,
) *Coordinator {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 50 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	periodOf := numbering.MonthlyPeriod
	if cfg.Period == "daily" {
		periodOf = numbering.DailyPeriod
	}
	return &Coordinator{
		scope:     scope,
		sequences: sequences,
		planners:  planners,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
		periodOf:  periodOf,
		now:       time.Now,
	}
}

// CreateSale commits a sale (or kitchen ticket) atomically: stock is
// deducted, the allocation trail is written, and the document is numbered,
// or nothing happens at all. A retried-then-succeeded sale is
// indistinguishable from a first-try success to the caller.
func (c *Coordinator) CreateSale(ctx context.Context, input CreateSaleInput) (*sale.Document, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	policy := input.Policy
	if policy == "" {
		policy = ledger.PolicyFIFO
	}
	planner, err := c.planners.Get(policy)
	if err != nil {
		return nil, err
	}

	var committed *sale.Document
	err = c.withRetry(ctx, "create_sale", func() error {
		doc, err := c.attemptSale(ctx, input, policy, planner)
		if err != nil {
			return err
		}
		committed = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.notifyCommitted(ctx, committed)
	return committed, nil
}

// attemptSale is one full attempt: number, allocate, persist, commit.
// Built from scratch on every call so a retry after a number collision
// re-plans against fresh state.
func (c *Coordinator) attemptSale(ctx context.Context, input CreateSaleInput, policy ledger.Policy, planner ledger.Planner) (*sale.Document, error) {
	period := c.periodOf(c.now())
	seq, err := c.sequences.Next(ctx, input.TenantID, input.DocType, period)
	if err != nil {
		return nil, err
	}
	number := numbering.Format(input.DocType, period, seq, c.cfg.PadWidth)

	doc := sale.NewDocument(input.TenantID, input.UserID, input.DocType, policy, input.PaymentMethod)
	doc.RefDocumentID = input.RefDocumentID
	for _, line := range input.Lines {
		if _, err := doc.AddLine(line.ItemID, line.Quantity, line.UnitPrice, line.TaxRate, line.TrackStock); err != nil {
			return nil, err
		}
	}
	if err := doc.Commit(number, seq, period.Key); err != nil {
		return nil, err
	}

	err = c.inWriteWindow(ctx, func(txCtx context.Context) error {
		return c.scope.Execute(txCtx, func(repos TransactionalRepositories) error {
			deltas, records, err := c.allocateLines(txCtx, repos, doc, planner)
			if err != nil {
				return err
			}
			if err := repos.Batches().ApplyDeltas(txCtx, doc.TenantID, deltas); err != nil {
				return err
			}
			if err := repos.Documents().Create(txCtx, doc); err != nil {
				return err
			}
			if err := repos.Allocations().CreateAll(txCtx, records); err != nil {
				return err
			}
			return repos.Counters().Advance(txCtx, doc.TenantID, doc.DocType, period.Key, seq)
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// allocateLines locks a snapshot of every touched item's batches, plans
// each tracked line against a working copy of it, and returns the
// aggregated batch deltas plus the audit trail. Lines for the same item
// see the consumption of earlier lines in the same document.
func (c *Coordinator) allocateLines(ctx context.Context, repos TransactionalRepositories, doc *sale.Document, planner ledger.Planner) ([]ledger.BatchDelta, []*ledger.AllocationRecord, error) {
	tracked := doc.TrackedLines()
	if len(tracked) == 0 {
		return nil, nil, nil
	}

	itemIDs := make([]uuid.UUID, 0, len(tracked))
	seen := make(map[uuid.UUID]bool, len(tracked))
	for _, line := range tracked {
		if !seen[line.ItemID] {
			seen[line.ItemID] = true
			itemIDs = append(itemIDs, line.ItemID)
		}
	}

	working, err := repos.Batches().SnapshotForItems(ctx, doc.TenantID, itemIDs)
	if err != nil {
		return nil, nil, err
	}

	deltaIndex := make(map[uuid.UUID]int)
	deltas := make([]ledger.BatchDelta, 0)
	records := make([]*ledger.AllocationRecord, 0)

	for _, line := range tracked {
		plan, err := planner.Plan(line.Quantity, working[line.ItemID])
		if err != nil {
			var insufficient *ledger.InsufficientStockError
			if errors.As(err, &insufficient) && insufficient.ItemID == uuid.Nil {
				insufficient.ItemID = line.ItemID
			}
			return nil, nil, err
		}

		for _, alloc := range plan {
			records = append(records, ledger.NewAllocationRecord(
				doc.TenantID, doc.ID, line.ID, line.ItemID, alloc.BatchID,
				ledger.KindConsumption, alloc.Quantity, alloc.UnitCost,
			))

			idx, ok := deltaIndex[alloc.BatchID]
			if !ok {
				idx = len(deltas)
				deltaIndex[alloc.BatchID] = idx
				deltas = append(deltas, ledger.BatchDelta{BatchID: alloc.BatchID, Delta: decimal.Zero})
			}
			deltas[idx].Delta = deltas[idx].Delta.Sub(alloc.Quantity)

			consumeFromWorking(working[line.ItemID], alloc)
		}
	}
	return deltas, records, nil
}

// consumeFromWorking applies an allocation to the in-memory snapshot so
// subsequent lines of the same document see reduced availability.
func consumeFromWorking(batches []ledger.StockBatch, alloc ledger.Allocation) {
	for i := range batches {
		if batches[i].ID == alloc.BatchID {
			_ = batches[i].Deduct(alloc.Quantity)
			return
		}
	}
}

// inWriteWindow runs the transactional write phase under its wall-clock
// budget. A budget overrun aborts the transaction and releases its locks;
// it surfaces as the retryable lock timeout rather than as the caller's
// own cancellation.
func (c *Coordinator) inWriteWindow(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	err := fn(txCtx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return shared.ErrLedgerLockTimeout
	}
	return err
}

// withRetry runs one operation through the bounded retry loop. Only
// sequence collisions and lock timeouts are retried; everything else,
// insufficient stock above all, surfaces immediately.
func (c *Coordinator) withRetry(ctx context.Context, op string, attempt func() error) error {
	var err error
	for i := 0; i < c.cfg.MaxAttempts; i++ {
		if i > 0 {
			delay := c.backoffDelay(i)
			c.logger.Info("retrying after retryable failure",
				zap.String("operation", op),
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = attempt()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
	}

	c.logger.Warn("retry budget exhausted",
		zap.String("operation", op),
		zap.Int("attempts", c.cfg.MaxAttempts),
		zap.Error(err),
	)
	return err
}

// backoffDelay returns the exponential delay for the i-th retry with a
// random jitter component to avoid thundering herds.
func (c *Coordinator) backoffDelay(i int) time.Duration {
	delay := c.cfg.RetryBaseDelay << (i - 1)
	jitter := time.Duration(rand.Int63n(int64(c.cfg.RetryBaseDelay)/2 + 1))
	return delay + jitter
}

// isRetryable reports whether the coordinator may re-run the whole attempt
func isRetryable(err error) bool {
	return errors.Is(err, shared.ErrSequenceCollision) ||
		errors.Is(err, shared.ErrLedgerLockTimeout)
}

// notifyCommitted hands the committed document to out-of-band listeners.
// Their failure must never unwind a committed sale, so errors are logged
// and swallowed here.
func (c *Coordinator) notifyCommitted(ctx context.Context, doc *sale.Document) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, sale.NewDocumentCommittedEvent(doc)); err != nil {
		c.logger.Error("failed to publish committed event",
			zap.String("number", doc.Number),
			zap.Error(err),
		)
	}
}
