package event

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/poscore/backend/internal/domain/sale"
	"github.com/poscore/backend/internal/domain/shared"
)

// AuditLogHandler writes a structured audit entry for every document
// lifecycle event. It stands in for the downstream audit pipeline; a
// failure here must never surface to the cashier.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an audit log handler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes returns the event types this handler subscribes to
func (h *AuditLogHandler) EventTypes() []string {
	return []string{sale.EventDocumentCommitted, sale.EventDocumentCancelled}
}

// Handle records the event in the audit log
func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("document_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *sale.DocumentCommittedEvent:
		fields = append(fields,
			zap.String("number", e.Number),
			zap.String("doc_type", string(e.DocType)),
			zap.String("total", e.Total.String()),
			zap.Int("line_count", e.LineCount),
		)
		h.logger.Info("document committed", fields...)
	case *sale.DocumentCancelledEvent:
		fields = append(fields,
			zap.String("number", e.Number),
			zap.String("doc_type", string(e.DocType)),
			zap.String("reason", e.Reason),
		)
		h.logger.Info("document cancelled", fields...)
	default:
		h.logger.Info(event.EventType(), fields...)
	}
	return nil
}

// StockCacheInvalidationHandler drops cached stock read views for a tenant
// whenever a document commits or is compensated. Read paths repopulate the
// cache lazily, so a missed invalidation only costs one stale read window.
type StockCacheInvalidationHandler struct {
	client *redis.Client
	logger *zap.Logger
}

// NewStockCacheInvalidationHandler creates a cache invalidation handler
func NewStockCacheInvalidationHandler(client *redis.Client, logger *zap.Logger) *StockCacheInvalidationHandler {
	return &StockCacheInvalidationHandler{client: client, logger: logger}
}

// EventTypes returns the event types this handler subscribes to
func (h *StockCacheInvalidationHandler) EventTypes() []string {
	return []string{sale.EventDocumentCommitted, sale.EventDocumentCancelled}
}

// Handle deletes the tenant's cached stock views
func (h *StockCacheInvalidationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	pattern := fmt.Sprintf("stock:%s:*", event.TenantID())

	iter := h.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan stock cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := h.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete stock cache keys: %w", err)
	}
	h.logger.Debug("stock cache invalidated",
		zap.String("tenant_id", event.TenantID().String()),
		zap.Int("keys", len(keys)),
	)
	return nil
}

var (
	_ shared.EventHandler = (*AuditLogHandler)(nil)
	_ shared.EventHandler = (*StockCacheInvalidationHandler)(nil)
)
