package sale

import (
	"context"

	"github.com/google/uuid"
)

// DocumentRepository persists sale documents and their lines.
type DocumentRepository interface {
	// Create persists a committed document together with its lines.
	// A uniqueness violation on (tenant, doc type, number) is surfaced as
	// shared.ErrSequenceCollision so the coordinator can renumber and retry.
	Create(ctx context.Context, doc *Document) error
	// FindByIDForTenant loads a document with its lines
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Document, error)
	// MarkCancelled persists the terminal state transition. It fails with
	// shared.ErrConcurrencyConflict if the document is no longer committed.
	MarkCancelled(ctx context.Context, doc *Document) error
	// HasSuccessor reports whether any document references this one
	HasSuccessor(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}
