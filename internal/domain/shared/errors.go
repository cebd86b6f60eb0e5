package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")

	// Document lifecycle errors
	ErrDocumentNotFound   = NewDomainError("DOCUMENT_NOT_FOUND", "Document not found")
	ErrAlreadyCompensated = NewDomainError("ALREADY_COMPENSATED", "Document has already been cancelled")
	ErrDocumentSuperseded = NewDomainError("DOCUMENT_SUPERSEDED", "Document is referenced by a later document")

	// Numbering and locking errors
	ErrSequenceCollision       = NewDomainError("SEQUENCE_COLLISION", "Document number was claimed by a concurrent writer")
	ErrLedgerLockTimeout       = NewDomainError("LEDGER_LOCK_TIMEOUT", "Timed out waiting for ledger row locks")
	ErrDurableStoreUnavailable = NewDomainError("DURABLE_STORE_UNAVAILABLE", "Durable counter store is unavailable")
)
