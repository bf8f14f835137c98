package receipt

import "context"

// Store is the durable keyed record store for receipts. Implementations must
// treat UpdateReview as a conditional write: the status and review metadata
// commit together, and only when the receipt is still PENDING. That condition
// is what closes the concurrent-review race.
type Store interface {
	// Create persists a new receipt. The id must not already exist.
	Create(ctx context.Context, r *DecisionReceipt) error

	// GetByID returns the receipt or ErrNotFound.
	GetByID(ctx context.Context, id string) (*DecisionReceipt, error)

	// List returns up to limit receipts, most recent first.
	List(ctx context.Context, limit int) ([]DecisionReceipt, error)

	// ListAll returns every receipt, in creation order.
	ListAll(ctx context.Context) ([]DecisionReceipt, error)

	// UpdateReview sets the approval status and review metadata iff the
	// receipt's current status is PENDING. Returns ErrNotFound for an unknown
	// id and ErrInvalidTransition when the receipt is already terminal.
	UpdateReview(ctx context.Context, id string, status ApprovalStatus, meta ReviewMetadata) error
}
