package reveal

import "context"

// Repository defines data access for the two reveal collections.
type Repository interface {
	// PutPending parks a sealed address until approval.
	PutPending(ctx context.Context, p *PendingAddress) error

	// GetPending returns the parked address for a request, or store.ErrNotFound.
	GetPending(ctx context.Context, requestID string) (*PendingAddress, error)

	// DeletePending removes the parked entry after a successful relay.
	DeletePending(ctx context.Context, requestID string) error

	// PutReveal stores the producer-sealed address.
	PutReveal(ctx context.Context, rv *AddressReveal) error

	// GetReveal returns the reveal for a request, or store.ErrNotFound.
	GetReveal(ctx context.Context, requestID string) (*AddressReveal, error)
}
