package ledger

import "context"

// ContainerName is the shared-document sequence backing the request ledger.
// Exported so the assignment module can observe submissions.
const ContainerName = "requests"

// Repository defines data access for the request ledger.
type Repository interface {
	// Create appends a new request.
	Create(ctx context.Context, r *Request) error

	// GetByID retrieves a request by UUID string.
	GetByID(ctx context.Context, id string) (*Request, error)

	// List returns all requests in ledger order.
	List(ctx context.Context) ([]*Request, error)

	// Update applies mutate to the request and persists the result with a
	// compare-and-swap replace. On a revision conflict the request is
	// re-read and mutate runs again against the fresh copy, so a losing
	// writer revalidates against the winner's state.
	Update(ctx context.Context, id string, mutate func(*Request) error) (*Request, error)
}
