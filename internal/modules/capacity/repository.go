package capacity

import "context"

// Repository defines data access for producer capacity declarations.
type Repository interface {
	// Get returns one producer's declarations, or store.ErrNotFound.
	Get(ctx context.Context, producerID string) (*ProducerCapacity, error)

	// Put replaces one producer's declarations wholesale.
	Put(ctx context.Context, pc *ProducerCapacity) error

	// Delete removes a producer's declarations entirely.
	Delete(ctx context.Context, producerID string) error

	// ListAll returns every producer's declarations.
	ListAll(ctx context.Context) ([]*ProducerCapacity, error)
}
