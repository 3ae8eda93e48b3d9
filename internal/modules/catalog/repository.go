package catalog

import "context"

// Repository defines data access for catalog items.
type Repository interface {
	// Create persists a new item.
	Create(ctx context.Context, item *Item) error

	// GetByID retrieves an item by UUID string.
	GetByID(ctx context.Context, id string) (*Item, error)

	// List returns all items, optionally filtered by category and active flag.
	List(ctx context.Context, category string, activeOnly bool) ([]*Item, error)

	// Update applies mutate to the item and persists the result, retrying on
	// concurrent-writer conflicts.
	Update(ctx context.Context, id string, mutate func(*Item) error) (*Item, error)
}
