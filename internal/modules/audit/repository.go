package audit

import "context"

// Repository defines data access for the append-only audit log.
type Repository interface {
	// Append persists a new entry. Entries are never updated or deleted.
	Append(ctx context.Context, e *Entry) error

	// List returns all entries in append order.
	List(ctx context.Context) ([]*Entry, error)

	// Len returns the number of entries.
	Len(ctx context.Context) (int, error)
}
