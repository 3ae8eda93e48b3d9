package member

import "context"

// Repository defines data access for workspace members.
type Repository interface {
	// Create persists a new member.
	Create(ctx context.Context, m *Member) error

	// GetByID retrieves a member by UUID string.
	GetByID(ctx context.Context, id string) (*Member, error)

	// GetByEmail retrieves a member by email.
	GetByEmail(ctx context.Context, email string) (*Member, error)

	// List returns all members in join order.
	List(ctx context.Context) ([]*Member, error)

	// Update applies mutate to the member and persists the result, retrying
	// on concurrent-writer conflicts.
	Update(ctx context.Context, id string, mutate func(*Member) error) (*Member, error)
}
