package reveal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nightjarhq/nightjar-backend/internal/store"
)

const (
	pendingContainer = "pending_addresses"
	revealContainer  = "address_reveals"
)

type docRepo struct {
	pending store.Map
	reveals store.Map
}

// NewDocRepository builds a repository over the shared document store.
func NewDocRepository(s store.Store) Repository {
	return &docRepo{
		pending: s.Map(pendingContainer),
		reveals: s.Map(revealContainer),
	}
}

func (r *docRepo) PutPending(ctx context.Context, p *PendingAddress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal pending address: %w", err)
	}
	return r.pending.Set(ctx, p.RequestID, raw)
}

func (r *docRepo) GetPending(ctx context.Context, requestID string) (*PendingAddress, error) {
	raw, err := r.pending.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	p := &PendingAddress{}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("unmarshal pending address %s: %w", requestID, err)
	}
	return p, nil
}

func (r *docRepo) DeletePending(ctx context.Context, requestID string) error {
	return r.pending.Delete(ctx, requestID)
}

func (r *docRepo) PutReveal(ctx context.Context, rv *AddressReveal) error {
	raw, err := json.Marshal(rv)
	if err != nil {
		return fmt.Errorf("marshal address reveal: %w", err)
	}
	return r.reveals.Set(ctx, rv.RequestID, raw)
}

func (r *docRepo) GetReveal(ctx context.Context, requestID string) (*AddressReveal, error) {
	raw, err := r.reveals.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	rv := &AddressReveal{}
	if err := json.Unmarshal(raw, rv); err != nil {
		return nil, fmt.Errorf("unmarshal address reveal %s: %w", requestID, err)
	}
	return rv, nil
}
