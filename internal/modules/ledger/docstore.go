package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nightjarhq/nightjar-backend/internal/store"
)

const casRetries = 3

type docRepo struct{ seq store.Sequence }

// NewDocRepository builds a repository over the shared document store.
func NewDocRepository(s store.Store) Repository {
	return &docRepo{seq: s.Sequence(ContainerName)}
}

func (r *docRepo) Create(ctx context.Context, req *Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	if _, err := r.seq.Append(ctx, req.ID.String(), body); err != nil {
		return fmt.Errorf("append request: %w", err)
	}
	return nil
}

func (r *docRepo) GetByID(ctx context.Context, id string) (*Request, error) {
	rec, err := r.seq.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *docRepo) List(ctx context.Context) ([]*Request, error) {
	recs, err := r.seq.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	requests := make([]*Request, 0, len(recs))
	for _, rec := range recs {
		req, err := decode(rec)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func (r *docRepo) Update(ctx context.Context, id string, mutate func(*Request) error) (*Request, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		rec, err := r.seq.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		req, err := decode(rec)
		if err != nil {
			return nil, err
		}
		if err := mutate(req); err != nil {
			return nil, err
		}
		body, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		_, err = r.seq.Replace(ctx, id, rec.Rev, body)
		if err == nil {
			return req, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		// Lost the race; loop re-reads and revalidates against the winner.
	}
	return nil, fmt.Errorf("update request %s: %w", id, store.ErrConflict)
}

func decode(rec store.Record) (*Request, error) {
	req := &Request{}
	if err := json.Unmarshal(rec.Body, req); err != nil {
		return nil, fmt.Errorf("unmarshal request %s: %w", rec.ID, err)
	}
	return req, nil
}
