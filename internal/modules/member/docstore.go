package member

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nightjarhq/nightjar-backend/internal/store"
)

const containerName = "members"

// casRetries bounds the re-read loop when a concurrent writer wins a replace.
const casRetries = 3

type docRepo struct{ seq store.Sequence }

// NewDocRepository builds a repository over the shared document store.
func NewDocRepository(s store.Store) Repository {
	return &docRepo{seq: s.Sequence(containerName)}
}

func (r *docRepo) Create(ctx context.Context, m *Member) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal member: %w", err)
	}
	if _, err := r.seq.Append(ctx, m.ID.String(), body); err != nil {
		return fmt.Errorf("append member: %w", err)
	}
	return nil
}

func (r *docRepo) GetByID(ctx context.Context, id string) (*Member, error) {
	rec, err := r.seq.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *docRepo) GetByEmail(ctx context.Context, email string) (*Member, error) {
	members, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if strings.EqualFold(m.Email, email) {
			return m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *docRepo) List(ctx context.Context) ([]*Member, error) {
	recs, err := r.seq.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	members := make([]*Member, 0, len(recs))
	for _, rec := range recs {
		m, err := decode(rec)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func (r *docRepo) Update(ctx context.Context, id string, mutate func(*Member) error) (*Member, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		rec, err := r.seq.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		m, err := decode(rec)
		if err != nil {
			return nil, err
		}
		if err := mutate(m); err != nil {
			return nil, err
		}
		body, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshal member: %w", err)
		}
		_, err = r.seq.Replace(ctx, id, rec.Rev, body)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("update member %s: %w", id, store.ErrConflict)
}

func decode(rec store.Record) (*Member, error) {
	m := &Member{}
	if err := json.Unmarshal(rec.Body, m); err != nil {
		return nil, fmt.Errorf("unmarshal member %s: %w", rec.ID, err)
	}
	return m, nil
}
