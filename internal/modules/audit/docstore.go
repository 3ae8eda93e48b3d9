package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nightjarhq/nightjar-backend/internal/store"
)

const containerName = "audit_log"

type docRepo struct{ seq store.Sequence }

// NewDocRepository builds a repository over the shared document store.
func NewDocRepository(s store.Store) Repository {
	return &docRepo{seq: s.Sequence(containerName)}
}

func (r *docRepo) Append(ctx context.Context, e *Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if _, err := r.seq.Append(ctx, e.ID, body); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *docRepo) List(ctx context.Context) ([]*Entry, error) {
	recs, err := r.seq.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(recs))
	for _, rec := range recs {
		e := &Entry{}
		if err := json.Unmarshal(rec.Body, e); err != nil {
			return nil, fmt.Errorf("unmarshal audit entry %s: %w", rec.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *docRepo) Len(ctx context.Context) (int, error) {
	return r.seq.Len(ctx)
}
