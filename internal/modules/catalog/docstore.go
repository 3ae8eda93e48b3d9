package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nightjarhq/nightjar-backend/internal/store"
)

const containerName = "catalog_items"

const casRetries = 3

type docRepo struct{ seq store.Sequence }

// NewDocRepository builds a repository over the shared document store.
func NewDocRepository(s store.Store) Repository {
	return &docRepo{seq: s.Sequence(containerName)}
}

func (r *docRepo) Create(ctx context.Context, item *Item) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal catalog item: %w", err)
	}
	if _, err := r.seq.Append(ctx, item.ID.String(), body); err != nil {
		return fmt.Errorf("append catalog item: %w", err)
	}
	return nil
}

func (r *docRepo) GetByID(ctx context.Context, id string) (*Item, error) {
	rec, err := r.seq.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return decode(rec)
}

func (r *docRepo) List(ctx context.Context, category string, activeOnly bool) ([]*Item, error) {
	recs, err := r.seq.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*Item, 0, len(recs))
	for _, rec := range recs {
		item, err := decode(rec)
		if err != nil {
			return nil, err
		}
		if category != "" && item.Category != category {
			continue
		}
		if activeOnly && !item.Active {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *docRepo) Update(ctx context.Context, id string, mutate func(*Item) error) (*Item, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		rec, err := r.seq.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		item, err := decode(rec)
		if err != nil {
			return nil, err
		}
		if err := mutate(item); err != nil {
			return nil, err
		}
		body, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("marshal catalog item: %w", err)
		}
		_, err = r.seq.Replace(ctx, id, rec.Rev, body)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("update catalog item %s: %w", id, store.ErrConflict)
}

func decode(rec store.Record) (*Item, error) {
	item := &Item{}
	if err := json.Unmarshal(rec.Body, item); err != nil {
		return nil, fmt.Errorf("unmarshal catalog item %s: %w", rec.ID, err)
	}
	return item, nil
}
