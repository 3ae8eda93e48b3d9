package capacity

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nightjarhq/nightjar-backend/internal/store"
)

const containerName = "producer_capacities"

type docRepo struct{ m store.Map }

// NewDocRepository builds a repository over the shared document store.
func NewDocRepository(s store.Store) Repository {
	return &docRepo{m: s.Map(containerName)}
}

func (r *docRepo) Get(ctx context.Context, producerID string) (*ProducerCapacity, error) {
	raw, err := r.m.Get(ctx, producerID)
	if err != nil {
		return nil, err
	}
	pc := &ProducerCapacity{}
	if err := json.Unmarshal(raw, pc); err != nil {
		return nil, fmt.Errorf("unmarshal capacity for %s: %w", producerID, err)
	}
	return pc, nil
}

func (r *docRepo) Put(ctx context.Context, pc *ProducerCapacity) error {
	raw, err := json.Marshal(pc)
	if err != nil {
		return fmt.Errorf("marshal capacity: %w", err)
	}
	return r.m.Set(ctx, pc.ProducerID, raw)
}

func (r *docRepo) Delete(ctx context.Context, producerID string) error {
	return r.m.Delete(ctx, producerID)
}

func (r *docRepo) ListAll(ctx context.Context) ([]*ProducerCapacity, error) {
	snap, err := r.m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*ProducerCapacity, 0, len(snap))
	for producerID, raw := range snap {
		pc := &ProducerCapacity{}
		if err := json.Unmarshal(raw, pc); err != nil {
			return nil, fmt.Errorf("unmarshal capacity for %s: %w", producerID, err)
		}
		out = append(out, pc)
	}
	// Map snapshots are unordered; keep the result deterministic.
	sort.Slice(out, func(i, j int) bool { return out[i].ProducerID < out[j].ProducerID })
	return out, nil
}
