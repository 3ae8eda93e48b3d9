package capacity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nightjarhq/nightjar-backend/internal/store"
)

// Service defines capacity declaration business logic.
type Service interface {
	// Declare records or replaces a producer's capacity for one catalog item.
	Declare(ctx context.Context, producerID, itemID string, req DeclareRequest) (*ProducerCapacity, error)

	// Remove drops a producer's declaration for one item.
	Remove(ctx context.Context, producerID, itemID string) (*ProducerCapacity, error)

	// Get returns one producer's declarations; an empty declaration set if none.
	Get(ctx context.Context, producerID string) (*ProducerCapacity, error)

	// ListAll returns every producer's declarations.
	ListAll(ctx context.Context) ([]*ProducerCapacity, error)
}

type service struct{ repo Repository }

// NewService creates a new capacity service.
func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) Declare(ctx context.Context, producerID, itemID string, req DeclareRequest) (*ProducerCapacity, error) {
	if req.CurrentStock < 0 {
		return nil, fmt.Errorf("current_stock cannot be negative")
	}
	if req.CapacityPerDay < 0 {
		return nil, fmt.Errorf("capacity_per_day cannot be negative")
	}
	if req.CurrentStock == 0 && req.CapacityPerDay == 0 {
		return nil, fmt.Errorf("declaration must have stock or daily capacity")
	}

	pc, err := s.Get(ctx, producerID)
	if err != nil {
		return nil, err
	}
	pc.Items[itemID] = ItemCapacity{
		CurrentStock:   req.CurrentStock,
		CapacityPerDay: req.CapacityPerDay,
	}
	pc.UpdatedAt = time.Now().UTC()
	if err := s.repo.Put(ctx, pc); err != nil {
		return nil, err
	}
	return pc, nil
}

func (s *service) Remove(ctx context.Context, producerID, itemID string) (*ProducerCapacity, error) {
	pc, err := s.Get(ctx, producerID)
	if err != nil {
		return nil, err
	}
	if _, ok := pc.Items[itemID]; !ok {
		return nil, fmt.Errorf("no declaration for item %s: %w", itemID, store.ErrNotFound)
	}
	delete(pc.Items, itemID)
	pc.UpdatedAt = time.Now().UTC()
	if err := s.repo.Put(ctx, pc); err != nil {
		return nil, err
	}
	return pc, nil
}

func (s *service) Get(ctx context.Context, producerID string) (*ProducerCapacity, error) {
	pc, err := s.repo.Get(ctx, producerID)
	if errors.Is(err, store.ErrNotFound) {
		return &ProducerCapacity{ProducerID: producerID, Items: make(map[string]ItemCapacity)}, nil
	}
	if err != nil {
		return nil, err
	}
	if pc.Items == nil {
		pc.Items = make(map[string]ItemCapacity)
	}
	return pc, nil
}

func (s *service) ListAll(ctx context.Context) ([]*ProducerCapacity, error) {
	return s.repo.ListAll(ctx)
}
