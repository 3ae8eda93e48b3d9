package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/modules/audit"
)

// Service defines catalog business logic. Every mutation writes exactly one
// audit entry.
type Service interface {
	AddItem(ctx context.Context, req CreateItemRequest, by actor.Actor) (*Item, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItems(ctx context.Context, category string, activeOnly bool) ([]*Item, error)
	UpdateItem(ctx context.Context, id string, req CreateItemRequest, by actor.Actor) (*Item, error)
	SetActive(ctx context.Context, id string, active bool, by actor.Actor) (*Item, error)
}

type service struct {
	repo    Repository
	auditor audit.Writer
}

// NewService creates a new catalog service.
func NewService(repo Repository, auditor audit.Writer) Service {
	return &service{repo: repo, auditor: auditor}
}

func validate(req CreateItemRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.Unit == "" {
		return fmt.Errorf("unit is required")
	}
	if req.QuantityMin < 1 {
		return fmt.Errorf("quantity_min must be at least 1")
	}
	if req.QuantityMax != nil && *req.QuantityMax < req.QuantityMin {
		return fmt.Errorf("quantity_max must be >= quantity_min")
	}
	if req.QuantityStep < 1 {
		return fmt.Errorf("quantity_step must be at least 1")
	}
	return nil
}

func (s *service) AddItem(ctx context.Context, req CreateItemRequest, by actor.Actor) (*Item, error) {
	if !by.IsOwner() {
		return nil, fmt.Errorf("only owners can edit the catalog")
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &Item{
		ID:           uuid.New(),
		Name:         req.Name,
		Unit:         req.Unit,
		QuantityMin:  req.QuantityMin,
		QuantityMax:  req.QuantityMax,
		QuantityStep: req.QuantityStep,
		SKU:          req.SKU,
		Category:     req.Category,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     "catalog_item_added",
		TargetID:   item.ID.String(),
		TargetType: "catalog_item",
		Summary:    fmt.Sprintf("added %q (%s)", item.Name, item.Unit),
		ActorID:    by.ID,
		ActorRole:  string(by.Role),
	}); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id string) (*Item, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListItems(ctx context.Context, category string, activeOnly bool) ([]*Item, error) {
	return s.repo.List(ctx, category, activeOnly)
}

func (s *service) UpdateItem(ctx context.Context, id string, req CreateItemRequest, by actor.Actor) (*Item, error) {
	if !by.IsOwner() {
		return nil, fmt.Errorf("only owners can edit the catalog")
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	item, err := s.repo.Update(ctx, id, func(item *Item) error {
		item.Name = req.Name
		item.Unit = req.Unit
		item.QuantityMin = req.QuantityMin
		item.QuantityMax = req.QuantityMax
		item.QuantityStep = req.QuantityStep
		item.SKU = req.SKU
		item.Category = req.Category
		item.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     "catalog_item_updated",
		TargetID:   item.ID.String(),
		TargetType: "catalog_item",
		Summary:    fmt.Sprintf("updated %q", item.Name),
		ActorID:    by.ID,
		ActorRole:  string(by.Role),
	}); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) SetActive(ctx context.Context, id string, active bool, by actor.Actor) (*Item, error) {
	if !by.IsOwner() {
		return nil, fmt.Errorf("only owners can edit the catalog")
	}

	item, err := s.repo.Update(ctx, id, func(item *Item) error {
		item.Active = active
		item.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := "catalog_item_deactivated"
	if active {
		action = "catalog_item_activated"
	}
	if err := s.auditor.Record(ctx, audit.Entry{
		Action:     action,
		TargetID:   item.ID.String(),
		TargetType: "catalog_item",
		Summary:    fmt.Sprintf("%q active=%t", item.Name, active),
		ActorID:    by.ID,
		ActorRole:  string(by.Role),
	}); err != nil {
		return nil, err
	}
	return item, nil
}
