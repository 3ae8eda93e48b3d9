package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Item is an orderable item definition in the workspace catalog.
// Deactivating an item prevents new requests but never retracts existing ones.
type Item struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"` // "each", "box", "kg", ...
	QuantityMin  int       `json:"quantity_min"`
	QuantityMax  *int      `json:"quantity_max,omitempty"` // nil → unbounded
	QuantityStep int       `json:"quantity_step"`
	SKU          string    `json:"sku,omitempty"`
	Category     string    `json:"category,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateItemRequest holds the data for adding or editing a catalog item.
type CreateItemRequest struct {
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	QuantityMin  int    `json:"quantity_min"`
	QuantityMax  *int   `json:"quantity_max,omitempty"`
	QuantityStep int    `json:"quantity_step"`
	SKU          string `json:"sku,omitempty"`
	Category     string `json:"category,omitempty"`
}

// SetActiveRequest toggles an item's active flag.
type SetActiveRequest struct {
	Active bool `json:"active"`
}
