package capacity

import "time"

// ItemCapacity is a producer's declared ability to fulfil one catalog item.
type ItemCapacity struct {
	CurrentStock   int `json:"current_stock"`
	CapacityPerDay int `json:"capacity_per_day"`
}

// ProducerCapacity is everything one producer has declared, keyed by catalog
// item ID. Mutated only by the producer themselves; read by the assignment
// engine and claim estimates.
type ProducerCapacity struct {
	ProducerID string                  `json:"producer_id"`
	Items      map[string]ItemCapacity `json:"items"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

// DeclareRequest is the payload for declaring capacity for one item.
type DeclareRequest struct {
	CurrentStock   int `json:"current_stock"`
	CapacityPerDay int `json:"capacity_per_day"`
}
