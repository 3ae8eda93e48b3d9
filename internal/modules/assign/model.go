package assign

import "time"

// Proposal is one assignment engine decision for one open request. Either a
// producer match with a fulfilment estimate, or a blocked verdict with the
// reason no producer qualified.
type Proposal struct {
	RequestID  string    `json:"request_id"`
	ProducerID string    `json:"producer_id,omitempty"`
	Estimate   time.Time `json:"estimate,omitempty"`
	Blocked    bool      `json:"blocked"`
	Reason     string    `json:"reason,omitempty"`
}

// Result summarizes one applied assignment pass.
type Result struct {
	Assigned int        `json:"assigned"`
	Blocked  int        `json:"blocked"`
	Skipped  int        `json:"skipped"`
	Details  []Proposal `json:"details"`
}
