package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an inventory request.
type Status string

const (
	StatusOpen            Status = "open"
	StatusClaimed         Status = "claimed"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusInProgress      Status = "in_progress"
	StatusBlocked         Status = "blocked"
	StatusShipped         Status = "shipped"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// assignedStatuses is the subset of states in which a request must carry an
// assignee.
var assignedStatuses = map[Status]bool{
	StatusClaimed:         true,
	StatusPendingApproval: true,
	StatusApproved:        true,
	StatusInProgress:      true,
	StatusShipped:         true,
	StatusDelivered:       true,
}

// RequiresAssignee reports whether AssignedTo must be non-nil in this state.
func (s Status) RequiresAssignee() bool { return assignedStatuses[s] }

// ErrInvalidTransition marks a state-machine violation; wrap it with the
// offending from/to pair.
var ErrInvalidTransition = errors.New("invalid status transition")

// validTransitions defines the allowed status state machine. Cancel is legal
// from every non-terminal state and is checked separately.
var validTransitions = map[Status][]Status{
	StatusOpen:            {StatusClaimed, StatusPendingApproval, StatusBlocked},
	StatusClaimed:         {StatusApproved, StatusOpen},
	StatusPendingApproval: {StatusApproved, StatusOpen},
	StatusApproved:        {StatusInProgress, StatusShipped},
	StatusInProgress:      {StatusShipped},
	StatusBlocked:         {StatusOpen},
	StatusShipped:         {StatusDelivered},
	StatusDelivered:       {},
	StatusCancelled:       {},
}

func canTransition(from, to Status) bool {
	if to == StatusCancelled {
		return !from.Terminal()
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Request is one entry in the request ledger.
type Request struct {
	ID              uuid.UUID  `json:"id"`
	CatalogItemID   uuid.UUID  `json:"catalog_item_id"`
	CatalogItemName string     `json:"catalog_item_name"` // denormalized for display
	Quantity        int        `json:"quantity"`
	Status          Status     `json:"status"`
	RequestedBy     string     `json:"requested_by"`
	RequestedAt     time.Time  `json:"requested_at"`
	AssignedTo      *string    `json:"assigned_to,omitempty"`
	AssignedAt      *time.Time `json:"assigned_at,omitempty"`
	ClaimedBy       *string    `json:"claimed_by,omitempty"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ShippedAt       *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	TrackingInfo    string     `json:"tracking_info,omitempty"`
	Urgent          bool       `json:"urgent"`
	City            string     `json:"city,omitempty"`
	State           string     `json:"state,omitempty"`
	AdminNotes      string     `json:"admin_notes,omitempty"`
	// AddressPending flags an approved request whose reveal hand-off failed:
	// the producer cannot see the shipping address yet.
	AddressPending bool      `json:"address_pending,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the assignee invariant.
func (r *Request) Validate() error {
	if r.Status.RequiresAssignee() && r.AssignedTo == nil {
		return fmt.Errorf("request %s: status %s requires an assignee", r.ID, r.Status)
	}
	if !r.Status.RequiresAssignee() && r.AssignedTo != nil {
		return fmt.Errorf("request %s: status %s must not carry an assignee", r.ID, r.Status)
	}
	return nil
}

// clearAssignment drops every assignment-related field, returning the request
// to an unassigned shape.
func (r *Request) clearAssignment() {
	r.AssignedTo = nil
	r.AssignedAt = nil
	r.ClaimedBy = nil
	r.ClaimedAt = nil
	r.ApprovedBy = nil
	r.ApprovedAt = nil
	r.AddressPending = false
}

// SubmitRequest is the payload for creating a request.
type SubmitRequest struct {
	CatalogItemID string `json:"catalog_item_id"`
	Quantity      int    `json:"quantity"`
	Urgent        bool   `json:"urgent"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
}

// ShipRequest carries the tracking details for a shipment.
type ShipRequest struct {
	TrackingInfo string `json:"tracking_info"`
}

// RejectRequest carries the admin's note for a rejection.
type RejectRequest struct {
	Note string `json:"note,omitempty"`
}

// BlockRequest carries the reason a request cannot be fulfilled.
type BlockRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ListFilter narrows ledger listings. Zero values match everything.
type ListFilter struct {
	Status      Status
	AssignedTo  string
	RequestedBy string
}
