package notify

import "time"

// Notification is a fire-and-forget message to a workspace member.
// There is no delivery guarantee; recipients poll their list.
type Notification struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Type        string    `json:"type"` // request_claimed, request_approved, ...
	Message     string    `json:"message"`
	RelatedID   string    `json:"related_id,omitempty"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}
