package reveal

import "time"

// PendingAddress holds a requestor's shipping address sealed to the workspace
// relay key, parked until an admin approves the request.
type PendingAddress struct {
	RequestID     string    `json:"request_id"`
	SealedToRelay []byte    `json:"sealed_to_relay"`
	SubmittedBy   string    `json:"submitted_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// AddressReveal is the same address re-sealed to the assigned producer's
// public key. Only that producer can open it.
type AddressReveal struct {
	RequestID        string    `json:"request_id"`
	ProducerID       string    `json:"producer_id"`
	SealedToProducer []byte    `json:"sealed_to_producer"`
	CreatedAt        time.Time `json:"created_at"`
}

// SubmitPendingRequest carries the sealed address blob (base64 in JSON via
// the []byte field).
type SubmitPendingRequest struct {
	SealedAddress []byte `json:"sealed_address"`
}
