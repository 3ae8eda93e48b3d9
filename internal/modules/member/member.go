package member

import (
	"time"

	"github.com/google/uuid"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
)

// Member represents a workspace member.
// Producers are editor-role members; requestors are viewers; admins are owners.
type Member struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	DisplayName  string     `json:"display_name"`
	Role         actor.Role `json:"role"`
	// PublicKey is the member's curve25519 public key (base64, 32 bytes),
	// used to seal address reveals to this member.
	PublicKey string    `json:"public_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for creating a new member.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the payload for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateRoleRequest changes a member's workspace role. Owner-only.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// SetKeyRequest publishes a member's public key.
type SetKeyRequest struct {
	PublicKey string `json:"public_key"`
}
