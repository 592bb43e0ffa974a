package models

import (
	"time"

	"github.com/google/uuid"
)

// Invite lets an admin pre-authorize a registration for a given role.
// Only the SHA-256 hash of the invite token is stored.
type Invite struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string     `gorm:"size:255;not null;index" json:"email"`
	RoleName   string     `gorm:"size:50;not null" json:"role_name"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	InvitedBy  uuid.UUID  `gorm:"type:uuid;not null" json:"invited_by"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
