package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OAuthAccount links one external provider identity to exactly one user.
// A user may hold several links (one per provider); the composite unique
// index makes (provider, provider_user_id) the identity key.
// AccessToken and RefreshToken are AES-GCM encrypted before storage.
type OAuthAccount struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Provider       string         `gorm:"size:30;not null;uniqueIndex:idx_oauth_provider_identity" json:"provider"`
	ProviderUserID string         `gorm:"size:255;not null;uniqueIndex:idx_oauth_provider_identity" json:"-"`
	AccessToken    string         `gorm:"type:text" json:"-"`
	RefreshToken   string         `gorm:"type:text" json:"-"`
	TokenExpiresAt *time.Time     `json:"-"`
	RawProfile     datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	User           User           `gorm:"foreignKey:UserID" json:"-"`
}
