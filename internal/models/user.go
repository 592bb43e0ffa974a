package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the single identity record shared by local and OAuth sign-up.
// Email is stored lower-cased; PasswordHash is empty for OAuth-only accounts.
type User struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email               string         `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Username            string         `gorm:"size:100;not null;uniqueIndex" json:"username"`
	PasswordHash        string         `gorm:"size:255" json:"-"`
	FirstName           string         `gorm:"size:100" json:"first_name"`
	LastName            string         `gorm:"size:100" json:"last_name"`
	ProfilePicture      string         `gorm:"size:500" json:"profile_picture"`
	EmailVerified       bool           `gorm:"default:false" json:"email_verified"`
	IsBanned            bool           `gorm:"default:false" json:"-"`
	IsActive            bool           `gorm:"default:true" json:"-"`
	FailedLoginAttempts int            `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time     `json:"-"`
	LastLoginAt         *time.Time     `json:"last_login_at"`
	SignupBonusAt       *time.Time     `json:"-"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}
