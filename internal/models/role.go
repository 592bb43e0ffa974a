package models

import (
	"time"

	"github.com/google/uuid"
)

// Role names recognized by the role assignment workflow.
const (
	RoleClient       = "CLIENT"
	RoleVideographer = "VIDEOGRAPHER"
	RoleVideoEditor  = "VIDEO_EDITOR"
	RoleAdmin        = "ADMIN"
)

type Role struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserRole is the many-to-many join between users and roles. A freshly
// created OAuth user has no rows here until role selection completes.
type UserRole struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_user_role" json:"user_id"`
	RoleID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_user_role" json:"role_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Role      Role      `gorm:"foreignKey:RoleID" json:"-"`
}
