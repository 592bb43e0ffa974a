package models

import (
	"time"

	"github.com/google/uuid"
)

// ClientProfile is provisioned once when a user first takes the CLIENT role.
type ClientProfile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	CompanyName string    `gorm:"size:255" json:"company_name"`
	Website     string    `gorm:"size:500" json:"website"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
}

// FreelancerProfile backs both videographer and video editor roles; the
// per-craft sub-profile hangs off it.
type FreelancerProfile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	HourlyRate   float64   `gorm:"default:0" json:"hourly_rate"`
	Currency     string    `gorm:"size:3;default:'USD'" json:"currency"`
	Availability string    `gorm:"size:20;default:'available'" json:"availability"`
	Bio          string    `gorm:"size:2000" json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
}

type VideographerProfile struct {
	ID                  uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	FreelancerProfileID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"freelancer_profile_id"`
	Equipment           string            `gorm:"size:1000" json:"equipment"`
	TravelRadiusKm      int               `gorm:"default:0" json:"travel_radius_km"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	FreelancerProfile   FreelancerProfile `gorm:"foreignKey:FreelancerProfileID" json:"-"`
}

type VideoEditorProfile struct {
	ID                  uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	FreelancerProfileID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"freelancer_profile_id"`
	Software            string            `gorm:"size:1000" json:"software"`
	TurnaroundDays      int               `gorm:"default:0" json:"turnaround_days"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	FreelancerProfile   FreelancerProfile `gorm:"foreignKey:FreelancerProfileID" json:"-"`
}
