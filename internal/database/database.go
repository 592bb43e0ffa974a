package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/framehire/framehire-backend/internal/config"
	"github.com/framehire/framehire-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	// TranslateError lets the linking engine detect unique-constraint races
	// as gorm.ErrDuplicatedKey.
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Migrate runs AutoMigrate for all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.OAuthAccount{},
		&models.Role{},
		&models.UserRole{},
		&models.ClientProfile{},
		&models.FreelancerProfile{},
		&models.VideographerProfile{},
		&models.VideoEditorProfile{},
		&models.Invite{},
		&models.SystemLog{},
	)
}

// SeedRoles inserts the built-in roles if they are missing.
func SeedRoles(db *gorm.DB) error {
	roles := []models.Role{
		{Name: models.RoleClient, Description: "Hires videographers and editors"},
		{Name: models.RoleVideographer, Description: "Shoots video on location"},
		{Name: models.RoleVideoEditor, Description: "Edits delivered footage"},
		{Name: models.RoleAdmin, Description: "Platform administrator"},
	}
	for _, r := range roles {
		var existing models.Role
		if err := db.Where("name = ?", r.Name).First(&existing).Error; err == nil {
			continue
		}
		r.ID = uuid.New()
		if err := db.Create(&r).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", r.Name, err)
		}
	}
	return nil
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
