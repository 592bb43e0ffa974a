package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/framehire/framehire-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUnknownRole = errors.New("unknown role")

// RoleAssignment is the outcome of SetRole: a token reflecting the updated
// role set plus side-effect metadata.
type RoleAssignment struct {
	Token              string
	Roles              []string
	AlreadyAssigned    bool
	SignupBonusGranted bool
}

// RoleStatus is the read half of the workflow.
type RoleStatus struct {
	Roles              []string
	NeedsRoleSelection bool
}

// RoleService moves a user from "pending role selection" to "active with
// role", provisioning the role-specific profile in the same transaction.
type RoleService struct {
	db     *gorm.DB
	tokens *TokenService
}

func NewRoleService(db *gorm.DB, tokens *TokenService) *RoleService {
	return &RoleService{db: db, tokens: tokens}
}

// SetRole grants roleName to the user, idempotently. The role row and its
// backing profile are created together or not at all.
func (s *RoleService) SetRole(ctx context.Context, userID uuid.UUID, roleName string) (*RoleAssignment, error) {
	roleName = strings.ToUpper(strings.TrimSpace(roleName))

	var user models.User
	assignment := &RoleAssignment{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return s.grantRole(tx, &user, roleName, assignment)
	})
	if err != nil {
		return nil, err
	}

	if err := s.finishAssignment(ctx, &user, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// grantRole runs inside the caller's transaction, so a failed grant rolls
// back together with whatever created the user. roleName must already be
// normalized.
func (s *RoleService) grantRole(tx *gorm.DB, user *models.User, roleName string, assignment *RoleAssignment) error {
	var role models.Role
	if err := tx.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownRole, roleName)
		}
		return err
	}

	var existing models.UserRole
	err := tx.Where("user_id = ? AND role_id = ?", user.ID, role.ID).First(&existing).Error
	if err == nil {
		assignment.AlreadyAssigned = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	} else {
		grant := models.UserRole{ID: uuid.New(), UserID: user.ID, RoleID: role.ID}
		if err := tx.Create(&grant).Error; err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}
		if err := s.provisionProfile(tx, user, roleName); err != nil {
			return err
		}
	}

	if user.SignupBonusAt == nil && !assignment.AlreadyAssigned {
		now := time.Now()
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("signup_bonus_at", now).Error; err != nil {
			return err
		}
		user.SignupBonusAt = &now
		assignment.SignupBonusGranted = true
	}
	return nil
}

// finishAssignment reloads the committed role set and issues the token
// reflecting it.
func (s *RoleService) finishAssignment(ctx context.Context, user *models.User, assignment *RoleAssignment) error {
	roles, err := userRoleNames(s.db.WithContext(ctx), user.ID)
	if err != nil {
		return err
	}
	token, err := s.tokens.Issue(user, roles)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	assignment.Token = token
	assignment.Roles = roles
	return nil
}

// GetUserRoleStatus is a pure read; NeedsRoleSelection is the only signal
// the HTTP surface uses to route a fresh OAuth user to role selection.
func (s *RoleService) GetUserRoleStatus(ctx context.Context, userID uuid.UUID) (*RoleStatus, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	roles, err := userRoleNames(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return &RoleStatus{Roles: roles, NeedsRoleSelection: len(roles) == 0}, nil
}

// provisionProfile creates the role-specific rows, each exactly once per
// user per role.
func (s *RoleService) provisionProfile(tx *gorm.DB, user *models.User, roleName string) error {
	switch roleName {
	case models.RoleClient:
		return s.ensureClientProfile(tx, user.ID)
	case models.RoleVideographer, models.RoleVideoEditor:
		profile, err := s.ensureFreelancerProfile(tx, user.ID)
		if err != nil {
			return err
		}
		if roleName == models.RoleVideographer {
			return s.ensureVideographerProfile(tx, profile.ID)
		}
		return s.ensureVideoEditorProfile(tx, profile.ID)
	case models.RoleAdmin:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownRole, roleName)
	}
}

func (s *RoleService) ensureClientProfile(tx *gorm.DB, userID uuid.UUID) error {
	var existing models.ClientProfile
	err := tx.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&models.ClientProfile{ID: uuid.New(), UserID: userID}).Error
}

func (s *RoleService) ensureFreelancerProfile(tx *gorm.DB, userID uuid.UUID) (*models.FreelancerProfile, error) {
	var existing models.FreelancerProfile
	err := tx.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	profile := models.FreelancerProfile{
		ID:           uuid.New(),
		UserID:       userID,
		HourlyRate:   0,
		Currency:     "USD",
		Availability: "available",
	}
	if err := tx.Create(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *RoleService) ensureVideographerProfile(tx *gorm.DB, freelancerProfileID uuid.UUID) error {
	var existing models.VideographerProfile
	err := tx.Where("freelancer_profile_id = ?", freelancerProfileID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&models.VideographerProfile{ID: uuid.New(), FreelancerProfileID: freelancerProfileID}).Error
}

func (s *RoleService) ensureVideoEditorProfile(tx *gorm.DB, freelancerProfileID uuid.UUID) error {
	var existing models.VideoEditorProfile
	err := tx.Where("freelancer_profile_id = ?", freelancerProfileID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.Create(&models.VideoEditorProfile{ID: uuid.New(), FreelancerProfileID: freelancerProfileID}).Error
}

// userRoleNames lists role names for a user through the join table.
func userRoleNames(db *gorm.DB, userID uuid.UUID) ([]string, error) {
	var names []string
	err := db.Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ?", userID).
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
