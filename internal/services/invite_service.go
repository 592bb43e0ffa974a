package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/framehire/framehire-backend/internal/dto"
	"github.com/framehire/framehire-backend/internal/email"
	"github.com/framehire/framehire-backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInviteInvalid = errors.New("invite is invalid or expired")

// InviteService lets admins pre-authorize registrations for a role. The
// invite email is fire-and-forget: a send failure is logged and never rolls
// back the created invite.
type InviteService struct {
	db          *gorm.DB
	roles       *RoleService
	sender      email.Sender
	frontendURL string
	expiry      time.Duration
}

func NewInviteService(db *gorm.DB, roles *RoleService, sender email.Sender, frontendURL string, expiry time.Duration) *InviteService {
	if expiry <= 0 {
		expiry = 72 * time.Hour
	}
	return &InviteService{
		db:          db,
		roles:       roles,
		sender:      sender,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		expiry:      expiry,
	}
}

// CreateInvite stores a hashed invite token and emails the raw one. The raw
// token is also returned so admin tooling can hand the link out directly.
func (s *InviteService) CreateInvite(ctx context.Context, adminID uuid.UUID, toEmail, roleName string) (*models.Invite, string, error) {
	toEmail = strings.ToLower(strings.TrimSpace(toEmail))
	roleName = strings.ToUpper(strings.TrimSpace(roleName))
	if toEmail == "" || !strings.Contains(toEmail, "@") {
		return nil, "", errors.New("a valid email is required")
	}

	db := s.db.WithContext(ctx)

	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", fmt.Errorf("%w: %s", ErrUnknownRole, roleName)
		}
		return nil, "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	rawToken := base64.RawURLEncoding.EncodeToString(raw)

	invite := models.Invite{
		ID:        uuid.New(),
		Email:     toEmail,
		RoleName:  roleName,
		TokenHash: hashToken(rawToken),
		InvitedBy: adminID,
		ExpiresAt: time.Now().Add(s.expiry),
	}
	if err := db.Create(&invite).Error; err != nil {
		return nil, "", fmt.Errorf("failed to create invite: %w", err)
	}

	inviteURL := s.frontendURL + "/invite?token=" + rawToken
	go func(to, role, url string) {
		if err := s.sender.SendInvite(context.Background(), to, role, url); err != nil {
			slog.Error("invite email failed", "action", "invite_send", "error", err)
		}
	}(toEmail, roleName, inviteURL)

	return &invite, rawToken, nil
}

// AcceptInvite creates the invited user and grants the invited role through
// the role assignment workflow.
func (s *InviteService) AcceptInvite(ctx context.Context, req *dto.AcceptInviteRequest) (*RoleAssignment, *models.User, error) {
	if len(req.Password) < 8 {
		return nil, nil, errors.New("password must be at least 8 characters")
	}

	var invite models.Invite
	var user models.User
	assignment := &RoleAssignment{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("token_hash = ? AND accepted_at IS NULL", hashToken(req.Token)).First(&invite).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInviteInvalid
			}
			return err
		}
		if time.Now().After(invite.ExpiresAt) {
			return ErrInviteInvalid
		}

		var existing models.User
		if err := tx.Where("email = ?", invite.Email).First(&existing).Error; err == nil {
			return ErrEmailTaken
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		username := strings.TrimSpace(req.Username)
		if username == "" {
			username = generateUsername(invite.Email)
		}

		user = models.User{
			ID:            uuid.New(),
			Email:         invite.Email,
			Username:      username,
			PasswordHash:  string(hash),
			FirstName:     strings.TrimSpace(req.FirstName),
			LastName:      strings.TrimSpace(req.LastName),
			EmailVerified: true,
			IsActive:      true,
		}
		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		// The grant shares this transaction: a failed grant rolls back the
		// user and leaves the invite unconsumed.
		if err := s.roles.grantRole(tx, &user, invite.RoleName, assignment); err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&invite).Update("accepted_at", now).Error
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.roles.finishAssignment(ctx, &user, assignment); err != nil {
		return nil, nil, err
	}
	return assignment, &user, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
