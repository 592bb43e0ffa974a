package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/framehire/framehire-backend/internal/dto"
	"github.com/framehire/framehire-backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// AuthService handles local (password) registration and login.
type AuthService struct {
	db     *gorm.DB
	tokens *TokenService
}

func NewAuthService(db *gorm.DB, tokens *TokenService) *AuthService {
	return &AuthService{db: db, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if username == "" {
		username = generateUsername(email)
	}

	db := s.db.WithContext(ctx)

	var existing models.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(&user, nil)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: &user, Token: token, IsNewUser: true}, nil
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.IsBanned || !user.IsActive {
		return nil, ErrAccountForbidden
	}
	if user.LockedUntil != nil && time.Now().Before(*user.LockedUntil) {
		return nil, ErrAccountLocked
	}
	if user.PasswordHash == "" {
		// OAuth-only account; there is no password to check.
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		if err := s.recordFailedLogin(db, &user); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"last_login_at":         time.Now(),
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error; err != nil {
		return nil, err
	}

	roles, err := userRoleNames(db, user.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(&user, roles)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: &user, Token: token, Roles: roles, IsNewUser: false}, nil
}

func (s *AuthService) recordFailedLogin(db *gorm.DB, user *models.User) error {
	attempts := user.FailedLoginAttempts + 1
	updates := map[string]interface{}{"failed_login_attempts": attempts}
	if attempts >= maxFailedLogins {
		updates["locked_until"] = time.Now().Add(lockoutDuration)
	}
	return db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error
}

// GetUser loads one user by id.
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, []string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}
	roles, err := userRoleNames(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, nil, err
	}
	return &user, roles, nil
}
