package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/framehire/framehire-backend/internal/models"
	"github.com/framehire/framehire-backend/internal/oauth"
	"github.com/framehire/framehire-backend/internal/secrets"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrAccountForbidden    = errors.New("account is banned or deactivated")
	ErrInvalidProviderData = errors.New("provider identity is incomplete")
	ErrLastCredential      = errors.New("cannot unlink the only sign-in method")
)

// LoginResult is what every successful authentication returns.
type LoginResult struct {
	User      *models.User
	Token     string
	Roles     []string
	IsNewUser bool
}

// OAuthService is the account linking engine: given a verified provider
// identity it reuses, links or creates exactly one local user, inside one
// transaction.
type OAuthService struct {
	db     *gorm.DB
	tokens *TokenService
	cipher *secrets.Cipher
}

func NewOAuthService(db *gorm.DB, tokens *TokenService, cipher *secrets.Cipher) *OAuthService {
	return &OAuthService{db: db, tokens: tokens, cipher: cipher}
}

// FindOrCreateOAuthUser resolves a provider identity to a local user.
//
// Returning identity: stored tokens are refreshed and the linked user
// reused. Known email: the identity is linked to that user without touching
// roles. Otherwise a new user is created with zero roles (pending role
// selection). All writes for one call share a transaction; a concurrent
// first-time callback losing the unique-constraint race on
// (provider, provider_user_id) retries once as a returning login.
func (s *OAuthService) FindOrCreateOAuthUser(ctx context.Context, data *oauth.UserData, providerTokens *oauth.Tokens) (*LoginResult, error) {
	if data == nil || data.Provider == "" || data.ProviderUserID == "" {
		return nil, ErrInvalidProviderData
	}
	email := strings.ToLower(strings.TrimSpace(data.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: missing email", ErrInvalidProviderData)
	}
	if providerTokens == nil {
		providerTokens = &oauth.Tokens{}
	}

	if !data.EmailVerified {
		// Permissive on purpose: providers with lax verification would
		// otherwise lock out legitimate users.
		slog.Warn("accepting unverified provider email",
			"provider", data.Provider, "action", "oauth_link")
	}

	var resolved models.User
	var isNew bool

	attempt := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var account models.OAuthAccount
			err := tx.Where("provider = ? AND provider_user_id = ?", data.Provider, data.ProviderUserID).
				First(&account).Error

			switch {
			case err == nil:
				// Returning login for a linked identity.
				var user models.User
				if err := tx.First(&user, "id = ?", account.UserID).Error; err != nil {
					return fmt.Errorf("linked user missing: %w", err)
				}
				if user.IsBanned || !user.IsActive {
					return ErrAccountForbidden
				}
				if err := s.refreshStoredTokens(tx, &account, providerTokens, data.Raw); err != nil {
					return err
				}
				if err := s.recordLogin(tx, user.ID); err != nil {
					return err
				}
				resolved, isNew = user, false
				return nil

			case errors.Is(err, gorm.ErrRecordNotFound):
				var user models.User
				err := tx.Where("email = ?", email).First(&user).Error
				if err == nil {
					// Known email: link the identity to the existing user.
					if user.IsBanned || !user.IsActive {
						return ErrAccountForbidden
					}
					if err := s.createLink(tx, user.ID, data, providerTokens); err != nil {
						return err
					}
					if err := s.backfillProfile(tx, &user, data); err != nil {
						return err
					}
					if err := s.recordLogin(tx, user.ID); err != nil {
						return err
					}
					resolved, isNew = user, false
					return nil
				}
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}

				// First contact: create the user, leave it without roles so
				// the role selection step runs next.
				user = models.User{
					ID:             uuid.New(),
					Email:          email,
					Username:       generateUsername(email),
					PasswordHash:   "",
					FirstName:      data.FirstName,
					LastName:       data.LastName,
					ProfilePicture: data.ProfilePicture,
					EmailVerified:  data.EmailVerified,
					IsActive:       true,
				}
				if err := tx.Create(&user).Error; err != nil {
					return fmt.Errorf("failed to create user: %w", err)
				}
				if err := s.createLink(tx, user.ID, data, providerTokens); err != nil {
					return err
				}
				if err := s.recordLogin(tx, user.ID); err != nil {
					return err
				}
				resolved, isNew = user, true
				return nil

			default:
				return err
			}
		})
	}

	err := attempt()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Someone else just linked this identity; the lookup now finds it.
		slog.Info("provider identity linked concurrently, retrying lookup",
			"provider", data.Provider)
		err = attempt()
	}
	if err != nil {
		return nil, err
	}

	// Clean read after commit for the role claims.
	roles, err := userRoleNames(s.db.WithContext(ctx), resolved.ID)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(&resolved, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{User: &resolved, Token: token, Roles: roles, IsNewUser: isNew}, nil
}

// UnlinkProvider removes one provider link. The last remaining sign-in
// method (no password, single link) cannot be removed.
func (s *OAuthService) UnlinkProvider(ctx context.Context, userID uuid.UUID, provider string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var account models.OAuthAccount
		if err := tx.Where("user_id = ? AND provider = ?", userID, provider).First(&account).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no %s link for this user: %w", provider, gorm.ErrRecordNotFound)
			}
			return err
		}

		if user.PasswordHash == "" {
			var links int64
			if err := tx.Model(&models.OAuthAccount{}).Where("user_id = ?", userID).Count(&links).Error; err != nil {
				return err
			}
			if links <= 1 {
				return ErrLastCredential
			}
		}

		return tx.Delete(&account).Error
	})
}

// refreshStoredTokens overwrites the access token; the refresh token only
// when the provider sent a new one (some omit it on repeat exchanges).
func (s *OAuthService) refreshStoredTokens(tx *gorm.DB, account *models.OAuthAccount, providerTokens *oauth.Tokens, raw []byte) error {
	access, err := s.cipher.Encrypt(providerTokens.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	updates := map[string]interface{}{
		"access_token":     access,
		"token_expires_at": providerTokens.ExpiresAt,
	}
	if providerTokens.RefreshToken != "" {
		refresh, err := s.cipher.Encrypt(providerTokens.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		updates["refresh_token"] = refresh
	}
	if len(raw) > 0 {
		updates["raw_profile"] = datatypes.JSON(raw)
	}

	return tx.Model(account).Updates(updates).Error
}

func (s *OAuthService) createLink(tx *gorm.DB, userID uuid.UUID, data *oauth.UserData, providerTokens *oauth.Tokens) error {
	access, err := s.cipher.Encrypt(providerTokens.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refresh, err := s.cipher.Encrypt(providerTokens.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	account := models.OAuthAccount{
		ID:             uuid.New(),
		UserID:         userID,
		Provider:       data.Provider,
		ProviderUserID: data.ProviderUserID,
		AccessToken:    access,
		RefreshToken:   refresh,
		TokenExpiresAt: providerTokens.ExpiresAt,
	}
	if len(data.Raw) > 0 {
		account.RawProfile = datatypes.JSON(data.Raw)
	}
	return tx.Create(&account).Error
}

// backfillProfile fills the picture and verification flag only when unset;
// existing values are never overwritten by provider data.
func (s *OAuthService) backfillProfile(tx *gorm.DB, user *models.User, data *oauth.UserData) error {
	updates := map[string]interface{}{}
	if user.ProfilePicture == "" && data.ProfilePicture != "" {
		updates["profile_picture"] = data.ProfilePicture
		user.ProfilePicture = data.ProfilePicture
	}
	if !user.EmailVerified && data.EmailVerified {
		updates["email_verified"] = true
		user.EmailVerified = true
	}
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error
}

func (s *OAuthService) recordLogin(tx *gorm.DB, userID uuid.UUID) error {
	return tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"last_login_at":         time.Now(),
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error
}

// generateUsername derives a handle from the email local-part plus a random
// suffix so concurrent signups with the same local-part do not collide.
func generateUsername(email string) string {
	local := strings.SplitN(email, "@", 2)[0]
	var b strings.Builder
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "user"
	}
	if len(base) > 24 {
		base = base[:24]
	}
	suffix := uuid.New()
	return base + "-" + hex.EncodeToString(suffix[:4])
}
