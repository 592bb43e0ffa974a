package services

import (
	"context"
	"testing"

	"github.com/framehire/framehire-backend/internal/dto"
	"github.com/framehire/framehire-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewAuthService(db, newTestTokenService()), db
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "User@X.com",
		Username: "ada",
		Password: "supersecret",
	})
	require.NoError(t, err)
	assert.True(t, result.IsNewUser)
	assert.Equal(t, "user@x.com", result.User.Email)
	assert.NotEqual(t, "supersecret", result.User.PasswordHash)

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "user@x.com", Password: "supersecret"})
	require.NoError(t, err)
	assert.False(t, login.IsNewUser)
	assert.Equal(t, result.User.ID, login.User.ID)
	assert.NotEmpty(t, login.Token)
}

func TestAuthService_Register_Validation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  dto.RegisterRequest
	}{
		{name: "missing email", req: dto.RegisterRequest{Password: "supersecret"}},
		{name: "invalid email", req: dto.RegisterRequest{Email: "nope", Password: "supersecret"}},
		{name: "short password", req: dto.RegisterRequest{Email: "a@x.com", Password: "short"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.Register(ctx, &tt.req)
			require.Error(t, err)
		})
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Email: "a@x.com", Username: "first", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, &dto.RegisterRequest{Email: "A@X.COM", Username: "second", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_Login_WrongPasswordLocksAfterFiveAttempts(t *testing.T) {
	t.Parallel()

	svc, db := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, &dto.RegisterRequest{Email: "a@x.com", Username: "ada", Password: "supersecret"})
	require.NoError(t, err)

	for i := 0; i < maxFailedLogins; i++ {
		_, err = svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", result.User.ID).Error)
	assert.NotNil(t, user.LockedUntil)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestAuthService_Login_SuccessResetsFailedAttempts(t *testing.T) {
	t.Parallel()

	svc, db := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, &dto.RegisterRequest{Email: "a@x.com", Username: "ada", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "supersecret"})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", result.User.ID).Error)
	assert.Zero(t, user.FailedLoginAttempts)
	assert.Nil(t, user.LockedUntil)
	assert.NotNil(t, user.LastLoginAt)
}

func TestAuthService_Login_OAuthOnlyAccountHasNoPassword(t *testing.T) {
	t.Parallel()

	svc, db := newTestAuthService(t)
	ctx := context.Background()

	oauthOnly := models.User{ID: uuid.New(), Email: "oauth@x.com", Username: "oauth-user", IsActive: true}
	require.NoError(t, db.Create(&oauthOnly).Error)

	_, err := svc.Login(ctx, &dto.LoginRequest{Email: "oauth@x.com", Password: "anything"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_Login_BannedUser(t *testing.T) {
	t.Parallel()

	svc, db := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.Register(ctx, &dto.RegisterRequest{Email: "a@x.com", Username: "ada", Password: "supersecret"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", result.User.ID).
		Update("is_banned", true).Error)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "a@x.com", Password: "supersecret"})
	assert.ErrorIs(t, err, ErrAccountForbidden)
}
