package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/framehire/framehire-backend/internal/cache"
	"github.com/framehire/framehire-backend/internal/config"
	"github.com/framehire/framehire-backend/internal/database"
	"github.com/framehire/framehire-backend/internal/models"
	"github.com/framehire/framehire-backend/internal/oauth"
	"github.com/framehire/framehire-backend/internal/secrets"
	"github.com/framehire/framehire-backend/internal/services"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testCipherKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

// fakeProvider returns canned results so callback tests can exercise every
// redirect outcome without a network.
type fakeProvider struct {
	userData *oauth.UserData
	tokens   *oauth.Tokens
	err      error
}

func (p *fakeProvider) Name() string { return "google" }

func (p *fakeProvider) GenerateAuthURL(string) (*oauth.AuthRequest, error) {
	return &oauth.AuthRequest{
		URL:          "https://provider.test/auth?state=state-123",
		State:        "state-123",
		CodeVerifier: "verifier-abc",
	}, nil
}

func (p *fakeProvider) HandleCallback(context.Context, string, string) (*oauth.UserData, *oauth.Tokens, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.userData, p.tokens, nil
}

func newCallbackApp(t *testing.T, provider oauth.Provider) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedRoles(db))

	cipher, err := secrets.NewCipher(testCipherKey)
	require.NoError(t, err)
	tokenService := services.NewTokenService("test-jwt-secret", 0)
	oauthService := services.NewOAuthService(db, tokenService, cipher)

	store := cache.NewMemoryStore()
	t.Cleanup(store.Stop)

	cfg := &config.Config{
		FrontendSuccessURL: "https://app.test/auth/callback",
		FrontendErrorURL:   "https://app.test/auth/error",
	}
	handler := NewOAuthHandler(map[string]oauth.Provider{"google": provider}, oauthService, store, cfg)

	app := fiber.New()
	app.Get("/auth/:provider", handler.Authorize)
	app.Get("/auth/:provider/callback", handler.Callback)
	return app, db
}

func doCallback(t *testing.T, app *fiber.App, target string, withStateCookie bool) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if withStateCookie {
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: "state-123"})
		req.AddCookie(&http.Cookie{Name: verifierCookie, Value: "verifier-abc"})
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func locationQuery(t *testing.T, resp *http.Response) (string, url.Values) {
	t.Helper()
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return loc.Scheme + "://" + loc.Host + loc.Path, loc.Query()
}

func TestAuthorize_RedirectsWithFlowCookies(t *testing.T) {
	t.Parallel()

	app, _ := newCallbackApp(t, &fakeProvider{})
	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://provider.test/auth?state=state-123", resp.Header.Get("Location"))

	cookies := resp.Header.Values("Set-Cookie")
	joined := strings.Join(cookies, "\n")
	assert.Contains(t, joined, stateCookie+"=state-123")
	assert.Contains(t, joined, verifierCookie+"=verifier-abc")
	assert.Contains(t, joined, "HttpOnly")
}

func TestAuthorize_UnknownProvider(t *testing.T) {
	t.Parallel()

	app, _ := newCallbackApp(t, &fakeProvider{})
	req := httptest.NewRequest(http.MethodGet, "/auth/myspace", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCallback_SuccessRedirectsWithToken(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		userData: &oauth.UserData{
			Provider:       "google",
			ProviderUserID: "g-1",
			Email:          "new@x.com",
			EmailVerified:  true,
		},
		tokens: &oauth.Tokens{AccessToken: "access-1"},
	}
	app, _ := newCallbackApp(t, provider)

	resp := doCallback(t, app, "/auth/google/callback?state=state-123&code=abc", true)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)

	base, query := locationQuery(t, resp)
	assert.Equal(t, "https://app.test/auth/callback", base)
	assert.NotEmpty(t, query.Get("token"))
	assert.Equal(t, "true", query.Get("isNewUser"))
	assert.Equal(t, "google", query.Get("provider"))
	assert.NotEmpty(t, query.Get("userId"))

	// Flow cookies are cleared on the way out.
	assert.Contains(t, strings.Join(resp.Header.Values("Set-Cookie"), "\n"), stateCookie+"=;")
}

func TestCallback_ErrorRedirects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		target      string
		stateCookie bool
		providerErr error
		wantCode    string
	}{
		{
			name:        "provider reports denial",
			target:      "/auth/google/callback?error=access_denied",
			stateCookie: true,
			wantCode:    "access_denied",
		},
		{
			name:        "state mismatch",
			target:      "/auth/google/callback?state=evil&code=abc",
			stateCookie: true,
			wantCode:    "invalid_state",
		},
		{
			name:     "missing state cookie",
			target:   "/auth/google/callback?state=state-123&code=abc",
			wantCode: "invalid_state",
		},
		{
			name:        "missing code",
			target:      "/auth/google/callback?state=state-123",
			stateCookie: true,
			wantCode:    "invalid_request",
		},
		{
			name:        "unknown provider",
			target:      "/auth/myspace/callback?state=state-123&code=abc",
			stateCookie: true,
			wantCode:    "invalid_request",
		},
		{
			name:        "exchange rejected",
			target:      "/auth/google/callback?state=state-123&code=abc",
			stateCookie: true,
			providerErr: oauth.ErrExchangeFailed,
			wantCode:    "invalid_grant",
		},
		{
			name:        "provider unreachable",
			target:      "/auth/google/callback?state=state-123&code=abc",
			stateCookie: true,
			providerErr: oauth.ErrProviderUnreachable,
			wantCode:    "temporarily_unavailable",
		},
		{
			name:        "malformed profile",
			target:      "/auth/google/callback?state=state-123&code=abc",
			stateCookie: true,
			providerErr: oauth.ErrMalformedResponse,
			wantCode:    "server_error",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, _ := newCallbackApp(t, &fakeProvider{err: tt.providerErr})
			resp := doCallback(t, app, tt.target, tt.stateCookie)
			assert.Equal(t, fiber.StatusFound, resp.StatusCode)

			base, query := locationQuery(t, resp)
			assert.Equal(t, "https://app.test/auth/error", base)
			assert.Equal(t, tt.wantCode, query.Get("error"))
			assert.NotEmpty(t, query.Get("message"))
		})
	}
}

func TestCallback_StateIsSingleUse(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		userData: &oauth.UserData{
			Provider:       "google",
			ProviderUserID: "g-1",
			Email:          "new@x.com",
			EmailVerified:  true,
		},
		tokens: &oauth.Tokens{AccessToken: "access-1"},
	}
	app, _ := newCallbackApp(t, provider)

	first := doCallback(t, app, "/auth/google/callback?state=state-123&code=abc", true)
	base, _ := locationQuery(t, first)
	assert.Equal(t, "https://app.test/auth/callback", base)

	replay := doCallback(t, app, "/auth/google/callback?state=state-123&code=abc", true)
	base, query := locationQuery(t, replay)
	assert.Equal(t, "https://app.test/auth/error", base)
	assert.Equal(t, "invalid_state", query.Get("error"))
}

func TestCallback_BannedAccountRedirectsAccessDenied(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		userData: &oauth.UserData{
			Provider:       "google",
			ProviderUserID: "g-1",
			Email:          "banned@x.com",
			EmailVerified:  true,
		},
		tokens: &oauth.Tokens{AccessToken: "access-1"},
	}
	app, db := newCallbackApp(t, provider)

	banned := models.User{ID: uuid.New(), Email: "banned@x.com", Username: "banned", IsBanned: true, IsActive: true}
	require.NoError(t, db.Create(&banned).Error)

	resp := doCallback(t, app, "/auth/google/callback?state=state-123&code=abc", true)
	base, query := locationQuery(t, resp)
	assert.Equal(t, "https://app.test/auth/error", base)
	assert.Equal(t, "access_denied", query.Get("error"))
}
