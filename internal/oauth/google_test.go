package oauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newTestGoogleProvider(tokenURL, userInfoURL string) *GoogleProvider {
	p := NewGoogleProvider("client-id", "client-secret", "https://api.test/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  tokenURL + "/auth",
		TokenURL: tokenURL + "/token",
	}
	p.userInfoURL = userInfoURL
	return p
}

func TestGoogleProvider_GenerateAuthURL(t *testing.T) {
	t.Parallel()

	p := NewGoogleProvider("client-id", "client-secret", "https://api.test/callback")

	req, err := p.GenerateAuthURL("")
	require.NoError(t, err)
	assert.NotEmpty(t, req.State)
	assert.NotEmpty(t, req.CodeVerifier)
	assert.Contains(t, req.URL, "state="+req.State)
	assert.Contains(t, req.URL, "code_challenge=")
	assert.Contains(t, req.URL, "access_type=offline")

	custom, err := p.GenerateAuthURL("https://other.test/cb")
	require.NoError(t, err)
	assert.Contains(t, custom.URL, "other.test")

	// Two requests never share a state.
	again, err := p.GenerateAuthURL("")
	require.NoError(t, err)
	assert.NotEqual(t, req.State, again.State)
}

func TestGoogleProvider_GenerateAuthURL_NotConfigured(t *testing.T) {
	t.Parallel()

	p := NewGoogleProvider("", "", "")
	_, err := p.GenerateAuthURL("")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGoogleProvider_HandleCallback_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/token"):
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"at-123","refresh_token":"rt-456","token_type":"Bearer","expires_in":3600}`))
		case strings.HasSuffix(r.URL.Path, "/userinfo"):
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"sub":"g-123","email":"new@x.com","email_verified":true,"given_name":"Ada","family_name":"Lovelace","picture":"https://img.test/ada.png"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := newTestGoogleProvider(srv.URL, srv.URL+"/userinfo")

	data, tokens, err := p.HandleCallback(context.Background(), "auth-code", "verifier")
	require.NoError(t, err)

	assert.Equal(t, "google", data.Provider)
	assert.Equal(t, "g-123", data.ProviderUserID)
	assert.Equal(t, "new@x.com", data.Email)
	assert.True(t, data.EmailVerified)
	assert.Equal(t, "Ada", data.FirstName)
	assert.Equal(t, "Lovelace", data.LastName)
	assert.Equal(t, "https://img.test/ada.png", data.ProfilePicture)
	assert.NotEmpty(t, data.Raw)

	assert.Equal(t, "at-123", tokens.AccessToken)
	assert.Equal(t, "rt-456", tokens.RefreshToken)
	require.NotNil(t, tokens.ExpiresAt)
}

func TestGoogleProvider_HandleCallback_ExpiredCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Code was already redeemed."}`))
	}))
	defer srv.Close()

	p := newTestGoogleProvider(srv.URL, srv.URL+"/userinfo")

	_, _, err := p.HandleCallback(context.Background(), "stale-code", "verifier")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExchangeFailed)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestGoogleProvider_HandleCallback_ProviderUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	p := newTestGoogleProvider(srv.URL, srv.URL+"/userinfo")

	_, _, err := p.HandleCallback(context.Background(), "code", "verifier")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnreachable)
}

func TestGoogleProvider_HandleCallback_MissingSubject(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/token") {
			w.Write([]byte(`{"access_token":"at","token_type":"Bearer"}`))
			return
		}
		w.Write([]byte(`{"email":"no-subject@x.com"}`))
	}))
	defer srv.Close()

	p := newTestGoogleProvider(srv.URL, srv.URL+"/userinfo")

	_, _, err := p.HandleCallback(context.Background(), "code", "verifier")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGoogleProvider_HandleCallback_NotConfigured(t *testing.T) {
	t.Parallel()

	p := NewGoogleProvider("", "", "")
	_, _, err := p.HandleCallback(context.Background(), "code", "verifier")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
