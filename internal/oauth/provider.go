package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Failure classes the callback handler maps to distinct HTTP outcomes.
var (
	ErrNotConfigured       = errors.New("provider is not configured")
	ErrAccessDenied        = errors.New("user denied access")
	ErrExchangeFailed      = errors.New("authorization code exchange failed")
	ErrProviderUnreachable = errors.New("provider unreachable")
	ErrMalformedResponse   = errors.New("malformed provider response")
)

// exchangeTimeout bounds the token exchange and userinfo fetch.
const exchangeTimeout = 10 * time.Second

// UserData is the normalized profile every provider returns. Raw keeps the
// unmodified provider payload for audit storage.
type UserData struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	FirstName      string
	LastName       string
	ProfilePicture string
	Raw            json.RawMessage
}

// Tokens are the provider credentials captured during the exchange. The
// refresh token may be absent on subsequent exchanges.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// AuthRequest is what the authorize endpoint sends the browser off with.
// CodeVerifier is set only for providers using proof-key exchange.
type AuthRequest struct {
	URL          string
	State        string
	CodeVerifier string
}

// Provider is the per-provider adapter contract.
type Provider interface {
	Name() string
	GenerateAuthURL(customRedirect string) (*AuthRequest, error)
	// HandleCallback exchanges the authorization code (or, for Apple, verifies
	// the identity token passed as verifierOrIDToken) and fetches the profile.
	HandleCallback(ctx context.Context, code, verifierOrIDToken string) (*UserData, *Tokens, error)
}

// NewState returns a fresh random state value bound to the browser session.
func NewState() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// classifyExchangeError sorts provider errors into the taxonomy above.
func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.ErrorCode != "" {
			return fmt.Errorf("%w: %s", ErrExchangeFailed, retrieveErr.ErrorCode)
		}
		return fmt.Errorf("%w: status %d", ErrExchangeFailed, retrieveErr.Response.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timeout", ErrProviderUnreachable)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %v", ErrProviderUnreachable, urlErr.Err)
	}
	return fmt.Errorf("%w: %v", ErrExchangeFailed, err)
}

func tokensFromOAuth2(tok *oauth2.Token) *Tokens {
	t := &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		t.ExpiresAt = &expiry
	}
	return t
}
