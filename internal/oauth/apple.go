package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

const appleAuthorizeURL = "https://appleid.apple.com/auth/authorize"

// AppleProvider verifies the identity token Apple posts back to the
// callback instead of running a code-for-token exchange; Sign in with Apple
// delivers identity inside a signed JWT.
type AppleProvider struct {
	clientID    string
	redirectURL string
	keys        *appleKeyClient
}

func NewAppleProvider(clientID, redirectURL string) *AppleProvider {
	return &AppleProvider{
		clientID:    clientID,
		redirectURL: redirectURL,
		keys:        newAppleKeyClient(),
	}
}

func (p *AppleProvider) Name() string { return "apple" }

func (p *AppleProvider) GenerateAuthURL(customRedirect string) (*AuthRequest, error) {
	if p.clientID == "" {
		return nil, ErrNotConfigured
	}

	state, err := NewState()
	if err != nil {
		return nil, err
	}

	redirect := p.redirectURL
	if customRedirect != "" {
		redirect = customRedirect
	}

	q := url.Values{}
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", redirect)
	q.Set("response_type", "code id_token")
	q.Set("response_mode", "form_post")
	q.Set("scope", "name email")
	q.Set("state", state)

	return &AuthRequest{URL: appleAuthorizeURL + "?" + q.Encode(), State: state}, nil
}

func (p *AppleProvider) HandleCallback(_ context.Context, _ string, identityToken string) (*UserData, *Tokens, error) {
	if p.clientID == "" {
		return nil, nil, ErrNotConfigured
	}
	if identityToken == "" {
		return nil, nil, fmt.Errorf("%w: missing identity token", ErrMalformedResponse)
	}

	claims, err := p.keys.verifyIdentityToken(identityToken, p.clientID)
	if err != nil {
		return nil, nil, err
	}
	if claims.Sub == "" {
		return nil, nil, fmt.Errorf("%w: missing subject identifier", ErrMalformedResponse)
	}

	email := claims.Email
	if email == "" {
		// Hidden-email users get a private relay address keyed to the subject.
		email = claims.Sub + "@privaterelay.appleid.com"
	}

	raw, _ := json.Marshal(claims)
	expiry := time.Unix(claims.Exp, 0)

	data := &UserData{
		Provider:       p.Name(),
		ProviderUserID: claims.Sub,
		Email:          email,
		EmailVerified:  appleEmailVerified(claims.EmailVerified),
		Raw:            raw,
	}
	// The verified identity token is the credential Apple hands us; there is
	// no separate access token without a signed client secret.
	tokens := &Tokens{AccessToken: identityToken, ExpiresAt: &expiry}
	return data, tokens, nil
}

// Apple sends email_verified as either a bool or the string "true".
func appleEmailVerified(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true"
	default:
		return false
	}
}
