package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProvider implements the adapter contract with PKCE (S256).
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) GenerateAuthURL(customRedirect string) (*AuthRequest, error) {
	if p.config.ClientID == "" || p.config.ClientSecret == "" {
		return nil, ErrNotConfigured
	}

	state, err := NewState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	cfg := p.config
	if customRedirect != "" {
		clone := *p.config
		clone.RedirectURL = customRedirect
		cfg = &clone
	}

	url := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)
	return &AuthRequest{URL: url, State: state, CodeVerifier: verifier}, nil
}

func (p *GoogleProvider) HandleCallback(ctx context.Context, code, verifier string) (*UserData, *Tokens, error) {
	if p.config.ClientID == "" || p.config.ClientSecret == "" {
		return nil, nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	tok, err := p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, nil, classifyExchangeError(err)
	}

	resp, err := p.config.Client(ctx, tok).Get(p.userInfoURL)
	if err != nil {
		return nil, nil, classifyExchangeError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: userinfo returned status %d", ErrMalformedResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if info.Sub == "" {
		return nil, nil, fmt.Errorf("%w: missing subject identifier", ErrMalformedResponse)
	}

	data := &UserData{
		Provider:       p.Name(),
		ProviderUserID: info.Sub,
		Email:          info.Email,
		EmailVerified:  info.EmailVerified,
		FirstName:      info.GivenName,
		LastName:       info.FamilyName,
		ProfilePicture: info.Picture,
		Raw:            body,
	}
	return data, tokensFromOAuth2(tok), nil
}
