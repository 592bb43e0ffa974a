package handlers

import (
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/framehire/framehire-backend/internal/cache"
	"github.com/framehire/framehire-backend/internal/config"
	"github.com/framehire/framehire-backend/internal/dto"
	"github.com/framehire/framehire-backend/internal/middleware"
	"github.com/framehire/framehire-backend/internal/oauth"
	"github.com/framehire/framehire-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	stateCookie    = "oauth_state"
	verifierCookie = "oauth_verifier"

	// How long a browser has to finish the provider round trip.
	authFlowTTL = 10 * time.Minute
)

// Canonical error codes surfaced to the frontend error page.
const (
	errAccessDenied    = "access_denied"
	errInvalidState    = "invalid_state"
	errInvalidRequest  = "invalid_request"
	errInvalidGrant    = "invalid_grant"
	errServerError     = "server_error"
	errTempUnavailable = "temporarily_unavailable"
)

// errorMessages are the curated, user-safe descriptions per code. Raw
// provider errors stay in the logs.
var errorMessages = map[string]string{
	errAccessDenied:    "Sign-in was cancelled or this account is not allowed.",
	errInvalidState:    "The sign-in session expired or was already used. Please try again.",
	errInvalidRequest:  "The sign-in request was malformed. Please try again.",
	errInvalidGrant:    "The sign-in could not be completed. Please try again.",
	errServerError:     "Something went wrong on our side. Please try again later.",
	errTempUnavailable: "The sign-in provider is temporarily unavailable. Please try again later.",
}

type OAuthHandler struct {
	providers    map[string]oauth.Provider
	oauthService *services.OAuthService
	store        cache.Store
	cfg          *config.Config
}

func NewOAuthHandler(providers map[string]oauth.Provider, oauthService *services.OAuthService, store cache.Store, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{
		providers:    providers,
		oauthService: oauthService,
		store:        store,
		cfg:          cfg,
	}
}

// Authorize starts the provider flow: it binds a fresh state (and, for
// providers using proof-key exchange, the verifier) to the browser via
// short-lived http-only cookies and redirects to the provider.
func (h *OAuthHandler) Authorize(c *fiber.Ctx) error {
	name := c.Params("provider")
	provider, ok := h.providers[name]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown provider: " + name,
		})
	}

	req, err := provider.GenerateAuthURL(c.Query("redirect_uri"))
	if err != nil {
		if errors.Is(err, oauth.ErrNotConfigured) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: true, Message: name + " sign-in is not configured",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to start sign-in",
		})
	}

	h.setFlowCookie(c, name, stateCookie, req.State)
	if req.CodeVerifier != "" {
		h.setFlowCookie(c, name, verifierCookie, req.CodeVerifier)
	}

	return c.Redirect(req.URL, fiber.StatusFound)
}

// Callback finishes the provider flow. Every failure leaves through a
// redirect to the frontend error page carrying one canonical error code;
// success redirects to the frontend callback with a session token.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	name := c.Params("provider")
	provider, ok := h.providers[name]
	if !ok {
		return h.redirectError(c, errInvalidRequest)
	}

	// Apple posts the result as a form; the others use query params.
	state := c.Query("state", c.FormValue("state"))
	code := c.Query("code", c.FormValue("code"))
	providerErr := c.Query("error", c.FormValue("error"))
	idToken := c.FormValue("id_token")

	cookieState := c.Cookies(stateCookie)
	verifier := c.Cookies(verifierCookie)

	// The cookies are one-shot regardless of outcome.
	h.clearFlowCookie(c, stateCookie)
	h.clearFlowCookie(c, verifierCookie)

	if providerErr != "" {
		if providerErr == "access_denied" || providerErr == "user_cancelled_authorize" {
			return h.redirectError(c, errAccessDenied)
		}
		slog.Warn("provider returned error", "provider", name, "action", "oauth_callback", "error", providerErr)
		return h.redirectError(c, errInvalidRequest)
	}

	if state == "" || cookieState == "" || state != cookieState {
		return h.redirectError(c, errInvalidState)
	}

	// Single use: a replayed state loses the SetNX race.
	fresh, err := h.store.SetNX(c.UserContext(), "oauth:state:"+state, "used", authFlowTTL)
	if err != nil {
		slog.Error("state store unavailable", "provider", name, "action", "oauth_callback", "error", err)
	} else if !fresh {
		return h.redirectError(c, errInvalidState)
	}

	if code == "" {
		return h.redirectError(c, errInvalidRequest)
	}

	secret := verifier
	if name == "apple" {
		secret = idToken
	}

	userData, tokens, err := provider.HandleCallback(c.UserContext(), code, secret)
	if err != nil {
		slog.Warn("provider callback failed", "provider", name, "action", "oauth_callback", "error", err)
		switch {
		case errors.Is(err, oauth.ErrAccessDenied):
			return h.redirectError(c, errAccessDenied)
		case errors.Is(err, oauth.ErrExchangeFailed):
			return h.redirectError(c, errInvalidGrant)
		case errors.Is(err, oauth.ErrProviderUnreachable):
			return h.redirectError(c, errTempUnavailable)
		default:
			return h.redirectError(c, errServerError)
		}
	}

	result, err := h.oauthService.FindOrCreateOAuthUser(c.UserContext(), userData, tokens)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountForbidden):
			return h.redirectError(c, errAccessDenied)
		case errors.Is(err, services.ErrInvalidProviderData):
			slog.Warn("provider sent incomplete identity", "provider", name, "action", "oauth_callback", "error", err)
			return h.redirectError(c, errInvalidGrant)
		default:
			slog.Error("account linking failed", "provider", name, "action", "oauth_callback", "error", err)
			return h.redirectError(c, errServerError)
		}
	}

	params := url.Values{}
	params.Set("token", result.Token)
	params.Set("isNewUser", boolParam(result.IsNewUser))
	params.Set("provider", name)
	params.Set("userId", result.User.ID.String())
	return c.Redirect(h.cfg.FrontendSuccessURL+"?"+params.Encode(), fiber.StatusFound)
}

// Unlink removes a linked provider from the authenticated account.
func (h *OAuthHandler) Unlink(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	name := c.Params("provider")
	if err := h.oauthService.UnlinkProvider(c.UserContext(), userID, name); err != nil {
		switch {
		case errors.Is(err, services.ErrLastCredential):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "Cannot remove the only way to sign in. Set a password first.",
			})
		case errors.Is(err, services.ErrUserNotFound), errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "No linked " + name + " account",
			})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Failed to unlink provider",
			})
		}
	}

	return c.JSON(fiber.Map{"message": name + " account unlinked"})
}

func (h *OAuthHandler) redirectError(c *fiber.Ctx, code string) error {
	params := url.Values{}
	params.Set("error", code)
	params.Set("message", errorMessages[code])
	return c.Redirect(h.cfg.FrontendErrorURL+"?"+params.Encode(), fiber.StatusFound)
}

// setFlowCookie scopes the browser to this auth attempt. Apple returns the
// result in a cross-site POST, so its cookies need SameSite=None.
func (h *OAuthHandler) setFlowCookie(c *fiber.Ctx, providerName, name, value string) {
	sameSite := fiber.CookieSameSiteLaxMode
	secure := false
	if providerName == "apple" {
		sameSite = fiber.CookieSameSiteNoneMode
		secure = true
	}
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Expires:  time.Now().Add(authFlowTTL),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
	})
}

func (h *OAuthHandler) clearFlowCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Path:     "/",
	})
}

func boolParam(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
