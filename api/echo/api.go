package echo

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/credlink/tokenvault/domain"
	"github.com/credlink/tokenvault/internal/federation"
	"github.com/credlink/tokenvault/services"
)

const stateCookieName = "vault_oauth_state"

// ProviderDirectory resolves a provider instance id to its adapter type.
// The config package implements it.
type ProviderDirectory interface {
	ProviderType(providerID string) (string, bool)
}

// VaultAPI struct to hold dependencies.
type VaultAPI struct {
	engine    *services.TokenLifecycleService
	registry  services.ProviderRegistry
	directory ProviderDirectory
	baseURL   string
}

// NewVaultAPI initializes the token vault HTTP API. baseURL is the
// externally reachable base used to build OAuth redirect URLs.
func NewVaultAPI(
	engine *services.TokenLifecycleService,
	registry services.ProviderRegistry,
	directory ProviderDirectory,
	baseURL string,
) *VaultAPI {
	return &VaultAPI{
		engine:    engine,
		registry:  registry,
		directory: directory,
		baseURL:   baseURL,
	}
}

// RegisterRoutes registers the vault routes.
func (va *VaultAPI) RegisterRoutes(e *echo.Echo) {
	e.GET("/federation/:provider/login", va.LoginHandler)
	e.GET("/federation/:provider/callback", va.CallbackHandler)

	e.GET("/tokens/:key", va.ListTokensHandler)
	e.POST("/tokens/:key/:provider/refresh", va.RefreshHandler)
	e.DELETE("/tokens/:key/:provider", va.DeleteHandler)

	e.GET("/healthz", va.HealthHandler)
}

func (va *VaultAPI) redirectURL(providerID string) string {
	return va.baseURL + "/federation/" + providerID + "/callback"
}

func (va *VaultAPI) provider(c echo.Context) (federation.IdentityProvider, string, string, error) {
	providerID := c.Param("provider")
	providerType, ok := va.directory.ProviderType(providerID)
	if !ok {
		return nil, "", "", federation.ErrProviderNotFound
	}
	provider, err := va.registry.Provider(c.Request().Context(), providerType, providerID)
	if err != nil {
		return nil, "", "", err
	}
	return provider, providerType, providerID, nil
}

// LoginHandler starts the authorization code flow: generates a state
// nonce, stores it in a short-lived cookie and redirects to the
// provider's consent page.
func (va *VaultAPI) LoginHandler(c echo.Context) error {
	provider, _, providerID, err := va.provider(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown_provider"})
	}

	state := uuid.NewString()
	authURL, err := provider.AuthCodeURL(state, va.redirectURL(providerID))
	if err != nil {
		log.Error().Err(err).Str("provider_id", providerID).Msg("Failed to build authorization URL")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/federation",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusFound, authURL)
}

// CallbackHandler completes the authorization code flow: verifies the
// state nonce against the login cookie, exchanges the code and stores
// the resulting tokens under the derived user key.
func (va *VaultAPI) CallbackHandler(c echo.Context) error {
	provider, providerType, providerID, err := va.provider(c)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown_provider"})
	}

	cookie, err := c.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": federation.ErrInvalidAuthState.Error()})
	}

	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing_code"})
	}

	session := federation.NewCodeSession(provider, va.redirectURL(providerID), code)
	userKey, err := va.engine.Authenticate(c.Request().Context(), session, providerType, providerID)
	if err != nil {
		log.Error().Err(err).Str("provider_id", providerID).Msg("Federated authentication failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "authentication_failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{"user_key": userKey})
}

// ListTokensHandler returns all token records linked to a user key.
// Token values are never serialized.
func (va *VaultAPI) ListTokensHandler(c echo.Context) error {
	records, err := va.engine.ListUserTokens(c.Request().Context(), c.Param("key"))
	if err != nil {
		log.Error().Err(err).Str("user_key", c.Param("key")).Msg("Failed to list token records")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
	if records == nil {
		records = []*domain.TokenRecord{}
	}
	return c.JSON(http.StatusOK, echo.Map{"tokens": records})
}

// RefreshHandler forces a refresh for one user's provider tokens.
func (va *VaultAPI) RefreshHandler(c echo.Context) error {
	userKey := c.Param("key")
	providerID := c.Param("provider")

	err := va.engine.RefreshUserTokens(c.Request().Context(), userKey, providerID)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case federation.IsTransportError(err):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "provider_unreachable"})
	default:
		log.Error().Err(err).Str("user_key", userKey).Str("provider_id", providerID).Msg("Token refresh failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
}

// DeleteHandler unlinks a provider from a user.
func (va *VaultAPI) DeleteHandler(c echo.Context) error {
	userKey := c.Param("key")
	providerID := c.Param("provider")

	err := va.engine.DeleteUserToken(c.Request().Context(), userKey, providerID)
	switch {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, domain.ErrTokenNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "token_not_found"})
	default:
		log.Error().Err(err).Str("user_key", userKey).Str("provider_id", providerID).Msg("Token deletion failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}
}

func (va *VaultAPI) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
