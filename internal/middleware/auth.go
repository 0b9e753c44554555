package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

const (
	// APIKeyHeader carries a user's API key.
	APIKeyHeader = "api-key"

	userContextKey = "user"
)

// CurrentUser returns the authenticated user, or nil outside the auth
// middleware.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userContextKey).(*models.User)
	return user
}

// SetCurrentUser stores the authenticated user on the request context.
func SetCurrentUser(c echo.Context, user *models.User) {
	c.Set(userContextKey, user)
}

// AuthConfig configures the authentication middleware. Firebase is optional.
type AuthConfig struct {
	Users     repositories.UserRepository
	JWTSecret []byte
	Firebase  IDTokenVerifier
	Log       *zap.Logger
}

// Auth resolves the caller from an api-key header or a bearer token. A bearer
// token may be a token issued by this service, a Firebase ID token or an API
// key.
func Auth(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := authenticate(c, cfg)
			if err != nil {
				return err
			}
			SetCurrentUser(c, user)
			return next(c)
		}
	}
}

func authenticate(c echo.Context, cfg AuthConfig) (*models.User, error) {
	ctx := c.Request().Context()

	if key := c.Request().Header.Get(APIKeyHeader); key != "" {
		return lookup(cfg, func() (*models.User, error) { return cfg.Users.GetUserByAPIKey(ctx, key) })
	}

	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Missing credentials")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	token := strings.TrimSpace(parts[1])

	// API keys are UUIDs; anything with three dot separated segments is a JWT.
	if strings.Count(token, ".") != 2 {
		return lookup(cfg, func() (*models.User, error) { return cfg.Users.GetUserByAPIKey(ctx, token) })
	}

	claims, err := ParseToken(token, cfg.JWTSecret)
	if err == nil {
		return lookup(cfg, func() (*models.User, error) { return cfg.Users.GetUserByID(ctx, claims.UserID) })
	}
	if cfg.Firebase == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}
	uid, ferr := verifyFirebaseToken(ctx, cfg.Firebase, token)
	if ferr != nil {
		cfg.Log.Debug("token rejected", zap.NamedError("jwt", err), zap.NamedError("firebase", ferr))
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}
	return lookup(cfg, func() (*models.User, error) { return cfg.Users.GetUserByFirebaseUID(ctx, uid) })
}

// lookup maps an unknown identity to 401 and storage failures to 503.
func lookup(cfg AuthConfig, find func() (*models.User, error)) (*models.User, error) {
	user, err := find()
	switch {
	case err == nil:
		return user, nil
	case repositories.ErrNotFound.Has(err):
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unknown credentials")
	default:
		cfg.Log.Error("credential lookup failed", zap.Error(err))
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "Service unavailable")
	}
}
