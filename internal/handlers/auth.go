package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/middleware"
)

// AuthHandler issues session tokens to already authenticated callers
type AuthHandler struct {
	jwtSecret []byte
	now       func() time.Time
	log       *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(jwtSecret []byte, log *zap.Logger) *AuthHandler {
	return &AuthHandler{jwtSecret: jwtSecret, now: time.Now, log: log}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/auth/token", h.IssueToken)
}

// IssueToken exchanges any accepted credential for a bearer token.
func (h *AuthHandler) IssueToken(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	now := h.now()
	token, err := middleware.IssueToken(user, h.jwtSecret, now)
	if err != nil {
		h.log.Error("failed to sign token", zap.Uint("user_id", user.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return success(c, http.StatusOK, echo.Map{
		"token":      token,
		"expires_at": now.Add(middleware.TokenTTL).UTC(),
	})
}
