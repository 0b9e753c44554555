package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/repositories"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feedRepository repositories.FeedRepository
	log            *zap.Logger
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feedRepo repositories.FeedRepository, log *zap.Logger) *FeedHandler {
	return &FeedHandler{feedRepository: feedRepo, log: log}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed returns the caller's feed, most liked first
func (h *FeedHandler) GetFeed(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	feed, err := h.feedRepository.GetFeed(c.Request().Context(), user.ID)
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, feed)
}
