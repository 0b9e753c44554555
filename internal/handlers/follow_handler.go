package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository   repositories.FollowRepository
	activityRepository repositories.ActivityRepository
	log                *zap.Logger
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, activityRepo repositories.ActivityRepository, log *zap.Logger) *FollowHandler {
	return &FollowHandler{
		followRepository:   followRepo,
		activityRepository: activityRepo,
		log:                log,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
}

// FollowUser makes the caller follow :id
func (h *FollowHandler) FollowUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.followRepository.Follow(ctx, user.ID, targetID); err != nil {
		return repoError(h.log, err)
	}

	recordActivity(ctx, h.activityRepository, h.log, &models.Activity{
		Type:        models.ActivityFollow,
		ActorID:     user.ID,
		RecipientID: targetID,
		TargetID:    user.ID,
		TargetType:  "user",
		Message:     user.Username + " started following you",
	})

	return success(c, http.StatusOK, echo.Map{"following": true})
}

// UnfollowUser makes the caller stop following :id
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.followRepository.Unfollow(c.Request().Context(), user.ID, targetID); err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, echo.Map{"following": false})
}
