package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

// NotificationHandler serves the caller's activity log
type NotificationHandler struct {
	activityRepository repositories.ActivityRepository
	userRepository     repositories.UserRepository
	log                *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(activityRepo repositories.ActivityRepository, userRepo repositories.UserRepository, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		activityRepository: activityRepo,
		userRepository:     userRepo,
		log:                log,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
}

// EnrichedNotification includes actor info
type EnrichedNotification struct {
	models.Activity
	Actor models.UserCompact `json:"actor"`
}

func (h *NotificationHandler) enrichNotifications(c echo.Context, activities []models.Activity) []EnrichedNotification {
	enriched := make([]EnrichedNotification, len(activities))
	userCache := make(map[uint]models.UserCompact)

	for i, a := range activities {
		enriched[i] = EnrichedNotification{Activity: a}
		if actor, ok := userCache[a.ActorID]; ok {
			enriched[i].Actor = actor
			continue
		}
		user, err := h.userRepository.GetUserByID(c.Request().Context(), a.ActorID)
		if err == nil {
			compact := user.ToCompact()
			userCache[a.ActorID] = compact
			enriched[i].Actor = compact
		}
	}
	return enriched
}

// GetNotifications returns the newest activities addressed to the caller.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	activities, err := h.activityRepository.GetByRecipientID(c.Request().Context(), user.ID, int64(limit))
	if err != nil {
		h.log.Error("failed to load activities", zap.Uint("user_id", user.ID), zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Service unavailable, retry later")
	}
	return success(c, http.StatusOK, h.enrichNotifications(c, activities))
}
