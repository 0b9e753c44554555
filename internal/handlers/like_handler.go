package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

// LikeHandler handles like-related HTTP requests
type LikeHandler struct {
	likeRepository     repositories.LikeRepository
	tweetRepository    repositories.TweetRepository
	activityRepository repositories.ActivityRepository
	log                *zap.Logger
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, tweetRepo repositories.TweetRepository, activityRepo repositories.ActivityRepository, log *zap.Logger) *LikeHandler {
	return &LikeHandler{
		likeRepository:     likeRepo,
		tweetRepository:    tweetRepo,
		activityRepository: activityRepo,
		log:                log,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/tweets/:id/likes", h.LikeTweet)
	g.DELETE("/tweets/:id/likes", h.UnlikeTweet)
	g.GET("/tweets/:id/likes", h.GetLikers)
}

// LikeTweet likes a tweet for the caller
func (h *LikeHandler) LikeTweet(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	tweetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.likeRepository.LikeTweet(ctx, user.ID, tweetID); err != nil {
		return repoError(h.log, err)
	}

	if tweet, err := h.tweetRepository.GetTweet(ctx, tweetID); err == nil {
		recordActivity(ctx, h.activityRepository, h.log, &models.Activity{
			Type:        models.ActivityLike,
			ActorID:     user.ID,
			RecipientID: tweet.Author.ID,
			TargetID:    tweetID,
			TargetType:  "tweet",
			Message:     user.Username + " liked your tweet",
		})
	}

	return success(c, http.StatusOK, echo.Map{"liked": true})
}

// UnlikeTweet removes the caller's like. Unliking twice is fine.
func (h *LikeHandler) UnlikeTweet(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	tweetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.likeRepository.UnlikeTweet(c.Request().Context(), user.ID, tweetID); err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, echo.Map{"liked": false})
}

func (h *LikeHandler) GetLikers(c echo.Context) error {
	tweetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	likers, err := h.likeRepository.GetLikers(c.Request().Context(), tweetID)
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, likers)
}
