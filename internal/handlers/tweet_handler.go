package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

// TweetHandler handles tweet-related HTTP requests
type TweetHandler struct {
	tweetRepository repositories.TweetRepository
	log             *zap.Logger
}

// NewTweetHandler creates a new TweetHandler
func NewTweetHandler(tweetRepo repositories.TweetRepository, log *zap.Logger) *TweetHandler {
	return &TweetHandler{tweetRepository: tweetRepo, log: log}
}

// RegisterTweetRoutes registers tweet-related routes
func (h *TweetHandler) RegisterTweetRoutes(g *echo.Group) {
	g.POST("/tweets", h.CreateTweet)
	g.GET("/tweets", h.ListTweets)
	g.GET("/tweets/:id", h.GetTweet)
	g.DELETE("/tweets/:id", h.DeleteTweet)
}

// CreateTweet posts a tweet as the caller
func (h *TweetHandler) CreateTweet(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateTweetRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tweet, err := h.tweetRepository.CreateTweet(c.Request().Context(), user.ID, req.Content, req.MediaIDs)
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusCreated, tweet)
}

// ListTweets lists all tweets, or only those by the given author_id values.
func (h *TweetHandler) ListTweets(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		tweets []models.Tweet
		err    error
	)
	if raw := c.QueryParams()["author_id"]; len(raw) > 0 {
		authorIDs := make([]uint, 0, len(raw))
		for _, v := range raw {
			id, perr := strconv.ParseUint(v, 10, 32)
			if perr != nil || id == 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "Invalid author_id")
			}
			authorIDs = append(authorIDs, uint(id))
		}
		tweets, err = h.tweetRepository.GetTweetsByAuthors(ctx, authorIDs)
	} else {
		tweets, err = h.tweetRepository.GetTweets(ctx)
	}
	if err != nil {
		return repoError(h.log, err)
	}

	out := make([]models.TweetSummary, 0, len(tweets))
	for _, t := range tweets {
		out = append(out, t.Summary())
	}
	return success(c, http.StatusOK, out)
}

func (h *TweetHandler) GetTweet(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	tweet, err := h.tweetRepository.GetTweet(c.Request().Context(), id)
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, tweet)
}

// DeleteTweet deletes one of the caller's tweets
func (h *TweetHandler) DeleteTweet(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.tweetRepository.DeleteTweet(c.Request().Context(), user.ID, id); err != nil {
		return repoError(h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
