package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/middleware"
	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	firebase         middleware.IDTokenVerifier
	log              *zap.Logger
}

// NewUserHandler creates a new UserHandler. firebase may be nil, in which
// case registration cannot bind a Firebase account.
func NewUserHandler(userRepo repositories.UserRepository, followRepo repositories.FollowRepository, firebase middleware.IDTokenVerifier, log *zap.Logger) *UserHandler {
	return &UserHandler{userRepository: userRepo, followRepository: followRepo, firebase: firebase, log: log}
}

// RegisterPublicRoutes registers routes that need no credentials
func (h *UserHandler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/users", h.Register)
	g.GET("/users", h.ListUsers)
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/users/me", h.GetProfile)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/following", h.GetFollowing)
	g.GET("/users/:id/followers", h.GetFollowers)
}

// Register creates a user and returns its API key. The key is never shown
// again. A request carrying a Firebase ID token as bearer token links the
// new user to that Firebase account.
func (h *UserHandler) Register(c echo.Context) error {
	var req models.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	uid, err := middleware.FirebaseUID(c, h.firebase)
	if err != nil {
		return err
	}
	var firebaseUID *string
	if uid != "" {
		firebaseUID = &uid
	}
	user, err := h.userRepository.CreateUser(c.Request().Context(), req.Username, firebaseUID)
	if err != nil {
		return repoError(h.log, err)
	}
	h.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))

	return success(c, http.StatusCreated, models.RegisteredUser{User: *user, APIKey: user.APIKey})
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userRepository.GetUsers(c.Request().Context())
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, users)
}

// GetProfile returns the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, user)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, user)
}

func (h *UserHandler) GetFollowing(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowing(c.Request().Context(), id)
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, users)
}

func (h *UserHandler) GetFollowers(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowers(c.Request().Context(), id)
	if err != nil {
		return repoError(h.log, err)
	}
	return success(c, http.StatusOK, users)
}
