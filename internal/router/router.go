package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/anonto42/microblog/backend/internal/handlers"
	"github.com/anonto42/microblog/backend/internal/middleware"
	"github.com/anonto42/microblog/backend/internal/repositories"
	"github.com/anonto42/microblog/backend/validators"
)

// Dependencies are the collaborators the routes are built from. Cache,
// Activities and Firebase are optional.
type Dependencies struct {
	Store      *repositories.Store
	Cache      repositories.FollowingCache
	Activities repositories.ActivityRepository
	Firebase   middleware.IDTokenVerifier
	JWTSecret  []byte
	Log        *zap.Logger
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, log *zap.Logger) {
	e.Use(eMiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	log.Debug("global middleware configured")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	log := deps.Log
	if deps.Activities == nil {
		deps.Activities = repositories.NopActivityRepository{}
	}
	e.Validator = validators.NewValidator()

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "microblog"})
	})

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(deps.Store)
	followRepo := repositories.NewPostgresFollowRepository(deps.Store, deps.Cache)
	likeRepo := repositories.NewPostgresLikeRepository(deps.Store)
	tweetRepo := repositories.NewPostgresTweetRepository(deps.Store)
	mediaRepo := repositories.NewPostgresMediaRepository(deps.Store)
	feedRepo := repositories.NewPostgresFeedRepository(deps.Store, followRepo)

	// --- Unprotected routes ---
	api := e.Group("/api/v1")
	userHandler := handlers.NewUserHandler(userRepo, followRepo, deps.Firebase, log)
	userHandler.RegisterPublicRoutes(api)

	// --- Protected routes ---
	protected := api.Group("", middleware.Auth(middleware.AuthConfig{
		Users:     userRepo,
		JWTSecret: deps.JWTSecret,
		Firebase:  deps.Firebase,
		Log:       log,
	}))

	handlers.NewAuthHandler(deps.JWTSecret, log).RegisterAuthRoutes(protected)
	userHandler.RegisterProfileRoutes(protected)
	handlers.NewFollowHandler(followRepo, deps.Activities, log).RegisterFollowRoutes(protected)
	handlers.NewTweetHandler(tweetRepo, log).RegisterTweetRoutes(protected)
	handlers.NewLikeHandler(likeRepo, tweetRepo, deps.Activities, log).RegisterLikeRoutes(protected)
	handlers.NewMediaHandler(mediaRepo, log).RegisterMediaRoutes(protected)
	handlers.NewFeedHandler(feedRepo, log).RegisterFeedRoutes(protected)
	handlers.NewNotificationHandler(deps.Activities, userRepo, log).RegisterNotificationRoutes(protected)

	log.Info("routes configured", zap.Int("count", len(e.Routes())))
}
