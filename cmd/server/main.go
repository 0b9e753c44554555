package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anonto42/microblog/backend/internal/repositories"
	"github.com/anonto42/microblog/backend/internal/router"
	"github.com/anonto42/microblog/backend/pkg/config"
	"github.com/anonto42/microblog/backend/pkg/firebase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "server",
		Short:        "Microblog API server",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the relational schema and exit",
			RunE:  runMigrate,
		},
	)
	return root
}

// setup loads configuration and builds the logger shared by every command.
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := config.OpenPostgres(cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open PostgreSQL", zap.Error(err))
		return err
	}
	defer func() { _ = (&config.DB{Postgres: db}).CloseDB() }()
	if err := repositories.Migrate(db.WithContext(cmd.Context())); err != nil {
		log.Error("migration failed", zap.Error(err))
		return err
	}
	log.Info("migrations completed")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connections
	db, err := config.InitDB(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize databases", zap.Error(err))
		return err
	}
	defer func() {
		if err := db.CloseDB(); err != nil {
			log.Warn("failed to close databases", zap.Error(err))
		}
	}()

	if err := repositories.Migrate(db.Postgres.WithContext(ctx)); err != nil {
		log.Error("failed to auto migrate models", zap.Error(err))
		return err
	}

	deps, err := buildDependencies(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.SetupMiddleware(e, log)
	router.SetupRoutes(e, deps)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("http server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return e.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	return nil
}

func buildDependencies(ctx context.Context, cfg *config.Config, db *config.DB, log *zap.Logger) (router.Dependencies, error) {
	opts := []repositories.StoreOption{
		repositories.WithMaxRetries(cfg.TxMaxRetries),
		repositories.WithReadIsolation(sql.LevelRepeatableRead),
	}
	level, err := cfg.WriteIsolationLevel()
	if err != nil {
		return router.Dependencies{}, err
	}
	if level != sql.LevelDefault {
		opts = append(opts, repositories.WithWriteIsolation(level))
	}

	deps := router.Dependencies{
		Store:     repositories.NewStore(db.Postgres, log, opts...),
		JWTSecret: []byte(cfg.JWTSecret),
		Log:       log,
	}
	if db.Redis != nil {
		deps.Cache = repositories.NewRedisFollowingCache(db.Redis, cfg.FollowingCacheTTL, log)
	}
	if db.Mongo != nil {
		deps.Activities = repositories.NewMongoActivityRepository(db.Mongo.Database(cfg.MongoDatabase))
	}
	if cfg.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, log)
		if err != nil {
			log.Error("failed to initialize Firebase", zap.Error(err))
			return router.Dependencies{}, err
		}
		deps.Firebase = app.AuthClient
		log.Info("firebase token verification enabled")
	}
	return deps, nil
}
