package config

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/errs"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connections. Mongo and Redis are nil when not
// configured.
type DB struct {
	Postgres *gorm.DB
	Mongo    *mongo.Client
	Redis    *redis.Client
}

// InitDB initializes and returns the database connections
func InitDB(ctx context.Context, cfg *Config, log *zap.Logger) (*DB, error) {
	db := &DB{}

	postgresDB, err := initPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	db.Postgres = postgresDB
	log.Info("connected to PostgreSQL")

	if cfg.MongoURI != "" {
		mongoClient, err := initMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, errs.Combine(fmt.Errorf("failed to connect to MongoDB: %w", err), db.CloseDB())
		}
		db.Mongo = mongoClient
		log.Info("connected to MongoDB")
	}

	if cfg.RedisAddr != "" {
		redisClient, err := initRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, errs.Combine(fmt.Errorf("failed to connect to Redis: %w", err), db.CloseDB())
		}
		db.Redis = redisClient
		log.Info("connected to Redis")
	}

	return db, nil
}

// OpenPostgres opens the relational store with error translation enabled so
// that constraint violations surface as gorm sentinel errors.
func OpenPostgres(connStr string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(connStr), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(ctx context.Context, connStr string) (*gorm.DB, error) {
	db, err := OpenPostgres(connStr)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = sqlDB.PingContext(ctx); err != nil {
		return nil, errs.Combine(err, sqlDB.Close())
	}
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	// Ping the primary to verify connection
	if err = client.Ping(ctx, nil); err != nil {
		return nil, errs.Combine(err, client.Disconnect(ctx))
	}
	return client, nil
}

func initRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errs.Combine(err, client.Close())
	}
	return client, nil
}

// CloseDB closes every open connection and reports all failures.
func (db *DB) CloseDB() error {
	var group errs.Group

	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		group.Add(err)
		if err == nil {
			group.Add(sqlDB.Close())
		}
	}
	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		group.Add(db.Mongo.Disconnect(ctx))
	}
	if db.Redis != nil {
		group.Add(db.Redis.Close())
	}
	return group.Err()
}
