package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// FollowingCache holds the set of user ids a user follows. It is a read-side
// accelerator only; the follows table stays authoritative.
//
// Every entry has a version. Readers take the version before querying the
// database and pass it to Set; Invalidate bumps it, so a set read before an
// invalidation can never be written after it.
type FollowingCache interface {
	Get(ctx context.Context, userID uint) ([]uint, bool)
	Version(ctx context.Context, userID uint) (int64, error)
	Set(ctx context.Context, userID uint, version int64, ids []uint)
	Invalidate(ctx context.Context, userID uint)
}

type nopFollowingCache struct{}

func (nopFollowingCache) Get(context.Context, uint) ([]uint, bool)     { return nil, false }
func (nopFollowingCache) Version(context.Context, uint) (int64, error) { return 0, nil }
func (nopFollowingCache) Set(context.Context, uint, int64, []uint)     {}
func (nopFollowingCache) Invalidate(context.Context, uint)             {}

// NopFollowingCache never stores anything.
func NopFollowingCache() FollowingCache { return nopFollowingCache{} }

const followingKeyPrefix = "microblog:following:"

var errStaleFollowingSet = errors.New("following set changed while it was loaded")

// RedisFollowingCache stores following sets as JSON arrays with a TTL. Redis
// errors degrade to cache misses.
type RedisFollowingCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisFollowingCache creates a cache on top of an existing client.
func NewRedisFollowingCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisFollowingCache {
	return &RedisFollowingCache{client: client, ttl: ttl, log: log}
}

func followingKey(userID uint) string {
	return followingKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

func followingVersionKey(userID uint) string {
	return followingKey(userID) + ":version"
}

func (c *RedisFollowingCache) Get(ctx context.Context, userID uint) ([]uint, bool) {
	raw, err := c.client.Get(ctx, followingKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("following cache read failed", zap.Uint("user_id", userID), zap.Error(err))
		}
		return nil, false
	}
	var ids []uint
	if err := json.Unmarshal(raw, &ids); err != nil {
		c.log.Warn("following cache entry corrupt", zap.Uint("user_id", userID), zap.Error(err))
		return nil, false
	}
	return ids, true
}

// Version returns the current version of userID's entry; a missing version
// key is version 0.
func (c *RedisFollowingCache) Version(ctx context.Context, userID uint) (int64, error) {
	return readVersion(ctx, c.client, userID)
}

func readVersion(ctx context.Context, cmd redis.Cmdable, userID uint) (int64, error) {
	v, err := cmd.Get(ctx, followingVersionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Set stores ids only if the version is still the one the caller read before
// loading them.
func (c *RedisFollowingCache) Set(ctx context.Context, userID uint, version int64, ids []uint) {
	if ids == nil {
		ids = []uint{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != version {
			return errStaleFollowingSet
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, followingKey(userID), raw, c.ttl)
			return nil
		})
		return err
	}, followingVersionKey(userID))

	switch {
	case err == nil:
	case errors.Is(err, errStaleFollowingSet), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("skipped stale following set", zap.Uint("user_id", userID))
	default:
		c.log.Warn("following cache write failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// Invalidate bumps the version and drops the cached set.
func (c *RedisFollowingCache) Invalidate(ctx context.Context, userID uint) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, followingVersionKey(userID))
		pipe.Del(ctx, followingKey(userID))
		return nil
	})
	if err != nil {
		c.log.Warn("following cache invalidation failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}
