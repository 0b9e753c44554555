package repositories

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/anonto42/microblog/backend/internal/models"
)

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followeeID uint) error
	Unfollow(ctx context.Context, followerID, followeeID uint) error
	IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error)
	GetFollowers(ctx context.Context, userID uint) ([]models.UserCompact, error)
	GetFollowing(ctx context.Context, userID uint) ([]models.UserCompact, error)
	GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error)
}

// PostgresFollowRepository implements FollowRepository for PostgreSQL
type PostgresFollowRepository struct {
	store *Store
	cache FollowingCache
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository. A nil
// cache disables caching of following sets.
func NewPostgresFollowRepository(store *Store, cache FollowingCache) *PostgresFollowRepository {
	if cache == nil {
		cache = NopFollowingCache()
	}
	return &PostgresFollowRepository{store: store, cache: cache}
}

// counterDelta is one counter change on one user row.
type counterDelta struct {
	userID uint
	column string
	delta  int
}

// adjustCounters applies the deltas in ascending user id order so that two
// transactions touching the same pair of users lock them in the same order.
func adjustCounters(tx *gorm.DB, deltas ...counterDelta) error {
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].userID < deltas[j].userID })
	for _, d := range deltas {
		res := tx.Model(&models.User{}).
			Where("id = ?", d.userID).
			UpdateColumn(d.column, counterExpr(d.column, d.delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound.New("user %d", d.userID)
		}
	}
	return nil
}

// counterExpr increments or decrements column; decrements never go below zero.
func counterExpr(column string, delta int) interface{} {
	if delta >= 0 {
		return gorm.Expr(column+" + ?", delta)
	}
	return gorm.Expr("CASE WHEN "+column+" >= ? THEN "+column+" - ? ELSE 0 END", -delta, -delta)
}

// Follow inserts the edge and bumps both counters in one transaction.
func (r *PostgresFollowRepository) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return ErrInvalidOperation.New("user %d cannot follow itself", followerID)
	}

	err := r.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := adjustCounters(tx,
			counterDelta{userID: followerID, column: "following_count", delta: 1},
			counterDelta{userID: followeeID, column: "followers_count", delta: 1},
		); err != nil {
			return err
		}
		follow := &models.Follow{
			FollowerID: followerID,
			FolloweeID: followeeID,
			CreatedAt:  r.store.now(),
		}
		if err := tx.Create(follow).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict.New("user %d already follows user %d", followerID, followeeID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.cache.Invalidate(ctx, followerID)
	return nil
}

// Unfollow removes the edge and decrements both counters in one transaction.
func (r *PostgresFollowRepository) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	err := r.store.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound.New("user %d does not follow user %d", followerID, followeeID)
		}
		return adjustCounters(tx,
			counterDelta{userID: followerID, column: "following_count", delta: -1},
			counterDelta{userID: followeeID, column: "followers_count", delta: -1},
		)
	})
	if err != nil {
		return err
	}
	r.cache.Invalidate(ctx, followerID)
	return nil
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	if err := r.store.query(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error; err != nil {
		return false, classify(err)
	}
	return count > 0, nil
}

func (r *PostgresFollowRepository) GetFollowers(ctx context.Context, userID uint) ([]models.UserCompact, error) {
	return r.listEdgeUsers(ctx, userID, "follower_id", "followee_id")
}

func (r *PostgresFollowRepository) GetFollowing(ctx context.Context, userID uint) ([]models.UserCompact, error) {
	return r.listEdgeUsers(ctx, userID, "followee_id", "follower_id")
}

// listEdgeUsers returns the users found in column `pick` of edges whose
// `match` column is userID.
func (r *PostgresFollowRepository) listEdgeUsers(ctx context.Context, userID uint, pick, match string) ([]models.UserCompact, error) {
	users := []models.UserCompact{}
	err := r.store.WithReadTx(ctx, func(tx *gorm.DB) error {
		if err := userExists(tx, userID); err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Select("id", "username").
			Where("id IN (?)", tx.Model(&models.Follow{}).Select(pick).Where(match+" = ?", userID)).
			Order("id").
			Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// GetFollowingIDs returns the ids userID follows, through the cache when one
// is configured.
func (r *PostgresFollowRepository) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	if ids, ok := r.cache.Get(ctx, userID); ok {
		return ids, nil
	}
	// The version is read before the query so that a follow committed in
	// between makes the Set below a no-op.
	version, versionErr := r.cache.Version(ctx, userID)
	ids := []uint{}
	if err := r.store.query(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("followee_id").
		Pluck("followee_id", &ids).Error; err != nil {
		return nil, classify(err)
	}
	if versionErr == nil {
		r.cache.Set(ctx, userID, version, ids)
	}
	return ids, nil
}
