package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/anonto42/microblog/backend/internal/models"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	LikeTweet(ctx context.Context, userID, tweetID uint) error
	UnlikeTweet(ctx context.Context, userID, tweetID uint) error
	HasUserLikedTweet(ctx context.Context, userID, tweetID uint) (bool, error)
	GetLikers(ctx context.Context, tweetID uint) ([]models.UserCompact, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	store *Store
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(store *Store) *PostgresLikeRepository {
	return &PostgresLikeRepository{store: store}
}

// LikeTweet records the like and bumps likes_count in one transaction.
func (r *PostgresLikeRepository) LikeTweet(ctx context.Context, userID, tweetID uint) error {
	return r.store.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Tweet{}).
			Where("id = ?", tweetID).
			UpdateColumn("likes_count", counterExpr("likes_count", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound.New("tweet %d", tweetID)
		}
		if err := userExists(tx, userID); err != nil {
			return err
		}
		like := &models.Like{UserID: userID, TweetID: tweetID, CreatedAt: r.store.now()}
		if err := tx.Create(like).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict.New("user %d already likes tweet %d", userID, tweetID)
			}
			return err
		}
		return nil
	})
}

// UnlikeTweet removes the like if there is one. Unliking something that was
// never liked is not an error.
func (r *PostgresLikeRepository) UnlikeTweet(ctx context.Context, userID, tweetID uint) error {
	return r.store.WithTx(ctx, func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND tweet_id = ?", userID, tweetID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&models.Tweet{}).
			Where("id = ?", tweetID).
			UpdateColumn("likes_count", counterExpr("likes_count", -1)).Error
	})
}

// HasUserLikedTweet checks if a user has liked a specific tweet
func (r *PostgresLikeRepository) HasUserLikedTweet(ctx context.Context, userID, tweetID uint) (bool, error) {
	var count int64
	if err := r.store.query(ctx).Model(&models.Like{}).
		Where("user_id = ? AND tweet_id = ?", userID, tweetID).
		Count(&count).Error; err != nil {
		return false, classify(err)
	}
	return count > 0, nil
}

// GetLikers lists the users who liked the tweet, earliest like first.
func (r *PostgresLikeRepository) GetLikers(ctx context.Context, tweetID uint) ([]models.UserCompact, error) {
	var likers []models.UserCompact
	err := r.store.WithReadTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Tweet{}).Where("id = ?", tweetID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound.New("tweet %d", tweetID)
		}
		byTweet, err := likersByTweetIDs(tx, []uint{tweetID})
		if err != nil {
			return err
		}
		likers = byTweet[tweetID]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if likers == nil {
		likers = []models.UserCompact{}
	}
	return likers, nil
}

type likerRow struct {
	TweetID  uint
	UserID   uint
	Username string
}

// likersByTweetIDs loads the likers of every tweet in one query, keyed by
// tweet id, each list ordered by like time then user id.
func likersByTweetIDs(tx *gorm.DB, tweetIDs []uint) (map[uint][]models.UserCompact, error) {
	out := make(map[uint][]models.UserCompact, len(tweetIDs))
	if len(tweetIDs) == 0 {
		return out, nil
	}
	var rows []likerRow
	err := tx.Table("likes").
		Select("likes.tweet_id AS tweet_id, users.id AS user_id, users.username AS username").
		Joins("JOIN users ON users.id = likes.user_id").
		Where("likes.tweet_id IN ?", tweetIDs).
		Order("likes.created_at, users.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.TweetID] = append(out[row.TweetID], models.UserCompact{ID: row.UserID, Username: row.Username})
	}
	return out, nil
}
