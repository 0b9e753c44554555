package repositories

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/anonto42/microblog/backend/internal/models"
)

// FeedRepository composes a user's home feed.
type FeedRepository interface {
	GetFeed(ctx context.Context, viewerID uint) ([]models.TweetView, error)
}

// PostgresFeedRepository reads the follow graph first and then loads the
// tweets of the resulting author set in a single read transaction.
type PostgresFeedRepository struct {
	store   *Store
	follows FollowRepository
}

// NewPostgresFeedRepository creates a new PostgresFeedRepository
func NewPostgresFeedRepository(store *Store, follows FollowRepository) *PostgresFeedRepository {
	return &PostgresFeedRepository{store: store, follows: follows}
}

// GetFeed returns tweets by the viewer and everyone the viewer follows,
// most liked first, then newest, then lowest id.
func (r *PostgresFeedRepository) GetFeed(ctx context.Context, viewerID uint) ([]models.TweetView, error) {
	following, err := r.follows.GetFollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	authorIDs := make([]uint, 0, len(following)+1)
	authorIDs = append(authorIDs, viewerID)
	for _, id := range following {
		if id != viewerID {
			authorIDs = append(authorIDs, id)
		}
	}

	var feed []models.TweetView
	err = r.store.WithReadTx(ctx, func(tx *gorm.DB) error {
		if err := userExists(tx, viewerID); err != nil {
			return err
		}
		tweets, err := tweetsByAuthors(tx, authorIDs)
		if err != nil {
			return err
		}
		feed, err = assembleViews(tx, tweets)
		return err
	})
	if err != nil {
		return nil, err
	}
	sortFeed(feed)
	return feed, nil
}

// sortFeed orders by likes_count desc, created_at desc, id asc. The id
// tie-break makes the order total.
func sortFeed(feed []models.TweetView) {
	sort.SliceStable(feed, func(i, j int) bool {
		a, b := feed[i], feed[j]
		if a.LikesCount != b.LikesCount {
			return a.LikesCount > b.LikesCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
