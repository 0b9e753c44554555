package repositories

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/anonto42/microblog/backend/internal/models"
)

// TweetRepository defines the interface for tweet data operations
type TweetRepository interface {
	CreateTweet(ctx context.Context, authorID uint, content string, mediaIDs []uint) (*models.TweetView, error)
	GetTweet(ctx context.Context, id uint) (*models.TweetView, error)
	GetTweets(ctx context.Context) ([]models.Tweet, error)
	GetTweetsByAuthors(ctx context.Context, authorIDs []uint) ([]models.Tweet, error)
	DeleteTweet(ctx context.Context, requesterID, tweetID uint) error
}

// PostgresTweetRepository implements TweetRepository for PostgreSQL
type PostgresTweetRepository struct {
	store *Store
}

// NewPostgresTweetRepository creates a new PostgresTweetRepository
func NewPostgresTweetRepository(store *Store) *PostgresTweetRepository {
	return &PostgresTweetRepository{store: store}
}

// ValidateTweetContent rejects blank text and text over MaxTweetLength code
// points.
func ValidateTweetContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrInvalidOperation.New("tweet text is empty")
	}
	if n := utf8.RuneCountInString(content); n > models.MaxTweetLength {
		return ErrInvalidOperation.New("tweet text is %d characters, limit is %d", n, models.MaxTweetLength)
	}
	return nil
}

// CreateTweet stores the tweet and attaches every listed media item that is
// still unattached. Unknown, already attached and repeated ids are skipped.
func (r *PostgresTweetRepository) CreateTweet(ctx context.Context, authorID uint, content string, mediaIDs []uint) (*models.TweetView, error) {
	if err := ValidateTweetContent(content); err != nil {
		return nil, err
	}

	var view models.TweetView
	err := r.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := userExists(tx, authorID); err != nil {
			return err
		}
		tweet := models.Tweet{AuthorID: authorID, Content: content, CreatedAt: r.store.now()}
		if err := tx.Create(&tweet).Error; err != nil {
			return err
		}
		if err := attachMedia(tx, tweet.ID, mediaIDs); err != nil {
			return err
		}
		views, err := assembleViews(tx, []models.Tweet{tweet})
		if err != nil {
			return err
		}
		view = views[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// attachMedia claims each media row with a conditional update so that a row
// can only ever move from unattached to attached once.
func attachMedia(tx *gorm.DB, tweetID uint, mediaIDs []uint) error {
	position := 0
	for _, id := range mediaIDs {
		res := tx.Model(&models.Media{}).
			Where("id = ? AND tweet_id IS NULL", id).
			UpdateColumns(map[string]interface{}{"tweet_id": tweetID, "position": position})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			position++
		}
	}
	return nil
}

// GetTweet returns the assembled view of one tweet.
func (r *PostgresTweetRepository) GetTweet(ctx context.Context, id uint) (*models.TweetView, error) {
	var view models.TweetView
	err := r.store.WithReadTx(ctx, func(tx *gorm.DB) error {
		var tweet models.Tweet
		if err := tx.First(&tweet, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.New("tweet %d", id)
			}
			return err
		}
		views, err := assembleViews(tx, []models.Tweet{tweet})
		if err != nil {
			return err
		}
		view = views[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// GetTweets lists every tweet in id order.
func (r *PostgresTweetRepository) GetTweets(ctx context.Context) ([]models.Tweet, error) {
	tweets := []models.Tweet{}
	if err := r.store.query(ctx).Order("id").Find(&tweets).Error; err != nil {
		return nil, classify(err)
	}
	return tweets, nil
}

func (r *PostgresTweetRepository) GetTweetsByAuthors(ctx context.Context, authorIDs []uint) ([]models.Tweet, error) {
	var tweets []models.Tweet
	err := r.store.WithReadTx(ctx, func(tx *gorm.DB) error {
		var err error
		tweets, err = tweetsByAuthors(tx, authorIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tweets, nil
}

// tweetsByAuthors loads the tweets written by any of authorIDs in id order.
func tweetsByAuthors(tx *gorm.DB, authorIDs []uint) ([]models.Tweet, error) {
	tweets := []models.Tweet{}
	if len(authorIDs) == 0 {
		return tweets, nil
	}
	if err := tx.Where("author_id IN ?", authorIDs).Order("id").Find(&tweets).Error; err != nil {
		return nil, err
	}
	return tweets, nil
}

// DeleteTweet removes the tweet with its likes and media. A tweet that exists
// but belongs to someone else is reported exactly like a missing one.
func (r *PostgresTweetRepository) DeleteTweet(ctx context.Context, requesterID, tweetID uint) error {
	return r.store.WithTx(ctx, func(tx *gorm.DB) error {
		var tweet models.Tweet
		err := forUpdate(tx).Where("id = ? AND author_id = ?", tweetID, requesterID).First(&tweet).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.New("tweet %d", tweetID)
			}
			return err
		}
		if err := tx.Where("tweet_id = ?", tweet.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tweet_id = ?", tweet.ID).Delete(&models.Media{}).Error; err != nil {
			return err
		}
		return tx.Delete(&tweet).Error
	})
}

// assembleViews batch-loads authors, media and likers for the given tweets and
// returns the views in the same order. It must run inside the caller's
// transaction so that counts and lists come from one snapshot.
func assembleViews(tx *gorm.DB, tweets []models.Tweet) ([]models.TweetView, error) {
	views := make([]models.TweetView, 0, len(tweets))
	if len(tweets) == 0 {
		return views, nil
	}

	tweetIDs := make([]uint, 0, len(tweets))
	authorIDs := make([]uint, 0, len(tweets))
	seenAuthor := make(map[uint]bool, len(tweets))
	for _, t := range tweets {
		tweetIDs = append(tweetIDs, t.ID)
		if !seenAuthor[t.AuthorID] {
			seenAuthor[t.AuthorID] = true
			authorIDs = append(authorIDs, t.AuthorID)
		}
	}

	var authors []models.UserCompact
	if err := tx.Model(&models.User{}).Select("id", "username").Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
		return nil, err
	}
	authorMap := make(map[uint]models.UserCompact, len(authors))
	for _, a := range authors {
		authorMap[a.ID] = a
	}

	var medias []models.Media
	if err := tx.Where("tweet_id IN ?", tweetIDs).Order("tweet_id, position, id").Find(&medias).Error; err != nil {
		return nil, err
	}
	mediaMap := make(map[uint][]string, len(tweets))
	for _, m := range medias {
		mediaMap[*m.TweetID] = append(mediaMap[*m.TweetID], m.URL)
	}

	likers, err := likersByTweetIDs(tx, tweetIDs)
	if err != nil {
		return nil, err
	}

	for _, t := range tweets {
		view := models.TweetView{
			ID:          t.ID,
			Content:     t.Content,
			LikesCount:  t.LikesCount,
			CreatedAt:   t.CreatedAt,
			Author:      authorMap[t.AuthorID],
			Attachments: mediaMap[t.ID],
			Likes:       likers[t.ID],
		}
		if view.Attachments == nil {
			view.Attachments = []string{}
		}
		if view.Likes == nil {
			view.Likes = []models.UserCompact{}
		}
		views = append(views, view)
	}
	return views, nil
}
