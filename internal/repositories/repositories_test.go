package repositories_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
	"github.com/anonto42/microblog/backend/internal/testdb"
)

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	db      *gorm.DB
	store   *repositories.Store
	users   *repositories.PostgresUserRepository
	follows *repositories.PostgresFollowRepository
	likes   *repositories.PostgresLikeRepository
	tweets  *repositories.PostgresTweetRepository
	medias  *repositories.PostgresMediaRepository
	feed    *repositories.PostgresFeedRepository
}

func newFixture(t *testing.T, cache repositories.FollowingCache) *fixture {
	t.Helper()
	db := testdb.Open(t)
	clock := newStepClock()
	store := repositories.NewStore(db, zaptest.NewLogger(t), repositories.WithClock(clock.Now))
	follows := repositories.NewPostgresFollowRepository(store, cache)
	return &fixture{
		db:      db,
		store:   store,
		users:   repositories.NewPostgresUserRepository(store),
		follows: follows,
		likes:   repositories.NewPostgresLikeRepository(store),
		tweets:  repositories.NewPostgresTweetRepository(store),
		medias:  repositories.NewPostgresMediaRepository(store),
		feed:    repositories.NewPostgresFeedRepository(store, follows),
	}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), name, nil)
	require.NoError(t, err)
	return u
}

func (f *fixture) tweet(t *testing.T, author *models.User, text string) *models.TweetView {
	t.Helper()
	tw, err := f.tweets.CreateTweet(context.Background(), author.ID, text, nil)
	require.NoError(t, err)
	return tw
}

func (f *fixture) reload(t *testing.T, u *models.User) *models.User {
	t.Helper()
	got, err := f.users.GetUserByID(context.Background(), u.ID)
	require.NoError(t, err)
	return got
}

// requireCountersConsistent checks every stored counter against its edge
// rows.
func (f *fixture) requireCountersConsistent(t *testing.T) {
	t.Helper()

	var users []models.User
	require.NoError(t, f.db.Find(&users).Error)
	for _, u := range users {
		var followers, following int64
		require.NoError(t, f.db.Model(&models.Follow{}).Where("followee_id = ?", u.ID).Count(&followers).Error)
		require.NoError(t, f.db.Model(&models.Follow{}).Where("follower_id = ?", u.ID).Count(&following).Error)
		require.Equal(t, followers, u.FollowersCount, "followers_count of %s", u.Username)
		require.Equal(t, following, u.FollowingCount, "following_count of %s", u.Username)
	}

	var tweets []models.Tweet
	require.NoError(t, f.db.Find(&tweets).Error)
	for _, tw := range tweets {
		var likes int64
		require.NoError(t, f.db.Model(&models.Like{}).Where("tweet_id = ?", tw.ID).Count(&likes).Error)
		require.Equal(t, likes, tw.LikesCount, "likes_count of tweet %d", tw.ID)
	}
}

func TestStoreCanceledContextIsUnavailable(t *testing.T) {
	f := newFixture(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.users.CreateUser(ctx, "alice", nil)
	require.Error(t, err)
	require.True(t, repositories.ErrUnavailable.Has(err), "got %v", err)
}

func TestStoreRollsBackOnError(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice")

	err := f.store.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", alice.ID).
			UpdateColumn("followers_count", 7).Error; err != nil {
			return err
		}
		return repositories.ErrConflict.New("boom")
	})
	require.True(t, repositories.ErrConflict.Has(err))
	require.Zero(t, f.reload(t, alice).FollowersCount)
}

func TestStoreRetriesSerializationFailures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	calls := 0
	err := f.store.WithTx(ctx, func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	})
	require.Error(t, err)
	assert.True(t, repositories.ErrUnavailable.Has(err), "got %v", err)
	assert.Equal(t, 6, calls, "first attempt plus the default five retries")

	store := repositories.NewStore(f.db, zaptest.NewLogger(t), repositories.WithMaxRetries(2))
	calls = 0
	err = store.WithReadTx(ctx, func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	})
	assert.True(t, repositories.ErrUnavailable.Has(err), "got %v", err)
	assert.Equal(t, 3, calls)
}

func TestStoreRetrySucceedsAndRollsBackFailedAttempts(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice")

	calls := 0
	err := f.store.WithTx(context.Background(), func(tx *gorm.DB) error {
		calls++
		if err := tx.Model(&models.User{}).Where("id = ?", alice.ID).
			UpdateColumn("followers_count", gorm.Expr("followers_count + 1")).Error; err != nil {
			return err
		}
		if calls < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.EqualValues(t, 1, f.reload(t, alice).FollowersCount)
}

func TestStoreDoesNotRetryOtherErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	calls := 0
	err := f.store.WithTx(ctx, func(tx *gorm.DB) error {
		calls++
		return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	})
	assert.True(t, repositories.ErrConflict.Has(err), "got %v", err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = f.store.WithTx(ctx, func(tx *gorm.DB) error {
		calls++
		return repositories.ErrNotFound.New("user 9")
	})
	assert.True(t, repositories.ErrNotFound.Has(err))
	assert.Equal(t, 1, calls)
}
