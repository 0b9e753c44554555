package repositories_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

func feedIDs(feed []models.TweetView) []uint {
	ids := make([]uint, 0, len(feed))
	for _, tw := range feed {
		ids = append(ids, tw.ID)
	}
	return ids
}

func TestFeedScope(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	own := f.tweet(t, alice, "mine")
	fromBob := f.tweet(t, bob, "from bob")
	f.tweet(t, carol, "from carol")

	feed, err := f.feed.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{own.ID}, feedIDs(feed))

	require.NoError(t, f.follows.Follow(ctx, alice.ID, bob.ID))
	feed, err = f.feed.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{fromBob.ID, own.ID}, feedIDs(feed))

	// Following is directed: bob does not see alice.
	feed, err = f.feed.GetFeed(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{fromBob.ID}, feedIDs(feed))

	require.NoError(t, f.follows.Unfollow(ctx, alice.ID, bob.ID))
	feed, err = f.feed.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{own.ID}, feedIDs(feed))
}

func TestFeedOrdering(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	viewer, bob, fan1, fan2 := f.user(t, "viewer"), f.user(t, "bob"), f.user(t, "fan1"), f.user(t, "fan2")
	require.NoError(t, f.follows.Follow(ctx, viewer.ID, bob.ID))

	oldPopular := f.tweet(t, bob, "old popular")
	oldQuiet := f.tweet(t, bob, "old quiet")
	newQuiet := f.tweet(t, viewer, "new quiet")
	newLiked := f.tweet(t, bob, "new liked")

	require.NoError(t, f.likes.LikeTweet(ctx, fan1.ID, oldPopular.ID))
	require.NoError(t, f.likes.LikeTweet(ctx, fan2.ID, oldPopular.ID))
	require.NoError(t, f.likes.LikeTweet(ctx, fan1.ID, newLiked.ID))

	feed, err := f.feed.GetFeed(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{oldPopular.ID, newLiked.ID, newQuiet.ID, oldQuiet.ID}, feedIDs(feed))

	top := feed[0]
	assert.EqualValues(t, 2, top.LikesCount)
	assert.Len(t, top.Likes, 2)
	assert.Equal(t, bob.ToCompact(), top.Author)

	again, err := f.feed.GetFeed(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, feedIDs(feed), feedIDs(again))
}

func TestFeedTieBreaksOnID(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	fixed := time.Date(2024, time.May, 5, 0, 0, 0, 0, time.UTC)
	store := repositories.NewStore(f.db, zaptest.NewLogger(t), repositories.WithClock(func() time.Time { return fixed }))
	follows := repositories.NewPostgresFollowRepository(store, nil)
	tweets := repositories.NewPostgresTweetRepository(store)
	feedRepo := repositories.NewPostgresFeedRepository(store, follows)

	alice := f.user(t, "alice")
	var want []uint
	for _, text := range []string{"a", "b", "c"} {
		tw, err := tweets.CreateTweet(ctx, alice.ID, text, nil)
		require.NoError(t, err)
		want = append(want, tw.ID)
	}

	feed, err := feedRepo.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, want, feedIDs(feed))
}

func TestFeedEmptyAndUnknownViewer(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.user(t, "alice")

	feed, err := f.feed.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, feed)
	assert.Empty(t, feed)

	_, err = f.feed.GetFeed(ctx, 999)
	assert.True(t, repositories.ErrNotFound.Has(err))
}

func TestFeedThroughRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := repositories.NewRedisFollowingCache(client, time.Minute, zaptest.NewLogger(t))

	f := newFixture(t, cache)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	fromBob := f.tweet(t, bob, "hi")

	feed, err := f.feed.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, feed)
	assert.True(t, mr.Exists("microblog:following:1"))

	require.NoError(t, f.follows.Follow(ctx, alice.ID, bob.ID))
	assert.False(t, mr.Exists("microblog:following:1"))

	feed, err = f.feed.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{fromBob.ID}, feedIDs(feed))
}

// followDuringSet commits a follow after the following set was read from the
// database but before it is written back to the cache.
type followDuringSet struct {
	*repositories.RedisFollowingCache
	follow func()
	once   sync.Once
}

func (c *followDuringSet) Set(ctx context.Context, userID uint, version int64, ids []uint) {
	c.once.Do(c.follow)
	c.RedisFollowingCache.Set(ctx, userID, version, ids)
}

func TestFeedSeesFollowCommittedDuringCacheFill(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := &followDuringSet{
		RedisFollowingCache: repositories.NewRedisFollowingCache(client, time.Minute, zaptest.NewLogger(t)),
	}

	f := newFixture(t, cache)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	fromBob := f.tweet(t, bob, "hi")
	cache.follow = func() { require.NoError(t, f.follows.Follow(ctx, alice.ID, bob.ID)) }

	feed, err := f.feed.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, feed)
	assert.False(t, mr.Exists("microblog:following:1"))

	feed, err = f.feed.GetFeed(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{fromBob.ID}, feedIDs(feed))
	assert.EqualValues(t, 1, f.reload(t, alice).FollowingCount)
	assert.True(t, mr.Exists("microblog:following:1"))
}
