package repositories_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/microblog/backend/internal/models"
	"github.com/anonto42/microblog/backend/internal/repositories"
)

func TestLikeAndUnlike(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	tw := f.tweet(t, alice, "hello")

	require.NoError(t, f.likes.LikeTweet(ctx, bob.ID, tw.ID))
	require.NoError(t, f.likes.LikeTweet(ctx, alice.ID, tw.ID))

	err := f.likes.LikeTweet(ctx, bob.ID, tw.ID)
	assert.True(t, repositories.ErrConflict.Has(err), "second like: %v", err)

	view, err := f.tweets.GetTweet(ctx, tw.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, view.LikesCount)
	assert.Equal(t, []models.UserCompact{bob.ToCompact(), alice.ToCompact()}, view.Likes)

	liked, err := f.likes.HasUserLikedTweet(ctx, bob.ID, tw.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	require.NoError(t, f.likes.UnlikeTweet(ctx, bob.ID, tw.ID))
	require.NoError(t, f.likes.UnlikeTweet(ctx, bob.ID, tw.ID))

	view, err = f.tweets.GetTweet(ctx, tw.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, view.LikesCount)
	assert.Equal(t, []models.UserCompact{alice.ToCompact()}, view.Likes)
	f.requireCountersConsistent(t)
}

func TestLikeMissingTweet(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice := f.user(t, "alice")

	err := f.likes.LikeTweet(ctx, alice.ID, 404)
	assert.True(t, repositories.ErrNotFound.Has(err))

	assert.NoError(t, f.likes.UnlikeTweet(ctx, alice.ID, 404))

	_, err = f.likes.GetLikers(ctx, 404)
	assert.True(t, repositories.ErrNotFound.Has(err))
}

func TestLikeByUnknownUser(t *testing.T) {
	f := newFixture(t, nil)
	alice := f.user(t, "alice")
	tw := f.tweet(t, alice, "hello")

	err := f.likes.LikeTweet(context.Background(), 999, tw.ID)
	assert.True(t, repositories.ErrNotFound.Has(err))
	f.requireCountersConsistent(t)
}

func TestGetLikersOrder(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	tw := f.tweet(t, alice, "hello")

	require.NoError(t, f.likes.LikeTweet(ctx, carol.ID, tw.ID))
	require.NoError(t, f.likes.LikeTweet(ctx, alice.ID, tw.ID))
	require.NoError(t, f.likes.LikeTweet(ctx, bob.ID, tw.ID))

	likers, err := f.likes.GetLikers(ctx, tw.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.UserCompact{carol.ToCompact(), alice.ToCompact(), bob.ToCompact()}, likers)

	other := f.tweet(t, bob, "quiet")
	likers, err = f.likes.GetLikers(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, likers)
	assert.NotNil(t, likers)
}

func TestConcurrentLikeUnlike(t *testing.T) {
	f := newFixture(t, nil)
	author := f.user(t, "author")
	tw := f.tweet(t, author, "hello")
	fans := []*models.User{f.user(t, "a"), f.user(t, "b"), f.user(t, "c")}

	var wg sync.WaitGroup
	for round := 0; round < 3; round++ {
		for _, fan := range fans {
			wg.Add(2)
			go func(id uint) {
				defer wg.Done()
				_ = f.likes.LikeTweet(context.Background(), id, tw.ID)
			}(fan.ID)
			go func(id uint) {
				defer wg.Done()
				_ = f.likes.UnlikeTweet(context.Background(), id, tw.ID)
			}(fan.ID)
		}
	}
	wg.Wait()
	f.requireCountersConsistent(t)
}
