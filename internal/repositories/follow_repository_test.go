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

func TestFollowUpdatesCounters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	require.NoError(t, f.follows.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.follows.Follow(ctx, carol.ID, bob.ID))
	require.NoError(t, f.follows.Follow(ctx, bob.ID, alice.ID))

	assert.EqualValues(t, 1, f.reload(t, alice).FollowingCount)
	assert.EqualValues(t, 1, f.reload(t, alice).FollowersCount)
	assert.EqualValues(t, 2, f.reload(t, bob).FollowersCount)
	assert.EqualValues(t, 1, f.reload(t, bob).FollowingCount)
	assert.EqualValues(t, 1, f.reload(t, carol).FollowingCount)
	f.requireCountersConsistent(t)

	following, err := f.follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)
}

func TestFollowErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	err := f.follows.Follow(ctx, alice.ID, alice.ID)
	assert.True(t, repositories.ErrInvalidOperation.Has(err), "self follow: %v", err)

	err = f.follows.Follow(ctx, alice.ID, 999)
	assert.True(t, repositories.ErrNotFound.Has(err), "unknown followee: %v", err)

	err = f.follows.Follow(ctx, 999, alice.ID)
	assert.True(t, repositories.ErrNotFound.Has(err), "unknown follower: %v", err)

	require.NoError(t, f.follows.Follow(ctx, alice.ID, bob.ID))
	err = f.follows.Follow(ctx, alice.ID, bob.ID)
	assert.True(t, repositories.ErrConflict.Has(err), "second follow: %v", err)

	assert.EqualValues(t, 1, f.reload(t, bob).FollowersCount)
	assert.EqualValues(t, 1, f.reload(t, alice).FollowingCount)
	f.requireCountersConsistent(t)
}

func TestUnfollow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	err := f.follows.Unfollow(ctx, alice.ID, bob.ID)
	assert.True(t, repositories.ErrNotFound.Has(err))

	require.NoError(t, f.follows.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.follows.Unfollow(ctx, alice.ID, bob.ID))

	assert.Zero(t, f.reload(t, bob).FollowersCount)
	assert.Zero(t, f.reload(t, alice).FollowingCount)

	err = f.follows.Unfollow(ctx, alice.ID, bob.ID)
	assert.True(t, repositories.ErrNotFound.Has(err))
	f.requireCountersConsistent(t)
}

func TestConcurrentFollowSamePair(t *testing.T) {
	f := newFixture(t, nil)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.follows.Follow(context.Background(), alice.ID, bob.ID)
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case repositories.ErrConflict.Has(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
	assert.EqualValues(t, 1, f.reload(t, bob).FollowersCount)
	f.requireCountersConsistent(t)
}

func TestConcurrentUnfollowSamePair(t *testing.T) {
	f := newFixture(t, nil)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	require.NoError(t, f.follows.Follow(context.Background(), alice.ID, bob.ID))

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.follows.Unfollow(context.Background(), alice.ID, bob.ID)
		}(i)
	}
	wg.Wait()

	var ok, missing int
	for _, err := range errs {
		if err == nil {
			ok++
		} else if repositories.ErrNotFound.Has(err) {
			missing++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, missing)
	assert.Zero(t, f.reload(t, bob).FollowersCount)
	f.requireCountersConsistent(t)
}

func TestConcurrentMixedFollowsKeepCounters(t *testing.T) {
	f := newFixture(t, nil)
	users := []*models.User{f.user(t, "a"), f.user(t, "b"), f.user(t, "c"), f.user(t, "d")}

	var wg sync.WaitGroup
	for _, from := range users {
		for _, to := range users {
			if from.ID == to.ID {
				continue
			}
			wg.Add(2)
			go func(from, to uint) {
				defer wg.Done()
				_ = f.follows.Follow(context.Background(), from, to)
			}(from.ID, to.ID)
			go func(from, to uint) {
				defer wg.Done()
				_ = f.follows.Unfollow(context.Background(), from, to)
			}(from.ID, to.ID)
		}
	}
	wg.Wait()
	f.requireCountersConsistent(t)
}

func TestListFollowingAndFollowers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	require.NoError(t, f.follows.Follow(ctx, alice.ID, carol.ID))
	require.NoError(t, f.follows.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, f.follows.Follow(ctx, carol.ID, bob.ID))

	following, err := f.follows.GetFollowing(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.UserCompact{bob.ToCompact(), carol.ToCompact()}, following)

	followers, err := f.follows.GetFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.UserCompact{alice.ToCompact(), carol.ToCompact()}, followers)

	none, err := f.follows.GetFollowers(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)

	_, err = f.follows.GetFollowing(ctx, 999)
	assert.True(t, repositories.ErrNotFound.Has(err))
	_, err = f.follows.GetFollowers(ctx, 999)
	assert.True(t, repositories.ErrNotFound.Has(err))
}
