package service

import (
	"context"
	"testing"
	"time"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
	"contest_judge/internal/platform/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLeaderboardEnv(t *testing.T) (*LeaderboardService, *gradingEnv, *miniredis.Miniredis) {
	t.Helper()
	env := newGradingEnv(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := NewLeaderboardService(env.subs, env.problems, env.contests, env.board, cache.NewRedisCache(rdb), time.Minute, discardLogger())
	return svc, env, mr
}

func graded(id, user string, status model.SubmissionStatus, score, minute int) model.Submission {
	s := sub(user, "p1", status, score, minute, 0.1)
	s.ID = id
	s.ContestID = ptr("c1")
	return s
}

func TestGetLeaderboard_Scope(t *testing.T) {
	svc, _, _ := newLeaderboardEnv(t)

	_, err := svc.GetLeaderboard(context.Background(), LeaderboardQuery{})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.GetLeaderboard(context.Background(), LeaderboardQuery{ProblemID: "p1", ContestID: "c1"})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.GetLeaderboard(context.Background(), LeaderboardQuery{ContestID: "missing"})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = svc.GetLeaderboard(context.Background(), LeaderboardQuery{ProblemID: "missing"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetLeaderboard_CachesAndInvalidates(t *testing.T) {
	svc, env, mr := newLeaderboardEnv(t)
	ctx := context.Background()
	env.subs.put(graded("s1", "alice", model.StatusAccepted, 20, 1))
	env.subs.put(graded("s2", "bob", model.StatusWrongAnswer, 10, 2))

	q := LeaderboardQuery{ContestID: "c1"}
	first, err := svc.GetLeaderboard(ctx, q)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "alice", first[0].UserID)
	assert.True(t, mr.Exists("leaderboard:contest:c1"))

	// A new submission is invisible until the scope is invalidated.
	env.subs.put(graded("s3", "bob", model.StatusAccepted, 20, 3))
	again, err := svc.GetLeaderboard(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, env.subs.lbCalls)

	svc.Invalidate(ctx, "p1", "c1")
	assert.False(t, mr.Exists("leaderboard:contest:c1"))

	fresh, err := svc.GetLeaderboard(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, env.subs.lbCalls)
	require.Len(t, fresh, 2)
	assert.Equal(t, 20, fresh[1].TotalScore)
}

func TestGetLeaderboard_SharedCacheHit(t *testing.T) {
	svc, env, _ := newLeaderboardEnv(t)
	ctx := context.Background()
	env.subs.put(graded("s1", "alice", model.StatusAccepted, 20, 1))

	_, err := svc.GetLeaderboard(ctx, LeaderboardQuery{ProblemID: "p1"})
	require.NoError(t, err)

	// A second instance sharing the same Redis reads the stored entries.
	other := NewLeaderboardService(env.subs, env.problems, env.contests, env.board, svc.shared, time.Minute, discardLogger())
	entries, err := other.GetLeaderboard(ctx, LeaderboardQuery{ProblemID: "p1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, env.subs.lbCalls)
}

func TestGetContestStandings(t *testing.T) {
	svc, env, _ := newLeaderboardEnv(t)
	_, err := svc.GetContestStandings(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	env.board.rows["u1"] = model.LeaderboardRow{ContestID: "c1", UserID: "u1", Score: 10}
	rows, err := svc.GetContestStandings(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

type ctxRecordingCache struct {
	SharedCache
	errs []error
}

func (c *ctxRecordingCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.errs = append(c.errs, ctx.Err())
	return c.SharedCache.Get(ctx, key, dst)
}

func (c *ctxRecordingCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.errs = append(c.errs, ctx.Err())
	return c.SharedCache.Set(ctx, key, value, ttl)
}

func TestGetLeaderboard_BuildSurvivesCallerCancellation(t *testing.T) {
	svc, env, mr := newLeaderboardEnv(t)
	rec := &ctxRecordingCache{SharedCache: svc.shared}
	svc.shared = rec
	env.subs.put(graded("s1", "alice", model.StatusAccepted, 20, 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entries, err := svc.GetLeaderboard(ctx, LeaderboardQuery{ContestID: "c1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.Len(t, rec.errs, 2)
	for _, e := range rec.errs {
		assert.NoError(t, e, "shared build runs detached from the caller's cancellation")
	}
	assert.True(t, mr.Exists("leaderboard:contest:c1"))
}

func TestGetLeaderboard_LocalCopyIsShortLived(t *testing.T) {
	svc, env, _ := newLeaderboardEnv(t)
	env.subs.put(graded("s1", "alice", model.StatusAccepted, 20, 1))

	_, err := svc.GetLeaderboard(context.Background(), LeaderboardQuery{ContestID: "c1"})
	require.NoError(t, err)

	item, ok := svc.local.Items()["leaderboard:contest:c1"]
	require.True(t, ok)
	assert.LessOrEqual(t, time.Until(time.Unix(0, item.Expiration)), maxLocalTTL,
		"in-memory copy expires well before the one-minute redis ttl")
	assert.Equal(t, time.Minute, svc.ttl)
}
