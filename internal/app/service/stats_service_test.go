package service

import (
	"context"
	"testing"

	"contest_judge/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshContestLeaderboard_Idempotent(t *testing.T) {
	env := newGradingEnv(t)
	env.contests.participants["c1"] = []string{"u1", "u2", "idle"}
	for _, s := range []model.Submission{
		graded("a", "u1", model.StatusAccepted, 100, 10),
		graded("b", "u2", model.StatusWrongAnswer, 30, 5),
		graded("c", "u2", model.StatusAccepted, 100, 20),
	} {
		env.subs.put(s)
	}

	n, err := env.stats.RefreshContestLeaderboard(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "participants without submissions get no row")
	first := map[string]model.LeaderboardRow{}
	for k, v := range env.board.rows {
		first[k] = v
	}

	n, err = env.stats.RefreshContestLeaderboard(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, first, env.board.rows)

	assert.Equal(t, 10, env.board.rows["u1"].Penalty)
	assert.Equal(t, 20, env.board.rows["u2"].Penalty)
	assert.Equal(t, 2, env.board.reranks)
}

func TestRefreshProfile(t *testing.T) {
	env := newGradingEnv(t)
	env.users.profiles["u1"] = &model.UserProfile{UserID: "u1", Rating: 1500, TotalSubmissions: 99}
	a := graded("a", "u1", model.StatusAccepted, 100, 1)
	b := graded("b", "u1", model.StatusAccepted, 100, 2)
	c := graded("c", "u1", model.StatusWrongAnswer, 0, 3)
	c.ProblemID = "p2"
	for _, s := range []model.Submission{a, b, c} {
		env.subs.put(s)
	}

	p, err := env.stats.RefreshProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalSubmissions)
	assert.Equal(t, 1, p.TotalSolved)
	assert.Equal(t, 1500, p.Rating)

	n, err := env.stats.RecomputeAllProfiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, env.users.profiles["u1"].TotalSubmissions)
}

func TestLeaderboardWritesTakeContestLockFirst(t *testing.T) {
	env := newGradingEnv(t)
	env.contests.participants["c1"] = []string{"u1", "u2"}
	env.subs.put(graded("a", "u1", model.StatusAccepted, 100, 10))
	env.subs.put(graded("b", "u2", model.StatusWrongAnswer, 30, 5))

	_, err := env.stats.RefreshContestLeaderboard(context.Background(), "c1")
	require.NoError(t, err)
	require.NotEmpty(t, env.board.ops)
	assert.Equal(t, "lock:c1", env.board.ops[0])
	assert.Equal(t, "rerank:c1", env.board.ops[len(env.board.ops)-1])

	env.board.ops = nil
	require.NoError(t, env.stats.RecomputeLeaderboardRow(context.Background(), nil, env.contests.contests["c1"], "u2"))
	assert.Equal(t, []string{"lock:c1", "upsert:u2", "rerank:c1"}, env.board.ops)
}
