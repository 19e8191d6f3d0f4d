package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func TestRedisCacheRoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	c := NewRedisCache(rdb)
	ctx := context.Background()

	var got []entry
	hit, err := c.Get(ctx, "leaderboard:contest:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	want := []entry{{Name: "alice", Score: 30}, {Name: "bob", Score: 10}}
	require.NoError(t, c.Set(ctx, "leaderboard:contest:1", want, 15*time.Second))

	hit, err = c.Get(ctx, "leaderboard:contest:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	mr.FastForward(16 * time.Second)
	hit, err = c.Get(ctx, "leaderboard:contest:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheDeleteMatching(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	c := NewRedisCache(rdb)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "leaderboard:contest:1", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "leaderboard:contest:2", 2, time.Minute))
	require.NoError(t, c.Set(ctx, "other:key", 3, time.Minute))

	require.NoError(t, c.DeleteMatching(ctx, "leaderboard:*"))

	assert.False(t, mr.Exists("leaderboard:contest:1"))
	assert.False(t, mr.Exists("leaderboard:contest:2"))
	assert.True(t, mr.Exists("other:key"))
}
