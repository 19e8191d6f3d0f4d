package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
	"contest_judge/internal/domain/repository"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// SharedCache is the cross-instance cache layer (Redis in production).
type SharedCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// LeaderboardQuery selects the scope; exactly one field must be set.
type LeaderboardQuery struct {
	ProblemID string
	ContestID string
}

func (q LeaderboardQuery) validate() error {
	if (q.ProblemID == "") == (q.ContestID == "") {
		return common.NewValidationError().Add("scope", "exactly one of problem_id or contest_id is required")
	}
	return nil
}

func (q LeaderboardQuery) cacheKey() string {
	if q.ContestID != "" {
		return "leaderboard:contest:" + q.ContestID
	}
	return "leaderboard:problem:" + q.ProblemID
}

// maxLocalTTL bounds how long a process serves its in-memory copy after
// another process (judgectl, a peer server) invalidated Redis.
const maxLocalTTL = 5 * time.Second

// LeaderboardService answers standings queries. The dynamic leaderboard is
// rebuilt from submissions on a miss and cached in-process and in Redis.
type LeaderboardService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	contests    repository.ContestRepository
	snapshots   repository.LeaderboardRepository

	local  *gocache.Cache
	shared SharedCache
	group  singleflight.Group
	ttl    time.Duration
	logger *slog.Logger
}

func NewLeaderboardService(
	submissions repository.SubmissionRepository,
	problems repository.ProblemRepository,
	contests repository.ContestRepository,
	snapshots repository.LeaderboardRepository,
	shared SharedCache,
	ttl time.Duration,
	logger *slog.Logger,
) *LeaderboardService {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	localTTL := min(ttl, maxLocalTTL)
	return &LeaderboardService{
		submissions: submissions,
		problems:    problems,
		contests:    contests,
		snapshots:   snapshots,
		local:       gocache.New(localTTL, 2*localTTL),
		shared:      shared,
		ttl:         ttl,
		logger:      logger.With("component", "leaderboard"),
	}
}

func (s *LeaderboardService) GetLeaderboard(ctx context.Context, q LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	key := q.cacheKey()

	if cached, ok := s.local.Get(key); ok {
		return cached.([]model.LeaderboardEntry), nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// Shared by every waiter on key, so one caller going away must not
		// fail the rest.
		ctx := context.WithoutCancel(ctx)
		if s.shared != nil {
			var entries []model.LeaderboardEntry
			hit, err := s.shared.Get(ctx, key, &entries)
			if err != nil {
				s.logger.Warn("shared cache read failed", "key", key, "error", err)
			} else if hit {
				s.local.Set(key, entries, gocache.DefaultExpiration)
				return entries, nil
			}
		}

		entries, err := s.build(ctx, q)
		if err != nil {
			return nil, err
		}
		s.local.Set(key, entries, gocache.DefaultExpiration)
		if s.shared != nil {
			if err := s.shared.Set(ctx, key, entries, s.ttl); err != nil {
				s.logger.Warn("shared cache write failed", "key", key, "error", err)
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.LeaderboardEntry), nil
}

func (s *LeaderboardService) build(ctx context.Context, q LeaderboardQuery) ([]model.LeaderboardEntry, error) {
	if q.ContestID != "" {
		if _, err := s.contests.FindContestByID(ctx, q.ContestID); err != nil {
			return nil, fmt.Errorf("contest %s: %w", q.ContestID, err)
		}
	} else {
		if _, err := s.problems.FindProblemByID(ctx, q.ProblemID); err != nil {
			return nil, fmt.Errorf("problem %s: %w", q.ProblemID, err)
		}
	}

	subs, err := s.submissions.ListForLeaderboard(ctx, q.ProblemID, q.ContestID)
	if err != nil {
		return nil, err
	}
	return BuildStandings(subs), nil
}

// Invalidate drops both the problem-scoped and contest-scoped entries.
func (s *LeaderboardService) Invalidate(ctx context.Context, problemID, contestID string) {
	var keys []string
	if problemID != "" {
		keys = append(keys, LeaderboardQuery{ProblemID: problemID}.cacheKey())
	}
	if contestID != "" {
		keys = append(keys, LeaderboardQuery{ContestID: contestID}.cacheKey())
	}
	for _, k := range keys {
		s.local.Delete(k)
	}
	if s.shared != nil && len(keys) > 0 {
		if err := s.shared.Delete(ctx, keys...); err != nil {
			s.logger.Warn("shared cache invalidation failed", "keys", keys, "error", err)
		}
	}
}

// GetContestStandings returns the persisted snapshot ordered by rank.
func (s *LeaderboardService) GetContestStandings(ctx context.Context, contestID string) ([]model.LeaderboardRow, error) {
	if _, err := s.contests.FindContestByID(ctx, contestID); err != nil {
		return nil, err
	}
	return s.snapshots.ListByContest(ctx, contestID)
}
