package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"contest_judge/internal/domain/model"
	"contest_judge/internal/domain/repository"
	"contest_judge/internal/platform/database"
)

// StatsService recomputes derived counters from submission rows. Every method
// overwrites its target from scratch, so it is safe to re-run.
type StatsService struct {
	users       repository.UserRepository
	submissions repository.SubmissionRepository
	practice    repository.PracticeRepository
	contests    repository.ContestRepository
	leaderboard repository.LeaderboardRepository
	transactor  database.Transactor
	logger      *slog.Logger
}

func NewStatsService(
	users repository.UserRepository,
	submissions repository.SubmissionRepository,
	practice repository.PracticeRepository,
	contests repository.ContestRepository,
	leaderboard repository.LeaderboardRepository,
	transactor database.Transactor,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		users:       users,
		submissions: submissions,
		practice:    practice,
		contests:    contests,
		leaderboard: leaderboard,
		transactor:  transactor,
		logger:      logger.With("component", "stats"),
	}
}

func (s *StatsService) RecomputeUserProfile(ctx context.Context, tx *sql.Tx, userID string) error {
	total, err := s.submissions.CountSubmissionsByUser(ctx, tx, userID)
	if err != nil {
		return err
	}
	solved, err := s.submissions.CountSolvedProblemsByUser(ctx, tx, userID)
	if err != nil {
		return err
	}
	return s.users.UpdateProfileCounters(ctx, tx, userID, total, solved)
}

func (s *StatsService) RecomputePracticeProblem(ctx context.Context, tx *sql.Tx, problemID string) error {
	attempts, err := s.practice.CountDistinctAttempters(ctx, tx, problemID)
	if err != nil {
		return err
	}
	solves, err := s.practice.CountDistinctSolvers(ctx, tx, problemID)
	if err != nil {
		return err
	}
	return s.practice.UpdateProblemStats(ctx, tx, problemID, attempts, solves)
}

// RecomputeLeaderboardRow rebuilds one user's snapshot row and reranks the
// contest. The contest lock is taken first so that concurrent graders never
// hold one row each while waiting on the other's rerank.
func (s *StatsService) RecomputeLeaderboardRow(ctx context.Context, tx *sql.Tx, contest *model.Contest, userID string) error {
	if err := s.leaderboard.LockContest(ctx, tx, contest.ID); err != nil {
		return err
	}
	subs, err := s.submissions.ListUserContestSubmissions(ctx, tx, userID, contest.ID)
	if err != nil {
		return err
	}
	row, ok := ComputeLeaderboardRow(contest, userID, subs)
	if !ok {
		return nil
	}
	if err := s.leaderboard.UpsertRow(ctx, tx, row); err != nil {
		return err
	}
	return s.leaderboard.RerankContest(ctx, tx, contest.ID)
}

// AfterGrading refreshes everything that depends on a graded submission.
func (s *StatsService) AfterGrading(ctx context.Context, tx *sql.Tx, kind model.SubmissionKind, sub *model.Submission) error {
	if kind == model.KindPractice {
		if err := s.RecomputePracticeProblem(ctx, tx, sub.ProblemID); err != nil {
			return fmt.Errorf("recompute practice problem %s: %w", sub.ProblemID, err)
		}
		return nil
	}

	if err := s.RecomputeUserProfile(ctx, tx, sub.UserID); err != nil {
		return fmt.Errorf("recompute profile %s: %w", sub.UserID, err)
	}
	if sub.ContestID == nil {
		return nil
	}
	contest, err := s.contests.FindContestByID(ctx, *sub.ContestID)
	if err != nil {
		return fmt.Errorf("load contest %s: %w", *sub.ContestID, err)
	}
	if err := s.RecomputeLeaderboardRow(ctx, tx, contest, sub.UserID); err != nil {
		return fmt.Errorf("recompute leaderboard row: %w", err)
	}
	return nil
}

// RefreshProfile recomputes a profile outside any grading transaction and
// returns the stored result.
func (s *StatsService) RefreshProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var profile *model.UserProfile
	err := s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.RecomputeUserProfile(ctx, tx, userID); err != nil {
			return err
		}
		p, err := s.users.GetProfile(ctx, tx, userID)
		if err != nil {
			return err
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// RecomputeAllProfiles returns how many profiles were refreshed.
func (s *StatsService) RecomputeAllProfiles(ctx context.Context) (int, error) {
	ids, err := s.users.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	for i, id := range ids {
		if err := s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
			return s.RecomputeUserProfile(ctx, tx, id)
		}); err != nil {
			return i, fmt.Errorf("recompute profile %s: %w", id, err)
		}
	}
	s.logger.Info("recomputed user profiles", "count", len(ids))
	return len(ids), nil
}

// RefreshContestLeaderboard rebuilds the whole snapshot for a contest in one
// transaction and returns the number of rows written.
func (s *StatsService) RefreshContestLeaderboard(ctx context.Context, contestID string) (int, error) {
	contest, err := s.contests.FindContestByID(ctx, contestID)
	if err != nil {
		return 0, err
	}
	userIDs, err := s.contests.ListParticipantIDs(ctx, contestID)
	if err != nil {
		return 0, err
	}

	written := 0
	err = s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.leaderboard.LockContest(ctx, tx, contestID); err != nil {
			return err
		}
		for _, userID := range userIDs {
			subs, err := s.submissions.ListUserContestSubmissions(ctx, tx, userID, contestID)
			if err != nil {
				return err
			}
			row, ok := ComputeLeaderboardRow(contest, userID, subs)
			if !ok {
				continue
			}
			if err := s.leaderboard.UpsertRow(ctx, tx, row); err != nil {
				return err
			}
			written++
		}
		return s.leaderboard.RerankContest(ctx, tx, contestID)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("refreshed contest leaderboard", "contest_id", contestID, "rows", written)
	return written, nil
}
