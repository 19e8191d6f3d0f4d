package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
	"contest_judge/internal/domain/repository"
	"contest_judge/internal/platform/database"
)

// gradingSource hides which table family a submission lives in.
type gradingSource interface {
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	LoadProblem(ctx context.Context, problemID string) (*model.Problem, []model.Testcase, error)
	CreateTestcaseResult(ctx context.Context, tx *sql.Tx, res *model.SubmissionTestcase) error
	UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, sub *model.Submission, requirePending bool) error
	MarkSystemError(ctx context.Context, id string) error
	ListPendingSubmissionIDs(ctx context.Context) ([]string, error)
}

type contestSource struct {
	repository.SubmissionRepository
	problems repository.ProblemRepository
}

func (s contestSource) LoadProblem(ctx context.Context, problemID string) (*model.Problem, []model.Testcase, error) {
	problem, err := s.problems.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, nil, err
	}
	tcs, err := s.problems.GetTestcasesByProblemID(ctx, problemID)
	if err != nil {
		return nil, nil, err
	}
	return problem, tcs, nil
}

type practiceSource struct {
	repository.PracticeRepository
}

func (s practiceSource) LoadProblem(ctx context.Context, problemID string) (*model.Problem, []model.Testcase, error) {
	p, err := s.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, nil, err
	}
	tcs, err := s.GetTestcasesByProblemID(ctx, problemID)
	if err != nil {
		return nil, nil, err
	}
	return &p.Problem, tcs, nil
}

// LeaderboardInvalidator drops cached standings for a scope.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context, problemID, contestID string)
}

// Grader takes a Pending submission to its terminal state: it judges every
// testcase, aggregates the verdict and, in one transaction, writes the
// testcase rows, the submission row and the derived stats.
type Grader struct {
	transactor  database.Transactor
	evaluator   *Evaluator
	stats       *StatsService
	invalidator LeaderboardInvalidator
	sources     map[model.SubmissionKind]gradingSource
	logger      *slog.Logger
}

func NewGrader(
	transactor database.Transactor,
	evaluator *Evaluator,
	stats *StatsService,
	invalidator LeaderboardInvalidator,
	submissions repository.SubmissionRepository,
	problems repository.ProblemRepository,
	practice repository.PracticeRepository,
	logger *slog.Logger,
) *Grader {
	return &Grader{
		transactor:  transactor,
		evaluator:   evaluator,
		stats:       stats,
		invalidator: invalidator,
		sources: map[model.SubmissionKind]gradingSource{
			model.KindContest:  contestSource{SubmissionRepository: submissions, problems: problems},
			model.KindPractice: practiceSource{PracticeRepository: practice},
		},
		logger: logger.With("component", "grader"),
	}
}

func (g *Grader) source(kind model.SubmissionKind) (gradingSource, error) {
	src, ok := g.sources[kind]
	if !ok {
		return nil, fmt.Errorf("unknown submission kind %q: %w", kind, common.ErrBadRequest)
	}
	return src, nil
}

// Grade is a no-op for submissions that are missing or already terminal.
func (g *Grader) Grade(ctx context.Context, kind model.SubmissionKind, submissionID string) error {
	src, err := g.source(kind)
	if err != nil {
		return err
	}
	log := g.logger.With("kind", kind, "submission_id", submissionID)

	sub, err := src.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Warn("submission vanished before grading")
			return nil
		}
		return fmt.Errorf("load submission: %w", err)
	}
	if sub.Status != model.StatusPending {
		log.Info("submission already graded, skipping", "status", sub.Status)
		return nil
	}

	problem, testcases, err := src.LoadProblem(ctx, sub.ProblemID)
	if err != nil {
		return fmt.Errorf("load problem %s: %w", sub.ProblemID, err)
	}
	if n := len(testcases); n > sub.TestcasesTotal {
		log.Info("ignoring testcases added after submission", "added", n-sub.TestcasesTotal)
		testcases = snapshotTestcases(testcases, sub.TestcasesTotal)
	}

	var results []model.SubmissionTestcase
	if len(testcases) == 0 {
		log.Warn("problem has no testcases", "problem_id", problem.ID)
	} else {
		results, err = g.evaluator.Evaluate(ctx, sub, problem, testcases)
		if err != nil {
			return err
		}
	}

	verdict := Aggregate(problem, results, sub.TestcasesTotal, TestcasePointsScoring{})
	verdict.Apply(sub)

	err = g.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		for i := range results {
			if err := src.CreateTestcaseResult(ctx, tx, &results[i]); err != nil {
				return err
			}
		}
		if err := src.UpdateSubmissionResult(ctx, tx, sub, true); err != nil {
			return err
		}
		return g.stats.AfterGrading(ctx, tx, kind, sub)
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			log.Info("submission graded concurrently, discarding result")
			return nil
		}
		return fmt.Errorf("persist verdict: %w", err)
	}

	log.Info("submission graded", "status", sub.Status, "score", sub.Score,
		"passed", sub.TestcasesPassed, "total", sub.TestcasesTotal)
	g.invalidate(ctx, kind, sub)
	return nil
}

// snapshotTestcases returns the testcases that existed when the submission
// was created. Testcases are append-only and listed in insertion order, so
// the snapshot is the first total of them.
func snapshotTestcases(testcases []model.Testcase, total int) []model.Testcase {
	if total < 0 {
		total = 0
	}
	if len(testcases) <= total {
		return testcases
	}
	return testcases[:total]
}

// MarkSystemError gives up on a submission that could not be graded, then
// refreshes the stats and cached standings that count it.
func (g *Grader) MarkSystemError(ctx context.Context, kind model.SubmissionKind, submissionID string) error {
	src, err := g.source(kind)
	if err != nil {
		return err
	}
	if err := src.MarkSystemError(ctx, submissionID); err != nil {
		return err
	}

	sub, err := src.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("reload submission: %w", err)
	}
	err = g.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		return g.stats.AfterGrading(ctx, tx, kind, sub)
	})
	if err != nil {
		return fmt.Errorf("refresh stats after system error: %w", err)
	}
	g.invalidate(ctx, kind, sub)
	return nil
}

func (g *Grader) invalidate(ctx context.Context, kind model.SubmissionKind, sub *model.Submission) {
	if kind != model.KindContest || g.invalidator == nil {
		return
	}
	contestID := ""
	if sub.ContestID != nil {
		contestID = *sub.ContestID
	}
	g.invalidator.Invalidate(ctx, sub.ProblemID, contestID)
}

// PendingSubmissionIDs lists submissions still waiting for a verdict.
func (g *Grader) PendingSubmissionIDs(ctx context.Context, kind model.SubmissionKind) ([]string, error) {
	src, err := g.source(kind)
	if err != nil {
		return nil, err
	}
	return src.ListPendingSubmissionIDs(ctx)
}
