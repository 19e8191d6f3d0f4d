package service

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
	"contest_judge/internal/domain/repository"
	"contest_judge/internal/platform/database"

	"github.com/google/uuid"
)

type SubmissionService struct {
	submissions repository.SubmissionRepository
	problems    repository.ProblemRepository
	contests    repository.ContestRepository
	jobs        *JobService
	stats       *StatsService
	invalidator LeaderboardInvalidator
	transactor  database.Transactor
	replay      ScoringStrategy
	logger      *slog.Logger
	now         func() time.Time
}

func NewSubmissionService(
	submissions repository.SubmissionRepository,
	problems repository.ProblemRepository,
	contests repository.ContestRepository,
	jobs *JobService,
	stats *StatsService,
	invalidator LeaderboardInvalidator,
	transactor database.Transactor,
	replay ScoringStrategy,
	logger *slog.Logger,
) *SubmissionService {
	if replay == nil {
		replay = TestcasePointsScoring{}
	}
	return &SubmissionService{
		submissions: submissions,
		problems:    problems,
		contests:    contests,
		jobs:        jobs,
		stats:       stats,
		invalidator: invalidator,
		transactor:  transactor,
		replay:      replay,
		logger:      logger.With("component", "submissions"),
		now:         time.Now,
	}
}

type CreateSubmissionRequest struct {
	ProblemID string `json:"problem_id" validate:"required,uuid"`
	Code      string `json:"code" validate:"required,max=65536"`
	Language  int    `json:"language" validate:"required"`
}

// CreateSubmission validates the request, stores a Pending submission and
// queues it for grading. All rule violations are reported together.
func (s *SubmissionService) CreateSubmission(ctx context.Context, userID string, req CreateSubmissionRequest) (*model.Submission, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	problem, err := s.problems.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return nil, common.Errorf("problem %s: %w", req.ProblemID, err)
	}

	verr := common.NewValidationError()
	if _, ok := model.LookupLanguage(req.Language); !ok {
		verr.Add("language", "unsupported language")
	}
	if !problem.IsVisible {
		verr.Add("problem_id", "problem is not available")
	}
	if problem.ContestID != nil {
		if err := s.checkContestRules(ctx, verr, *problem.ContestID, userID); err != nil {
			return nil, err
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	sub := &model.Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: problem.ID,
		ContestID: problem.ContestID,
		Code:      req.Code,
		Language:  req.Language,
		Status:    model.StatusPending,
	}
	err = s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		total, err := s.problems.CountTestcases(ctx, tx, problem.ID)
		if err != nil {
			return err
		}
		sub.TestcasesTotal = total
		return s.submissions.CreateSubmission(ctx, tx, sub)
	})
	if err != nil {
		return nil, common.Errorf("failed to create submission: %w", err)
	}

	if err := s.jobs.EnqueueEvaluation(ctx, model.KindContest, sub.ID); err != nil {
		// The row is committed; the startup requeue picks it up.
		s.logger.Error("submission stored but not enqueued", "submission_id", sub.ID, "error", err)
	}
	return sub, nil
}

func (s *SubmissionService) checkContestRules(ctx context.Context, verr *common.ValidationError, contestID, userID string) error {
	contest, err := s.contests.FindContestByID(ctx, contestID)
	if err != nil {
		return common.Errorf("contest %s: %w", contestID, err)
	}
	switch contest.StatusAt(s.now()) {
	case model.ContestUpcoming:
		verr.Add("contest", "contest has not started")
	case model.ContestEnded:
		verr.Add("contest", "contest has ended")
	}

	registered, err := s.contests.IsParticipant(ctx, contestID, userID)
	if err != nil {
		return err
	}
	if !registered {
		verr.Add("registration", "you are not registered for this contest")
	}
	return nil
}

// GetSubmission is the status-polling read. Testcase rows are attached once
// the submission is terminal.
func (s *SubmissionService) GetSubmission(ctx context.Context, userID, role, id string) (*model.Submission, error) {
	sub, err := s.submissions.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID && role != model.RoleAdmin {
		return nil, common.ErrForbidden
	}
	if sub.Status.IsTerminal() {
		results, err := s.submissions.ListTestcaseResults(ctx, nil, sub.ID)
		if err != nil {
			return nil, err
		}
		sub.TestcaseResults = results
	}
	return sub, nil
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, userID string, f repository.SubmissionFilter) ([]model.Submission, error) {
	f.UserID = userID
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	subs, err := s.submissions.ListSubmissions(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].Code = ""
	}
	return subs, nil
}

type ReplayTestcaseRequest struct {
	Status        model.SubmissionStatus `json:"status" validate:"required"`
	ExecutionTime float64                `json:"execution_time" validate:"gte=0"`
	MemoryUsed    *float64               `json:"memory_used,omitempty" validate:"omitempty,gte=0"`
	Output        *string                `json:"output,omitempty"`
}

// ApplyTestcaseResult overwrites one testcase verdict and re-aggregates the
// submission with the replay scoring strategy.
func (s *SubmissionService) ApplyTestcaseResult(ctx context.Context, submissionID, testcaseID string, req ReplayTestcaseRequest) (*model.Submission, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.Status == model.StatusPending {
		return nil, common.NewValidationError().Add("status", "must be a terminal status")
	}

	sub, err := s.submissions.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	tc, err := s.problems.FindTestcaseByID(ctx, testcaseID)
	if err != nil {
		return nil, err
	}
	if tc.ProblemID != sub.ProblemID {
		return nil, common.NewValidationError().Add("testcase_id", "testcase does not belong to the submission's problem")
	}
	testcases, err := s.problems.GetTestcasesByProblemID(ctx, sub.ProblemID)
	if err != nil {
		return nil, err
	}
	if !containsTestcase(snapshotTestcases(testcases, sub.TestcasesTotal), tc.ID) {
		return nil, common.NewValidationError().Add("testcase_id", "testcase was added after the submission")
	}
	problem, err := s.problems.FindProblemByID(ctx, sub.ProblemID)
	if err != nil {
		return nil, err
	}

	row := &model.SubmissionTestcase{
		ID:            uuid.NewString(),
		SubmissionID:  sub.ID,
		TestcaseID:    tc.ID,
		Status:        req.Status,
		ExecutionTime: req.ExecutionTime,
		MemoryUsed:    req.MemoryUsed,
		Output:        req.Output,
	}
	err = s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.submissions.UpsertTestcaseResult(ctx, tx, row); err != nil {
			return err
		}
		results, err := s.submissions.ListTestcaseResults(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		Aggregate(problem, results, sub.TestcasesTotal, s.replay).Apply(sub)
		sub.TestcaseResults = results
		if err := s.submissions.UpdateSubmissionResult(ctx, tx, sub, false); err != nil {
			return err
		}
		return s.stats.AfterGrading(ctx, tx, model.KindContest, sub)
	})
	if err != nil {
		return nil, common.Errorf("failed to apply testcase result: %w", err)
	}

	s.logger.Info("testcase result replayed", "submission_id", sub.ID, "testcase_id", tc.ID,
		"strategy", s.replay.Name(), "status", sub.Status, "score", sub.Score)
	if s.invalidator != nil {
		contestID := ""
		if sub.ContestID != nil {
			contestID = *sub.ContestID
		}
		s.invalidator.Invalidate(ctx, sub.ProblemID, contestID)
	}
	return sub, nil
}

func containsTestcase(testcases []model.Testcase, id string) bool {
	for _, tc := range testcases {
		if tc.ID == id {
			return true
		}
	}
	return false
}
