package service

import (
	"context"
	"database/sql"
	"log/slog"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
	"contest_judge/internal/domain/repository"
	"contest_judge/internal/platform/database"

	"github.com/google/uuid"
)

// PracticeService serves contest-less problems. Their submissions go through
// the same grading queue as contest submissions.
type PracticeService struct {
	practiceRepo repository.PracticeRepository
	jobs         *JobService
	transactor   database.Transactor
	logger       *slog.Logger
}

func NewPracticeService(practiceRepo repository.PracticeRepository, jobs *JobService, transactor database.Transactor, logger *slog.Logger) *PracticeService {
	return &PracticeService{
		practiceRepo: practiceRepo,
		jobs:         jobs,
		transactor:   transactor,
		logger:       logger.With("component", "practice"),
	}
}

type CreatePracticeProblemRequest struct {
	ProblemFields
	Editorial  *string `json:"editorial,omitempty"`
	IsFeatured bool    `json:"is_featured"`
}

func (s *PracticeService) CreateProblem(ctx context.Context, req CreatePracticeProblemRequest) (*model.PracticeProblem, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	p := &model.PracticeProblem{
		Problem:    req.toProblem(),
		Editorial:  req.Editorial,
		IsFeatured: req.IsFeatured,
	}
	testcases := toTestcases(req.Testcases)
	if err := checkTestcasePoints(p.Points, nil, testcases); err != nil {
		return nil, err
	}

	err := s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.practiceRepo.CreateProblem(ctx, tx, p); err != nil {
			return err
		}
		return s.practiceRepo.AddTestcasesToProblem(ctx, tx, p.ID, testcases)
	})
	if err != nil {
		return nil, common.Errorf("failed to create practice problem: %w", err)
	}
	p.Testcases = testcases
	return p, nil
}

func (s *PracticeService) ListProblems(ctx context.Context, difficulty model.ProblemDifficulty, userRole string) ([]model.PracticeProblem, error) {
	return s.practiceRepo.ListProblems(ctx, userRole != model.RoleAdmin, difficulty)
}

// GetProblemBySlug counts a view and attaches the sample testcases.
func (s *PracticeService) GetProblemBySlug(ctx context.Context, slug, userRole string) (*model.PracticeProblem, error) {
	p, err := s.practiceRepo.FindProblemBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.IsVisible && userRole != model.RoleAdmin {
		return nil, common.ErrNotFound
	}
	if err := s.practiceRepo.IncrementViewCount(ctx, p.ID); err != nil {
		s.logger.Warn("failed to count view", "problem_id", p.ID, "error", err)
	} else {
		p.ViewCount++
	}
	p.Testcases, err = s.practiceRepo.GetSampleTestcases(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type CreatePracticeSubmissionRequest struct {
	Code     string `json:"code" validate:"required,max=65536"`
	Language int    `json:"language" validate:"required"`
}

func (s *PracticeService) Submit(ctx context.Context, userID, problemID string, req CreatePracticeSubmissionRequest) (*model.Submission, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	p, err := s.practiceRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}

	verr := common.NewValidationError()
	if _, ok := model.LookupLanguage(req.Language); !ok {
		verr.Add("language", "unsupported language")
	}
	if !p.IsVisible {
		verr.Add("problem_id", "problem is not available")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	sub := &model.Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: p.ID,
		Code:      req.Code,
		Language:  req.Language,
		Status:    model.StatusPending,
	}
	err = s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		total, err := s.practiceRepo.CountTestcases(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		sub.TestcasesTotal = total
		return s.practiceRepo.CreateSubmission(ctx, tx, sub)
	})
	if err != nil {
		return nil, common.Errorf("failed to create practice submission: %w", err)
	}

	if err := s.jobs.EnqueueEvaluation(ctx, model.KindPractice, sub.ID); err != nil {
		s.logger.Error("practice submission stored but not enqueued", "submission_id", sub.ID, "error", err)
	}
	return sub, nil
}

func (s *PracticeService) GetSubmission(ctx context.Context, userID, role, id string) (*model.Submission, error) {
	sub, err := s.practiceRepo.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID && role != model.RoleAdmin {
		return nil, common.ErrForbidden
	}
	if sub.Status.IsTerminal() {
		if sub.TestcaseResults, err = s.practiceRepo.ListTestcaseResults(ctx, nil, sub.ID); err != nil {
			return nil, err
		}
	}
	return sub, nil
}
