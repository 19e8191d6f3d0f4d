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
	"github.com/gosimple/slug" // For slug generation
)

type ProblemService struct {
	problemRepo repository.ProblemRepository
	contestRepo repository.ContestRepository
	transactor  database.Transactor
	logger      *slog.Logger
}

func NewProblemService(problemRepo repository.ProblemRepository, contestRepo repository.ContestRepository, transactor database.Transactor, logger *slog.Logger) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		contestRepo: contestRepo,
		transactor:  transactor,
		logger:      logger.With("component", "problems"),
	}
}

type TestcaseInput struct {
	Input    string `json:"input"`
	Output   string `json:"output" validate:"required"`
	IsSample bool   `json:"is_sample"`
	Points   int    `json:"points" validate:"gte=0"`
}

// ProblemFields is shared by contest and practice problem creation.
type ProblemFields struct {
	Title        string                  `json:"title" validate:"required,max=200"`
	Statement    string                  `json:"statement" validate:"required"`
	InputFormat  string                  `json:"input_format"`
	OutputFormat string                  `json:"output_format"`
	Constraints  string                  `json:"constraints"`
	Explanation  *string                 `json:"explanation,omitempty"`
	TimeLimit    float64                 `json:"time_limit" validate:"gte=0"`
	MemoryLimit  int                     `json:"memory_limit" validate:"gte=0"`
	Difficulty   model.ProblemDifficulty `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard 'Very Hard'"`
	Points       int                     `json:"points" validate:"gte=0"`
	IsVisible    *bool                   `json:"is_visible,omitempty"`
	Testcases    []TestcaseInput         `json:"testcases" validate:"dive"`
}

type CreateProblemRequest struct {
	ContestID string `json:"contest_id" validate:"required,uuid"`
	ProblemFields
}

// toProblem applies defaults: 1s, 256 MB, 100 points, visible, Easy.
func (f ProblemFields) toProblem() model.Problem {
	p := model.Problem{
		ID:           uuid.NewString(),
		Title:        f.Title,
		Slug:         slug.Make(f.Title),
		Statement:    f.Statement,
		InputFormat:  f.InputFormat,
		OutputFormat: f.OutputFormat,
		Constraints:  f.Constraints,
		Explanation:  f.Explanation,
		TimeLimit:    f.TimeLimit,
		MemoryLimit:  f.MemoryLimit,
		Difficulty:   f.Difficulty,
		Points:       f.Points,
		IsVisible:    true,
	}
	if p.TimeLimit == 0 {
		p.TimeLimit = model.DefaultTimeLimit
	}
	if p.MemoryLimit == 0 {
		p.MemoryLimit = model.DefaultMemoryLimit
	}
	if p.Points == 0 {
		p.Points = model.DefaultPoints
	}
	if p.Difficulty == "" {
		p.Difficulty = model.DifficultyEasy
	}
	if f.IsVisible != nil {
		p.IsVisible = *f.IsVisible
	}
	return p
}

func toTestcases(in []TestcaseInput) []model.Testcase {
	out := make([]model.Testcase, 0, len(in))
	for _, tc := range in {
		out = append(out, model.Testcase{
			ID:       uuid.NewString(),
			Input:    tc.Input,
			Output:   tc.Output,
			IsSample: tc.IsSample,
			Points:   tc.Points,
		})
	}
	return out
}

// checkTestcasePoints reports testcase points that exceed the problem total.
func checkTestcasePoints(problemPoints int, existing []model.Testcase, added []model.Testcase) error {
	sum := 0
	for _, tc := range existing {
		sum += tc.Points
	}
	for _, tc := range added {
		sum += tc.Points
	}
	if sum > problemPoints {
		return common.NewValidationError().Add("testcases", "testcase points exceed problem points")
	}
	return nil
}

func (s *ProblemService) CreateProblem(ctx context.Context, req CreateProblemRequest) (*model.Problem, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.contestRepo.FindContestByID(ctx, req.ContestID); err != nil {
		return nil, common.Errorf("contest %s: %w", req.ContestID, err)
	}

	problem := req.toProblem()
	problem.ContestID = &req.ContestID
	testcases := toTestcases(req.Testcases)
	if err := checkTestcasePoints(problem.Points, nil, testcases); err != nil {
		return nil, err
	}

	err := s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := s.problemRepo.CreateProblem(ctx, tx, &problem); err != nil {
			return err
		}
		return s.problemRepo.AddTestcasesToProblem(ctx, tx, problem.ID, testcases)
	})
	if err != nil {
		return nil, common.Errorf("failed to create problem: %w", err)
	}

	s.logger.Info("problem created", "problem_id", problem.ID, "contest_id", req.ContestID, "testcases", len(testcases))
	problem.Testcases = testcases // Admin view
	return &problem, nil
}

type AddTestcasesRequest struct {
	Testcases []TestcaseInput `json:"testcases" validate:"required,min=1,dive"`
}

// AddTestcases appends testcases. Submissions created earlier keep their
// testcases_total.
func (s *ProblemService) AddTestcases(ctx context.Context, problemID string, req AddTestcasesRequest) ([]model.Testcase, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	existing, err := s.problemRepo.GetTestcasesByProblemID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	testcases := toTestcases(req.Testcases)
	if err := checkTestcasePoints(problem.Points, existing, testcases); err != nil {
		return nil, err
	}

	err = s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		return s.problemRepo.AddTestcasesToProblem(ctx, tx, problemID, testcases)
	})
	if err != nil {
		return nil, common.Errorf("failed to add testcases: %w", err)
	}
	return testcases, nil
}

// GetProblemDetails hides invisible problems from non-admins. Regular users
// only see sample testcases.
func (s *ProblemService) GetProblemDetails(ctx context.Context, problemID, userRole string) (*model.Problem, error) {
	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return nil, err
	}
	if !problem.IsVisible && userRole != model.RoleAdmin {
		return nil, common.ErrNotFound
	}

	if userRole == model.RoleAdmin {
		problem.Testcases, err = s.problemRepo.GetTestcasesByProblemID(ctx, problem.ID)
	} else {
		problem.Testcases, err = s.problemRepo.GetSampleTestcases(ctx, problem.ID)
	}
	if err != nil {
		s.logger.Warn("failed to fetch testcases", "problem_id", problem.ID, "error", err)
	}
	return problem, nil
}

func (s *ProblemService) ListContestProblems(ctx context.Context, contestID, userRole string) ([]model.Problem, error) {
	if _, err := s.contestRepo.FindContestByID(ctx, contestID); err != nil {
		return nil, err
	}
	return s.problemRepo.ListProblemsByContest(ctx, contestID, userRole != model.RoleAdmin)
}
