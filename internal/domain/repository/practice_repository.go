package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
)

// PracticeRepository covers the contest-less problem variant. Its submission
// methods mirror SubmissionRepository so both feed the same grading pipeline.
type PracticeRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, p *model.PracticeProblem) error
	FindProblemByID(ctx context.Context, id string) (*model.PracticeProblem, error)
	FindProblemBySlug(ctx context.Context, slug string) (*model.PracticeProblem, error)
	ListProblems(ctx context.Context, visibleOnly bool, difficulty model.ProblemDifficulty) ([]model.PracticeProblem, error)
	IncrementViewCount(ctx context.Context, id string) error
	UpdateProblemStats(ctx context.Context, tx *sql.Tx, problemID string, attemptCount, solveCount int) error
	CountDistinctAttempters(ctx context.Context, tx *sql.Tx, problemID string) (int, error)
	CountDistinctSolvers(ctx context.Context, tx *sql.Tx, problemID string) (int, error)

	AddTestcasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testcases []model.Testcase) error
	GetTestcasesByProblemID(ctx context.Context, problemID string) ([]model.Testcase, error)
	GetSampleTestcases(ctx context.Context, problemID string) ([]model.Testcase, error)
	CountTestcases(ctx context.Context, tx *sql.Tx, problemID string) (int, error)

	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	ListPendingSubmissionIDs(ctx context.Context) ([]string, error)
	CreateTestcaseResult(ctx context.Context, tx *sql.Tx, res *model.SubmissionTestcase) error
	ListTestcaseResults(ctx context.Context, tx *sql.Tx, submissionID string) ([]model.SubmissionTestcase, error)
	UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, sub *model.Submission, requirePending bool) error
	MarkSystemError(ctx context.Context, id string) error
}

type pgPracticeRepository struct {
	db *sql.DB
}

func NewPgPracticeRepository(db *sql.DB) PracticeRepository {
	return &pgPracticeRepository{db: db}
}

const practiceProblemSelect = `
	SELECT p.id, p.title, p.slug, p.statement, p.input_format, p.output_format, p.constraints, p.explanation,
	       p.time_limit, p.memory_limit, p.difficulty, p.points, p.is_visible, p.created_at, p.updated_at,
	       p.editorial, p.is_featured, p.view_count, p.solve_count, p.attempt_count,
	       (SELECT COUNT(*) FROM practice_submissions s WHERE s.problem_id = p.id),
	       (SELECT COUNT(*) FROM practice_submissions s WHERE s.problem_id = p.id AND s.status = 'Accepted')
	FROM practice_problems p`

func scanPracticeProblem(row interface{ Scan(dest ...any) error }, p *model.PracticeProblem) error {
	return row.Scan(&p.ID, &p.Title, &p.Slug, &p.Statement, &p.InputFormat, &p.OutputFormat, &p.Constraints, &p.Explanation,
		&p.TimeLimit, &p.MemoryLimit, &p.Difficulty, &p.Points, &p.IsVisible, &p.CreatedAt, &p.UpdatedAt,
		&p.Editorial, &p.IsFeatured, &p.ViewCount, &p.SolveCount, &p.AttemptCount,
		&p.SubmissionCount, &p.AcceptedCount)
}

func (r *pgPracticeRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.PracticeProblem) error {
	query := `INSERT INTO practice_problems (id, title, slug, statement, input_format, output_format, constraints, explanation,
	                                         time_limit, memory_limit, difficulty, points, is_visible, editorial, is_featured)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	          RETURNING created_at, updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, p.ID, p.Title, p.Slug, p.Statement, p.InputFormat, p.OutputFormat,
		p.Constraints, p.Explanation, p.TimeLimit, p.MemoryLimit, p.Difficulty, p.Points, p.IsVisible, p.Editorial, p.IsFeatured).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("practice problem with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgPracticeRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgPracticeRepository) findProblem(ctx context.Context, op, column, value string) (*model.PracticeProblem, error) {
	p := &model.PracticeProblem{}
	if err := scanPracticeProblem(r.db.QueryRowContext(ctx, practiceProblemSelect+` WHERE p.`+column+` = $1`, value), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPracticeRepository.%s: %w", op, err)
	}
	return p, nil
}

func (r *pgPracticeRepository) FindProblemByID(ctx context.Context, id string) (*model.PracticeProblem, error) {
	return r.findProblem(ctx, "FindProblemByID", "id", id)
}

func (r *pgPracticeRepository) FindProblemBySlug(ctx context.Context, slug string) (*model.PracticeProblem, error) {
	return r.findProblem(ctx, "FindProblemBySlug", "slug", slug)
}

func (r *pgPracticeRepository) ListProblems(ctx context.Context, visibleOnly bool, difficulty model.ProblemDifficulty) ([]model.PracticeProblem, error) {
	query := practiceProblemSelect + ` WHERE ($1 = FALSE OR p.is_visible = TRUE) AND ($2 = '' OR p.difficulty = $2)
	          ORDER BY p.is_featured DESC, p.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, visibleOnly, string(difficulty))
	if err != nil {
		return nil, fmt.Errorf("pgPracticeRepository.ListProblems: %w", err)
	}
	defer rows.Close()

	problems := []model.PracticeProblem{}
	for rows.Next() {
		var p model.PracticeProblem
		if err := scanPracticeProblem(rows, &p); err != nil {
			return nil, fmt.Errorf("pgPracticeRepository.ListProblems scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgPracticeRepository.ListProblems rows.Err: %w", err)
	}
	return problems, nil
}

func (r *pgPracticeRepository) IncrementViewCount(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE practice_problems SET view_count = view_count + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgPracticeRepository.IncrementViewCount: %w", err)
	}
	return nil
}

func (r *pgPracticeRepository) UpdateProblemStats(ctx context.Context, tx *sql.Tx, problemID string, attemptCount, solveCount int) error {
	_, err := pick(r.db, tx).ExecContext(ctx,
		`UPDATE practice_problems SET attempt_count = $1, solve_count = $2 WHERE id = $3`, attemptCount, solveCount, problemID)
	if err != nil {
		return fmt.Errorf("pgPracticeRepository.UpdateProblemStats: %w", err)
	}
	return nil
}

func (r *pgPracticeRepository) CountDistinctAttempters(ctx context.Context, tx *sql.Tx, problemID string) (int, error) {
	var n int
	err := pick(r.db, tx).QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM practice_submissions WHERE problem_id = $1`, problemID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgPracticeRepository.CountDistinctAttempters: %w", err)
	}
	return n, nil
}

func (r *pgPracticeRepository) CountDistinctSolvers(ctx context.Context, tx *sql.Tx, problemID string) (int, error) {
	var n int
	err := pick(r.db, tx).QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT user_id) FROM practice_submissions WHERE problem_id = $1 AND status = 'Accepted'`, problemID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgPracticeRepository.CountDistinctSolvers: %w", err)
	}
	return n, nil
}

func (r *pgPracticeRepository) AddTestcasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testcases []model.Testcase) error {
	return insertTestcases(ctx, tx, "practice_testcases", "pgPracticeRepository", problemID, testcases)
}

func (r *pgPracticeRepository) GetTestcasesByProblemID(ctx context.Context, problemID string) ([]model.Testcase, error) {
	return queryTestcases(ctx, r.db, "practice_testcases", "pgPracticeRepository.GetTestcasesByProblemID", problemID, false)
}

func (r *pgPracticeRepository) GetSampleTestcases(ctx context.Context, problemID string) ([]model.Testcase, error) {
	return queryTestcases(ctx, r.db, "practice_testcases", "pgPracticeRepository.GetSampleTestcases", problemID, true)
}

func (r *pgPracticeRepository) CountTestcases(ctx context.Context, tx *sql.Tx, problemID string) (int, error) {
	var n int
	if err := pick(r.db, tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM practice_testcases WHERE problem_id = $1`, problemID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgPracticeRepository.CountTestcases: %w", err)
	}
	return n, nil
}

func (r *pgPracticeRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, s *model.Submission) error {
	query := `INSERT INTO practice_submissions (id, user_id, problem_id, code, language, status, score, testcases_passed, testcases_total)
	          VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7)
	          RETURNING submitted_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, s.ID, s.UserID, s.ProblemID, s.Code, s.Language, s.Status, s.TestcasesTotal).
		Scan(&s.SubmittedAt)
	if err != nil {
		return fmt.Errorf("pgPracticeRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgPracticeRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.problem_id, s.code, s.language, s.status, s.score, s.execution_time, s.memory_used,
	                 s.testcases_passed, s.testcases_total, s.submitted_at, u.username
	          FROM practice_submissions s JOIN users u ON u.id = s.user_id
	          WHERE s.id = $1`
	s := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.UserID, &s.ProblemID, &s.Code, &s.Language, &s.Status, &s.Score,
		&s.ExecutionTime, &s.MemoryUsed, &s.TestcasesPassed, &s.TestcasesTotal, &s.SubmittedAt, &s.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPracticeRepository.GetSubmissionByID: %w", err)
	}
	return s, nil
}

func (r *pgPracticeRepository) ListPendingSubmissionIDs(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, r.db, `SELECT id FROM practice_submissions WHERE status = 'Pending' ORDER BY submitted_at, seq`,
		"pgPracticeRepository.ListPendingSubmissionIDs")
}

func (r *pgPracticeRepository) CreateTestcaseResult(ctx context.Context, tx *sql.Tx, res *model.SubmissionTestcase) error {
	return insertTestcaseResult(ctx, pick(r.db, tx), "practice_submission_testcases", "pgPracticeRepository", res, false)
}

func (r *pgPracticeRepository) ListTestcaseResults(ctx context.Context, tx *sql.Tx, submissionID string) ([]model.SubmissionTestcase, error) {
	return queryTestcaseResults(ctx, pick(r.db, tx), "practice_submission_testcases", "practice_testcases",
		"pgPracticeRepository.ListTestcaseResults", submissionID)
}

func (r *pgPracticeRepository) UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, s *model.Submission, requirePending bool) error {
	query := `UPDATE practice_submissions
	          SET status = $1, score = $2, execution_time = $3, memory_used = $4, testcases_passed = $5
	          WHERE id = $6`
	if requirePending {
		query += ` AND status = 'Pending'`
	}
	res, err := pick(r.db, tx).ExecContext(ctx, query, s.Status, s.Score, s.ExecutionTime, s.MemoryUsed, s.TestcasesPassed, s.ID)
	if err != nil {
		return fmt.Errorf("pgPracticeRepository.UpdateSubmissionResult: %w", err)
	}
	return expectOneRow(res, requirePending, "pgPracticeRepository.UpdateSubmissionResult")
}

func (r *pgPracticeRepository) MarkSystemError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE practice_submissions SET status = $1, score = 0 WHERE id = $2 AND status = 'Pending'`, model.StatusSystemError, id)
	if err != nil {
		return fmt.Errorf("pgPracticeRepository.MarkSystemError: %w", err)
	}
	return nil
}
