package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
)

type ProblemRepository interface {
	CreateProblem(ctx context.Context, tx *sql.Tx, problem *model.Problem) error
	FindProblemByID(ctx context.Context, id string) (*model.Problem, error)
	ListProblemsByContest(ctx context.Context, contestID string, visibleOnly bool) ([]model.Problem, error)

	AddTestcasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testcases []model.Testcase) error
	// GetTestcasesByProblemID returns testcases in insertion order.
	GetTestcasesByProblemID(ctx context.Context, problemID string) ([]model.Testcase, error)
	GetSampleTestcases(ctx context.Context, problemID string) ([]model.Testcase, error)
	CountTestcases(ctx context.Context, tx *sql.Tx, problemID string) (int, error)
	FindTestcaseByID(ctx context.Context, id string) (*model.Testcase, error)
}

type pgProblemRepository struct {
	db *sql.DB
}

func NewPgProblemRepository(db *sql.DB) ProblemRepository {
	return &pgProblemRepository{db: db}
}

const problemSelect = `
	SELECT p.id, p.contest_id, p.title, p.slug, p.statement, p.input_format, p.output_format, p.constraints,
	       p.explanation, p.time_limit, p.memory_limit, p.difficulty, p.points, p.is_visible, p.created_at, p.updated_at,
	       (SELECT COUNT(*) FROM submissions s WHERE s.problem_id = p.id),
	       (SELECT COUNT(*) FROM submissions s WHERE s.problem_id = p.id AND s.status = 'Accepted')
	FROM problems p`

func scanProblem(row interface{ Scan(dest ...any) error }, p *model.Problem) error {
	return row.Scan(&p.ID, &p.ContestID, &p.Title, &p.Slug, &p.Statement, &p.InputFormat, &p.OutputFormat, &p.Constraints,
		&p.Explanation, &p.TimeLimit, &p.MemoryLimit, &p.Difficulty, &p.Points, &p.IsVisible, &p.CreatedAt, &p.UpdatedAt,
		&p.SubmissionCount, &p.AcceptedCount)
}

func (r *pgProblemRepository) CreateProblem(ctx context.Context, tx *sql.Tx, p *model.Problem) error {
	query := `INSERT INTO problems (id, contest_id, title, slug, statement, input_format, output_format, constraints,
	                                explanation, time_limit, memory_limit, difficulty, points, is_visible)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          RETURNING created_at, updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, p.ID, p.ContestID, p.Title, p.Slug, p.Statement, p.InputFormat,
		p.OutputFormat, p.Constraints, p.Explanation, p.TimeLimit, p.MemoryLimit, p.Difficulty, p.Points, p.IsVisible).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) { // (contest_id, slug)
			return fmt.Errorf("problem with this slug already exists in the contest: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProblemRepository.CreateProblem: %w", err)
	}
	return nil
}

func (r *pgProblemRepository) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	p := &model.Problem{}
	if err := scanProblem(r.db.QueryRowContext(ctx, problemSelect+` WHERE p.id = $1`, id), p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindProblemByID: %w", err)
	}
	return p, nil
}

func (r *pgProblemRepository) ListProblemsByContest(ctx context.Context, contestID string, visibleOnly bool) ([]model.Problem, error) {
	query := problemSelect + ` WHERE p.contest_id = $1`
	if visibleOnly {
		query += ` AND p.is_visible = TRUE`
	}
	query += ` ORDER BY p.points, p.created_at`

	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListProblemsByContest: %w", err)
	}
	defer rows.Close()

	problems := []model.Problem{}
	for rows.Next() {
		var p model.Problem
		if err := scanProblem(rows, &p); err != nil {
			return nil, fmt.Errorf("pgProblemRepository.ListProblemsByContest scan: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProblemRepository.ListProblemsByContest rows.Err: %w", err)
	}
	return problems, nil
}

func (r *pgProblemRepository) AddTestcasesToProblem(ctx context.Context, tx *sql.Tx, problemID string, testcases []model.Testcase) error {
	return insertTestcases(ctx, tx, "testcases", "pgProblemRepository", problemID, testcases)
}

func (r *pgProblemRepository) GetTestcasesByProblemID(ctx context.Context, problemID string) ([]model.Testcase, error) {
	return queryTestcases(ctx, r.db, "testcases", "pgProblemRepository.GetTestcasesByProblemID", problemID, false)
}

func (r *pgProblemRepository) GetSampleTestcases(ctx context.Context, problemID string) ([]model.Testcase, error) {
	return queryTestcases(ctx, r.db, "testcases", "pgProblemRepository.GetSampleTestcases", problemID, true)
}

func (r *pgProblemRepository) CountTestcases(ctx context.Context, tx *sql.Tx, problemID string) (int, error) {
	var n int
	if err := pick(r.db, tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM testcases WHERE problem_id = $1`, problemID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgProblemRepository.CountTestcases: %w", err)
	}
	return n, nil
}

func (r *pgProblemRepository) FindTestcaseByID(ctx context.Context, id string) (*model.Testcase, error) {
	tc := &model.Testcase{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, problem_id, input, output, is_sample, points, created_at FROM testcases WHERE id = $1`, id).
		Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.Output, &tc.IsSample, &tc.Points, &tc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProblemRepository.FindTestcaseByID: %w", err)
	}
	return tc, nil
}

// insertTestcases is shared by the contest and practice testcase tables,
// which have the same shape. It requires a transaction.
func insertTestcases(ctx context.Context, tx *sql.Tx, table, repo, problemID string, testcases []model.Testcase) error {
	if len(testcases) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (id, problem_id, input, output, is_sample, points)
	                                      VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`)
	if err != nil {
		return fmt.Errorf("%s.AddTestcases prepare: %w", repo, err)
	}
	defer stmt.Close()

	for i := range testcases {
		tc := &testcases[i]
		tc.ProblemID = problemID
		if err := stmt.QueryRowContext(ctx, tc.ID, problemID, tc.Input, tc.Output, tc.IsSample, tc.Points).Scan(&tc.CreatedAt); err != nil {
			return fmt.Errorf("%s.AddTestcases exec for testcase %s: %w", repo, tc.ID, err)
		}
	}
	return nil
}

func queryTestcases(ctx context.Context, q querier, table, op, problemID string, samplesOnly bool) ([]model.Testcase, error) {
	query := `SELECT id, problem_id, input, output, is_sample, points, created_at FROM ` + table + ` WHERE problem_id = $1`
	if samplesOnly {
		query += ` AND is_sample = TRUE`
	}
	query += ` ORDER BY seq`

	rows, err := q.QueryContext(ctx, query, problemID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	testcases := []model.Testcase{}
	for rows.Next() {
		var tc model.Testcase
		if err := rows.Scan(&tc.ID, &tc.ProblemID, &tc.Input, &tc.Output, &tc.IsSample, &tc.Points, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		testcases = append(testcases, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows.Err: %w", op, err)
	}
	return testcases, nil
}
