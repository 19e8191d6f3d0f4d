package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
)

type SubmissionFilter struct {
	UserID    string
	ProblemID string
	ContestID string
	Limit     int
	Offset    int
}

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, f SubmissionFilter) ([]model.Submission, error)
	ListPendingSubmissionIDs(ctx context.Context) ([]string, error)

	// ListForLeaderboard returns every submission in the scope ordered by
	// submitted_at ascending. Exactly one of problemID or contestID is set.
	ListForLeaderboard(ctx context.Context, problemID, contestID string) ([]model.Submission, error)
	ListUserContestSubmissions(ctx context.Context, tx *sql.Tx, userID, contestID string) ([]model.Submission, error)

	CreateTestcaseResult(ctx context.Context, tx *sql.Tx, res *model.SubmissionTestcase) error
	// UpsertTestcaseResult is the replay path; live grading only inserts.
	UpsertTestcaseResult(ctx context.Context, tx *sql.Tx, res *model.SubmissionTestcase) error
	ListTestcaseResults(ctx context.Context, tx *sql.Tx, submissionID string) ([]model.SubmissionTestcase, error)
	// UpdateSubmissionResult writes the aggregated verdict. With requirePending
	// the row must still be Pending, otherwise ErrConflict is returned.
	UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, sub *model.Submission, requirePending bool) error
	MarkSystemError(ctx context.Context, id string) error

	CountSubmissionsByUser(ctx context.Context, tx *sql.Tx, userID string) (int, error)
	CountSolvedProblemsByUser(ctx context.Context, tx *sql.Tx, userID string) (int, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

const submissionColumns = `s.id, s.user_id, s.problem_id, s.contest_id, s.code, s.language, s.status, s.score,
	s.execution_time, s.memory_used, s.compiler_output, s.testcases_passed, s.testcases_total, s.submitted_at, u.username`

func scanSubmission(row interface{ Scan(dest ...any) error }, s *model.Submission) error {
	return row.Scan(&s.ID, &s.UserID, &s.ProblemID, &s.ContestID, &s.Code, &s.Language, &s.Status, &s.Score,
		&s.ExecutionTime, &s.MemoryUsed, &s.CompilerOutput, &s.TestcasesPassed, &s.TestcasesTotal, &s.SubmittedAt, &s.Username)
}

func collectSubmissions(rows *sql.Rows, op string) ([]model.Submission, error) {
	defer rows.Close()
	subs := []model.Submission{}
	for rows.Next() {
		var s model.Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows.Err: %w", op, err)
	}
	return subs, nil
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, s *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, problem_id, contest_id, code, language, status, score, testcases_passed, testcases_total)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, $8)
	          RETURNING submitted_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, s.ID, s.UserID, s.ProblemID, s.ContestID, s.Code, s.Language, s.Status, s.TestcasesTotal).
		Scan(&s.SubmittedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s JOIN users u ON u.id = s.user_id WHERE s.id = $1`
	s := &model.Submission{}
	if err := scanSubmission(r.db.QueryRowContext(ctx, query, id), s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) ListSubmissions(ctx context.Context, f SubmissionFilter) ([]model.Submission, error) {
	var conditions []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("s.user_id = $%d", f.UserID)
	}
	if f.ProblemID != "" {
		add("s.problem_id = $%d", f.ProblemID)
	}
	if f.ContestID != "" {
		add("s.contest_id = $%d", f.ContestID)
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + submissionColumns + ` FROM submissions s JOIN users u ON u.id = s.user_id`)
	if len(conditions) > 0 {
		b.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	args = append(args, f.Limit, f.Offset)
	b.WriteString(fmt.Sprintf(" ORDER BY s.submitted_at DESC, s.seq DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListSubmissions: %w", err)
	}
	return collectSubmissions(rows, "pgSubmissionRepository.ListSubmissions")
}

func (r *pgSubmissionRepository) ListPendingSubmissionIDs(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, r.db, `SELECT id FROM submissions WHERE status = 'Pending' ORDER BY submitted_at, seq`,
		"pgSubmissionRepository.ListPendingSubmissionIDs")
}

func (r *pgSubmissionRepository) ListForLeaderboard(ctx context.Context, problemID, contestID string) ([]model.Submission, error) {
	column, value := "s.problem_id", problemID
	if contestID != "" {
		column, value = "s.contest_id", contestID
	}
	query := `SELECT ` + submissionColumns + ` FROM submissions s JOIN users u ON u.id = s.user_id
	          WHERE ` + column + ` = $1 ORDER BY s.submitted_at, s.seq`
	rows, err := r.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListForLeaderboard: %w", err)
	}
	return collectSubmissions(rows, "pgSubmissionRepository.ListForLeaderboard")
}

func (r *pgSubmissionRepository) ListUserContestSubmissions(ctx context.Context, tx *sql.Tx, userID, contestID string) ([]model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions s JOIN users u ON u.id = s.user_id
	          WHERE s.user_id = $1 AND s.contest_id = $2 ORDER BY s.submitted_at, s.seq`
	rows, err := pick(r.db, tx).QueryContext(ctx, query, userID, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListUserContestSubmissions: %w", err)
	}
	return collectSubmissions(rows, "pgSubmissionRepository.ListUserContestSubmissions")
}

func (r *pgSubmissionRepository) CreateTestcaseResult(ctx context.Context, tx *sql.Tx, res *model.SubmissionTestcase) error {
	return insertTestcaseResult(ctx, pick(r.db, tx), "submission_testcases", "pgSubmissionRepository", res, false)
}

func (r *pgSubmissionRepository) UpsertTestcaseResult(ctx context.Context, tx *sql.Tx, res *model.SubmissionTestcase) error {
	return insertTestcaseResult(ctx, pick(r.db, tx), "submission_testcases", "pgSubmissionRepository", res, true)
}

func (r *pgSubmissionRepository) ListTestcaseResults(ctx context.Context, tx *sql.Tx, submissionID string) ([]model.SubmissionTestcase, error) {
	return queryTestcaseResults(ctx, pick(r.db, tx), "submission_testcases", "testcases",
		"pgSubmissionRepository.ListTestcaseResults", submissionID)
}

func (r *pgSubmissionRepository) UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, s *model.Submission, requirePending bool) error {
	query := `UPDATE submissions
	          SET status = $1, score = $2, execution_time = $3, memory_used = $4, testcases_passed = $5, compiler_output = $6
	          WHERE id = $7`
	if requirePending {
		query += ` AND status = 'Pending'`
	}
	res, err := pick(r.db, tx).ExecContext(ctx, query, s.Status, s.Score, s.ExecutionTime, s.MemoryUsed, s.TestcasesPassed, s.CompilerOutput, s.ID)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.UpdateSubmissionResult: %w", err)
	}
	return expectOneRow(res, requirePending, "pgSubmissionRepository.UpdateSubmissionResult")
}

func (r *pgSubmissionRepository) MarkSystemError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET status = $1, score = 0 WHERE id = $2 AND status = 'Pending'`, model.StatusSystemError, id)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.MarkSystemError: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) CountSubmissionsByUser(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	var n int
	if err := pick(r.db, tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountSubmissionsByUser: %w", err)
	}
	return n, nil
}

func (r *pgSubmissionRepository) CountSolvedProblemsByUser(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	var n int
	query := `SELECT COUNT(DISTINCT problem_id) FROM submissions WHERE user_id = $1 AND status = 'Accepted'`
	if err := pick(r.db, tx).QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgSubmissionRepository.CountSolvedProblemsByUser: %w", err)
	}
	return n, nil
}

// The helpers below are shared with the practice tables, which mirror the
// contest ones column for column.

func insertTestcaseResult(ctx context.Context, q querier, table, repo string, res *model.SubmissionTestcase, upsert bool) error {
	query := `INSERT INTO ` + table + ` (id, submission_id, testcase_id, status, execution_time, memory_used, output)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if upsert {
		query += ` ON CONFLICT (submission_id, testcase_id) DO UPDATE
		           SET status = EXCLUDED.status, execution_time = EXCLUDED.execution_time,
		               memory_used = EXCLUDED.memory_used, output = EXCLUDED.output`
	}
	_, err := q.ExecContext(ctx, query, res.ID, res.SubmissionID, res.TestcaseID, res.Status, res.ExecutionTime, res.MemoryUsed, res.Output)
	if err != nil {
		if !upsert && isUniqueViolation(err) {
			return fmt.Errorf("testcase %s already judged for submission %s: %w", res.TestcaseID, res.SubmissionID, common.ErrConflict)
		}
		return fmt.Errorf("%s.insertTestcaseResult: %w", repo, err)
	}
	return nil
}

func queryTestcaseResults(ctx context.Context, q querier, table, testcaseTable, op, submissionID string) ([]model.SubmissionTestcase, error) {
	query := `SELECT r.id, r.submission_id, r.testcase_id, r.status, r.execution_time, r.memory_used, r.output, t.points
	          FROM ` + table + ` r JOIN ` + testcaseTable + ` t ON t.id = r.testcase_id
	          WHERE r.submission_id = $1
	          ORDER BY t.seq`
	rows, err := q.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	results := []model.SubmissionTestcase{}
	for rows.Next() {
		var r model.SubmissionTestcase
		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.TestcaseID, &r.Status, &r.ExecutionTime, &r.MemoryUsed, &r.Output, &r.TestcasePoints); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows.Err: %w", op, err)
	}
	return results, nil
}

func expectOneRow(res sql.Result, conflictOnZero bool, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		if conflictOnZero {
			return fmt.Errorf("%s: submission is no longer pending: %w", op, common.ErrConflict)
		}
		return common.ErrNotFound
	}
	return nil
}

func queryIDs(ctx context.Context, q querier, query, op string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
