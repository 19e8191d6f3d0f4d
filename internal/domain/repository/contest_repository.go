package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
)

type ContestRepository interface {
	CreateContest(ctx context.Context, tx *sql.Tx, c *model.Contest) error
	FindContestByID(ctx context.Context, id string) (*model.Contest, error)
	ListContests(ctx context.Context, includePrivate bool) ([]model.Contest, error)

	CreateParticipation(ctx context.Context, tx *sql.Tx, p *model.ContestParticipation) error
	IsParticipant(ctx context.Context, contestID, userID string) (bool, error)
	CountParticipants(ctx context.Context, tx *sql.Tx, contestID string) (int, error)
	ListParticipantIDs(ctx context.Context, contestID string) ([]string, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

const contestColumns = `id, title, slug, description, rules, start_time, end_time, is_public, is_rated,
	max_participants, created_by, created_at, updated_at`

func scanContest(row interface{ Scan(dest ...any) error }, c *model.Contest) error {
	return row.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.Rules, &c.StartTime, &c.EndTime,
		&c.IsPublic, &c.IsRated, &c.MaxParticipants, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *pgContestRepository) CreateContest(ctx context.Context, tx *sql.Tx, c *model.Contest) error {
	query := `INSERT INTO contests (id, title, slug, description, rules, start_time, end_time, is_public, is_rated, max_participants, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING created_at, updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, c.ID, c.Title, c.Slug, c.Description, c.Rules, c.StartTime, c.EndTime,
		c.IsPublic, c.IsRated, c.MaxParticipants, c.CreatedByID).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("contest with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgContestRepository.CreateContest: %w", err)
	}
	return nil
}

func (r *pgContestRepository) FindContestByID(ctx context.Context, id string) (*model.Contest, error) {
	c := &model.Contest{}
	err := scanContest(r.db.QueryRowContext(ctx, `SELECT `+contestColumns+` FROM contests WHERE id = $1`, id), c)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindContestByID: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) ListContests(ctx context.Context, includePrivate bool) ([]model.Contest, error) {
	query := `SELECT ` + contestColumns + ` FROM contests`
	if !includePrivate {
		query += ` WHERE is_public = TRUE`
	}
	query += ` ORDER BY start_time DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListContests: %w", err)
	}
	defer rows.Close()

	contests := []model.Contest{}
	for rows.Next() {
		var c model.Contest
		if err := scanContest(rows, &c); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListContests scan: %w", err)
		}
		contests = append(contests, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListContests rows.Err: %w", err)
	}
	return contests, nil
}

func (r *pgContestRepository) CreateParticipation(ctx context.Context, tx *sql.Tx, p *model.ContestParticipation) error {
	query := `INSERT INTO contest_participations (user_id, contest_id) VALUES ($1, $2) RETURNING registered_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, p.UserID, p.ContestID).Scan(&p.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("already registered for this contest: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgContestRepository.CreateParticipation: %w", err)
	}
	return nil
}

func (r *pgContestRepository) IsParticipant(ctx context.Context, contestID, userID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM contest_participations WHERE contest_id = $1 AND user_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, contestID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgContestRepository.IsParticipant: %w", err)
	}
	return exists, nil
}

func (r *pgContestRepository) CountParticipants(ctx context.Context, tx *sql.Tx, contestID string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM contest_participations WHERE contest_id = $1`
	if err := pick(r.db, tx).QueryRowContext(ctx, query, contestID).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgContestRepository.CountParticipants: %w", err)
	}
	return n, nil
}

func (r *pgContestRepository) ListParticipantIDs(ctx context.Context, contestID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM contest_participations WHERE contest_id = $1
		 UNION
		 SELECT DISTINCT user_id FROM submissions WHERE contest_id = $1`, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListParticipantIDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListParticipantIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
