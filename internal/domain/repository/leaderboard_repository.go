package repository

import (
	"context"
	"database/sql"
	"fmt"

	"contest_judge/internal/domain/model"
)

// LeaderboardRepository persists the per-contest standings snapshot.
type LeaderboardRepository interface {
	// LockContest serializes snapshot writers of one contest until tx ends.
	LockContest(ctx context.Context, tx *sql.Tx, contestID string) error
	UpsertRow(ctx context.Context, tx *sql.Tx, row *model.LeaderboardRow) error
	RerankContest(ctx context.Context, tx *sql.Tx, contestID string) error
	ListByContest(ctx context.Context, contestID string) ([]model.LeaderboardRow, error)
}

type pgLeaderboardRepository struct {
	db *sql.DB
}

func NewPgLeaderboardRepository(db *sql.DB) LeaderboardRepository {
	return &pgLeaderboardRepository{db: db}
}

func (r *pgLeaderboardRepository) LockContest(ctx context.Context, tx *sql.Tx, contestID string) error {
	if _, err := pick(r.db, tx).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, contestID); err != nil {
		return fmt.Errorf("pgLeaderboardRepository.LockContest: %w", err)
	}
	return nil
}

func (r *pgLeaderboardRepository) UpsertRow(ctx context.Context, tx *sql.Tx, row *model.LeaderboardRow) error {
	query := `INSERT INTO leaderboard (contest_id, user_id, score, problems_solved, penalty, last_submission_time)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (contest_id, user_id) DO UPDATE
	          SET score = EXCLUDED.score, problems_solved = EXCLUDED.problems_solved,
	              penalty = EXCLUDED.penalty, last_submission_time = EXCLUDED.last_submission_time`
	_, err := pick(r.db, tx).ExecContext(ctx, query, row.ContestID, row.UserID, row.Score, row.ProblemsSolved, row.Penalty, row.LastSubmissionTime)
	if err != nil {
		return fmt.Errorf("pgLeaderboardRepository.UpsertRow: %w", err)
	}
	return nil
}

// RerankContest assigns unique sequential ranks (ROW_NUMBER, ties broken by
// user_id) by (score desc, penalty asc, last_submission_time asc).
func (r *pgLeaderboardRepository) RerankContest(ctx context.Context, tx *sql.Tx, contestID string) error {
	query := `UPDATE leaderboard l SET rank = ranked.rn
	          FROM (
	              SELECT user_id, ROW_NUMBER() OVER (ORDER BY score DESC, penalty ASC, last_submission_time ASC, user_id) AS rn
	              FROM leaderboard WHERE contest_id = $1
	          ) ranked
	          WHERE l.contest_id = $1 AND l.user_id = ranked.user_id`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, contestID); err != nil {
		return fmt.Errorf("pgLeaderboardRepository.RerankContest: %w", err)
	}
	return nil
}

func (r *pgLeaderboardRepository) ListByContest(ctx context.Context, contestID string) ([]model.LeaderboardRow, error) {
	query := `SELECT l.contest_id, l.user_id, u.username, l.score, l.problems_solved, l.penalty, l.rank, l.last_submission_time
	          FROM leaderboard l JOIN users u ON u.id = l.user_id
	          WHERE l.contest_id = $1
	          ORDER BY l.rank NULLS LAST, l.score DESC`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgLeaderboardRepository.ListByContest: %w", err)
	}
	defer rows.Close()

	out := []model.LeaderboardRow{}
	for rows.Next() {
		var row model.LeaderboardRow
		if err := rows.Scan(&row.ContestID, &row.UserID, &row.Username, &row.Score, &row.ProblemsSolved,
			&row.Penalty, &row.Rank, &row.LastSubmissionTime); err != nil {
			return nil, fmt.Errorf("pgLeaderboardRepository.ListByContest scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgLeaderboardRepository.ListByContest rows.Err: %w", err)
	}
	return out, nil
}
