package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest_judge/internal/common"
	"contest_judge/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)

	CreateProfile(ctx context.Context, tx *sql.Tx, userID string, rating int) error
	GetProfile(ctx context.Context, tx *sql.Tx, userID string) (*model.UserProfile, error)
	UpdateProfileCounters(ctx context.Context, tx *sql.Tx, userID string, totalSubmissions, totalSolved int) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, tx *sql.Tx, user *model.User) error {
	query := `INSERT INTO users (id, username, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at, updated_at`
	err := pick(r.db, tx).QueryRowContext(ctx, query, user.ID, user.Username, user.Email, user.HashedPassword, user.Role).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user with given username or email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) findOne(ctx context.Context, op, column, value string) (*model.User, error) {
	query := `SELECT id, username, email, hashed_password, role, created_at, updated_at
	          FROM users WHERE ` + column + ` = $1`
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "FindByEmail", "email", email)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, "FindByUsername", "username", username)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "FindByID", "id", id)
}

func (r *pgUserRepository) CreateProfile(ctx context.Context, tx *sql.Tx, userID string, rating int) error {
	query := `INSERT INTO user_profiles (user_id, rating, total_submissions, total_solved)
	          VALUES ($1, $2, 0, 0)
	          ON CONFLICT (user_id) DO NOTHING`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, userID, rating); err != nil {
		return fmt.Errorf("pgUserRepository.CreateProfile: %w", err)
	}
	return nil
}

func (r *pgUserRepository) GetProfile(ctx context.Context, tx *sql.Tx, userID string) (*model.UserProfile, error) {
	query := `SELECT p.user_id, u.username, p.rating, p.total_submissions, p.total_solved, p.updated_at
	          FROM user_profiles p JOIN users u ON u.id = p.user_id
	          WHERE p.user_id = $1`
	p := &model.UserProfile{}
	err := pick(r.db, tx).QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Username, &p.Rating, &p.TotalSubmissions, &p.TotalSolved, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.GetProfile: %w", err)
	}
	return p, nil
}

// UpdateProfileCounters overwrites the derived counters, creating the profile
// row if the user never had one.
func (r *pgUserRepository) UpdateProfileCounters(ctx context.Context, tx *sql.Tx, userID string, totalSubmissions, totalSolved int) error {
	query := `INSERT INTO user_profiles (user_id, rating, total_submissions, total_solved)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id) DO UPDATE
	          SET total_submissions = EXCLUDED.total_submissions,
	              total_solved = EXCLUDED.total_solved,
	              updated_at = CURRENT_TIMESTAMP`
	if _, err := pick(r.db, tx).ExecContext(ctx, query, userID, model.DefaultRating, totalSubmissions, totalSolved); err != nil {
		return fmt.Errorf("pgUserRepository.UpdateProfileCounters: %w", err)
	}
	return nil
}

func (r *pgUserRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.ListUserIDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgUserRepository.ListUserIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
