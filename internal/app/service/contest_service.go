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
	"github.com/gosimple/slug"
)

type ContestService struct {
	contestRepo repository.ContestRepository
	transactor  database.Transactor
	logger      *slog.Logger
	now         func() time.Time
}

func NewContestService(contestRepo repository.ContestRepository, transactor database.Transactor, logger *slog.Logger) *ContestService {
	return &ContestService{
		contestRepo: contestRepo,
		transactor:  transactor,
		logger:      logger.With("component", "contests"),
		now:         time.Now,
	}
}

type CreateContestRequest struct {
	Title           string    `json:"title" validate:"required,max=200"`
	Description     string    `json:"description"`
	Rules           *string   `json:"rules,omitempty"`
	StartTime       time.Time `json:"start_time" validate:"required"`
	EndTime         time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	IsPublic        *bool     `json:"is_public,omitempty"`
	IsRated         bool      `json:"is_rated"`
	MaxParticipants *int      `json:"max_participants,omitempty" validate:"omitempty,gt=0"`
}

// ContestView adds the derived status to a contest.
type ContestView struct {
	model.Contest
	Status          model.ContestStatus `json:"status"`
	DurationMinutes float64             `json:"duration_minutes"`
}

func (s *ContestService) view(c model.Contest) ContestView {
	return ContestView{Contest: c, Status: c.StatusAt(s.now()), DurationMinutes: c.DurationMinutes()}
}

func (s *ContestService) CreateContest(ctx context.Context, creatorID string, req CreateContestRequest) (*ContestView, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}
	c := model.Contest{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Slug:            slug.Make(req.Title),
		Description:     req.Description,
		Rules:           req.Rules,
		StartTime:       req.StartTime.UTC(),
		EndTime:         req.EndTime.UTC(),
		IsPublic:        true,
		IsRated:         req.IsRated,
		MaxParticipants: req.MaxParticipants,
		CreatedByID:     creatorID,
	}
	if req.IsPublic != nil {
		c.IsPublic = *req.IsPublic
	}
	if err := s.contestRepo.CreateContest(ctx, nil, &c); err != nil {
		return nil, err
	}
	s.logger.Info("contest created", "contest_id", c.ID, "slug", c.Slug)
	v := s.view(c)
	return &v, nil
}

// GetContest hides private contests from non-admins.
func (s *ContestService) GetContest(ctx context.Context, id, userRole string) (*ContestView, error) {
	c, err := s.contestRepo.FindContestByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsPublic && userRole != model.RoleAdmin {
		return nil, common.ErrNotFound
	}
	v := s.view(*c)
	return &v, nil
}

func (s *ContestService) ListContests(ctx context.Context, userRole string) ([]ContestView, error) {
	contests, err := s.contestRepo.ListContests(ctx, userRole == model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	out := make([]ContestView, 0, len(contests))
	for _, c := range contests {
		out = append(out, s.view(c))
	}
	return out, nil
}

// Register signs a user up for a contest that has not ended.
func (s *ContestService) Register(ctx context.Context, userID, contestID string) (*model.ContestParticipation, error) {
	c, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if c.StatusAt(s.now()) == model.ContestEnded {
		return nil, common.NewValidationError().Add("contest", "contest has ended")
	}

	p := &model.ContestParticipation{UserID: userID, ContestID: contestID}
	err = s.transactor.WithinTx(ctx, func(tx *sql.Tx) error {
		if c.MaxParticipants != nil {
			n, err := s.contestRepo.CountParticipants(ctx, tx, contestID)
			if err != nil {
				return err
			}
			if n >= *c.MaxParticipants {
				return common.NewValidationError().Add("contest", "contest is full")
			}
		}
		return s.contestRepo.CreateParticipation(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
