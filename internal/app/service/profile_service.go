package service

import (
	"context"

	"contest_judge/internal/domain/model"
	"contest_judge/internal/domain/repository"
)

type ProfileService struct {
	userRepo repository.UserRepository
	stats    *StatsService
}

func NewProfileService(userRepo repository.UserRepository, stats *StatsService) *ProfileService {
	return &ProfileService{userRepo: userRepo, stats: stats}
}

// GetProfile recomputes the counters before returning them.
func (s *ProfileService) GetProfile(ctx context.Context, username string) (*model.UserProfile, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.stats.RefreshProfile(ctx, user.ID)
}
