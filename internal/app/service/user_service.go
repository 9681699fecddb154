package service

import (
	"context"
	"fmt"
	"time"

	"codebattle/internal/common"
	"codebattle/internal/domain/model"
	"codebattle/internal/domain/repository"
)

type UserService struct {
	userRepo          repository.UserRepository
	participationRepo repository.ParticipationRepository
	now               func() time.Time
}

func NewUserService(userRepo repository.UserRepository, participationRepo repository.ParticipationRepository) *UserService {
	return &UserService{userRepo: userRepo, participationRepo: participationRepo, now: time.Now}
}

type Profile struct {
	User     *model.User               `json:"user"`
	Contests []model.RegisteredContest `json:"contests"`
}

// ListUsers is the admin directory, newest accounts first.
func (s *UserService) ListUsers(ctx context.Context, admin *model.User) ([]model.UserWithCount, error) {
	if err := RequireCapability(admin, model.CapManageUsers); err != nil {
		return nil, err
	}
	users, err := s.userRepo.ListWithCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("UserService.ListUsers: %w", err)
	}
	return users, nil
}

func (s *UserService) Profile(ctx context.Context, user *model.User) (*Profile, error) {
	if user == nil {
		return nil, common.ErrAuthenticationRequired
	}
	contests, err := s.participationRepo.ListContestsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("UserService.Profile: %w", err)
	}
	now := s.now()
	for i := range contests {
		contests[i].Status = contests[i].StatusAt(now)
	}
	return &Profile{User: user, Contests: contests}, nil
}
