package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codebattle/internal/app/cache"
	"codebattle/internal/common"
	"codebattle/internal/domain/model"
	"codebattle/internal/domain/repository"
	"codebattle/internal/platform/events"
	"codebattle/internal/platform/logger"

	"github.com/google/uuid"
)

const (
	msgLoginToRegister   = "You must be logged in to register for contests"
	msgAlreadyRegistered = "You are already registered for this contest"
	msgRegisterFailed    = "Failed to register for contest"
	msgContestNotFound   = "Contest not found"
)

type RegistrationService struct {
	participationRepo repository.ParticipationRepository
	contestRepo       repository.ContestRepository
	invalidator       cache.ContestInvalidator
	publisher         events.Publisher
}

func NewRegistrationService(
	participationRepo repository.ParticipationRepository,
	contestRepo repository.ContestRepository,
	invalidator cache.ContestInvalidator,
	publisher events.Publisher,
) *RegistrationService {
	if invalidator == nil {
		invalidator = cache.Noop{}
	}
	return &RegistrationService{
		participationRepo: participationRepo,
		contestRepo:       contestRepo,
		invalidator:       invalidator,
		publisher:         publisher,
	}
}

// Register records user's participation in the contest named by key (id or slug). details is optional;
// when given, every field is required. A second registration for the same pair is always a conflict.
func (s *RegistrationService) Register(ctx context.Context, user *model.User, key string, details *model.RegistrationDetails) (*model.Participation, error) {
	if user == nil {
		return nil, common.NewError(common.ErrAuthenticationRequired, msgLoginToRegister)
	}
	if err := RequireCapability(user, model.CapRegisterForContests); err != nil {
		return nil, err
	}

	contest, err := s.contestRepo.FindByIDOrSlug(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound(msgContestNotFound)
		}
		logger.L().Error().Err(err).Str("contest", key).Str("user_id", user.ID).Msg("resolving contest for registration")
		return nil, common.Internal(msgRegisterFailed)
	}
	contestID := contest.ID

	exists, err := s.participationRepo.Exists(ctx, user.ID, contestID)
	if err != nil {
		logger.L().Error().Err(err).Str("contest_id", contestID).Str("user_id", user.ID).Msg("checking registration")
		return nil, common.Internal(msgRegisterFailed)
	}
	if exists {
		return nil, common.Conflict(msgAlreadyRegistered)
	}

	p := &model.Participation{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ContestID: contestID,
	}
	if details != nil {
		roll := strings.TrimSpace(details.RollNumber)
		section := strings.TrimSpace(details.Section)
		semester := strings.TrimSpace(details.Semester)
		contact := strings.TrimSpace(details.ContactNumber)
		if roll == "" || section == "" || semester == "" || contact == "" {
			return nil, common.Validation("All fields are required")
		}
		p.RollNumber, p.Section, p.Semester, p.ContactNumber = &roll, &section, &semester, &contact
	}

	if err := s.participationRepo.Create(ctx, p); err != nil {
		var appErr *common.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		logger.L().Error().Err(err).Str("contest_id", contestID).Str("user_id", user.ID).Msg("creating registration")
		return nil, common.Internal(msgRegisterFailed)
	}

	s.invalidator.InvalidateContest(ctx, contestID)
	s.invalidator.InvalidateContestList(ctx)
	publish(ctx, s.publisher, events.RegistrationCreated, p.ID, map[string]string{
		"userId":    user.ID,
		"contestId": contestID,
	})
	return p, nil
}

func (s *RegistrationService) ListRegistrations(ctx context.Context, user *model.User, contestID string) ([]model.RegistrationWithUser, error) {
	if err := RequireCapability(user, model.CapViewRegistrations); err != nil {
		return nil, err
	}
	contest, err := s.contestRepo.FindByIDOrSlug(ctx, contestID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound(msgContestNotFound)
		}
		return nil, fmt.Errorf("RegistrationService.ListRegistrations contest: %w", err)
	}
	regs, err := s.participationRepo.ListByContest(ctx, contest.ID)
	if err != nil {
		return nil, fmt.Errorf("RegistrationService.ListRegistrations: %w", err)
	}
	return regs, nil
}

func (s *RegistrationService) IsRegistered(ctx context.Context, userID, contestID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	ok, err := s.participationRepo.Exists(ctx, userID, contestID)
	if err != nil {
		return false, fmt.Errorf("RegistrationService.IsRegistered: %w", err)
	}
	return ok, nil
}
