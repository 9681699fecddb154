package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codebattle/internal/app/cache"
	"codebattle/internal/common"
	"codebattle/internal/domain/model"
	"codebattle/internal/domain/repository"
	"codebattle/internal/platform/events"
	"codebattle/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// datetimeLocalLayout is what an HTML datetime-local input submits.
const datetimeLocalLayout = "2006-01-02T15:04"

type ContestService struct {
	contestRepo repository.ContestRepository
	cache       cache.Contests
	publisher   events.Publisher
	now         func() time.Time
}

func NewContestService(contestRepo repository.ContestRepository, contestCache cache.Contests, publisher events.Publisher) *ContestService {
	if contestCache == nil {
		contestCache = cache.Noop{}
	}
	return &ContestService{
		contestRepo: contestRepo,
		cache:       contestCache,
		publisher:   publisher,
		now:         time.Now,
	}
}

// SetClock replaces the time source used to derive contest status.
func (s *ContestService) SetClock(now func() time.Time) { s.now = now }

type ContestInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Difficulty  string `json:"difficulty"`
	Category    string `json:"category"`
}

func (in ContestInput) validate() (*model.Contest, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	difficulty := strings.TrimSpace(in.Difficulty)
	category := strings.TrimSpace(in.Category)
	startRaw := strings.TrimSpace(in.StartDate)
	endRaw := strings.TrimSpace(in.EndDate)

	if title == "" || description == "" || startRaw == "" || endRaw == "" || difficulty == "" || category == "" {
		return nil, common.Validation("All fields are required")
	}

	start, err := parseContestDate(startRaw)
	if err != nil {
		return nil, common.Validation("Invalid date format")
	}
	end, err := parseContestDate(endRaw)
	if err != nil {
		return nil, common.Validation("Invalid date format")
	}

	d := model.Difficulty(difficulty)
	if !d.Valid() {
		return nil, common.Validation("Invalid difficulty")
	}
	if !start.Before(end) {
		return nil, common.Validation("Start date must be before end date")
	}

	return &model.Contest{
		Title:       title,
		Description: description,
		StartDate:   start,
		EndDate:     end,
		Difficulty:  d,
		Category:    category,
	}, nil
}

// parseContestDate accepts RFC 3339 or datetime-local values. The latter carry no zone and are read as UTC.
func parseContestDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation(datetimeLocalLayout, s, time.UTC)
}

func (s *ContestService) ListContests(ctx context.Context, filter model.ContestFilter) ([]model.ContestWithCount, error) {
	status, ok := model.ParseContestStatus(string(filter.Status))
	if !ok {
		return nil, common.Validation("Invalid status")
	}
	filter.Status = status
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Category = strings.TrimSpace(filter.Category)
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		return nil, common.Validation("Invalid difficulty")
	}

	now := s.now()
	cached, key, ok := s.cache.GetList(ctx, filter)
	if ok {
		return inWindow(cached, status, now), nil
	}

	contests, err := s.contestRepo.List(ctx, filter, now)
	if err != nil {
		return nil, fmt.Errorf("ContestService.ListContests: %w", err)
	}
	s.cache.SetList(ctx, key, contests)
	return inWindow(contests, status, now), nil
}

// GetContest returns (nil, nil) when no contest has that id or slug.
func (s *ContestService) GetContest(ctx context.Context, idOrSlug string) (*model.ContestWithCount, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, nil
	}

	if cached, ok := s.cache.GetContest(ctx, idOrSlug); ok {
		cached.Status = cached.StatusAt(s.now())
		return cached, nil
	}

	contest, err := s.contestRepo.FindByIDOrSlug(ctx, idOrSlug)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ContestService.GetContest: %w", err)
	}
	s.cache.SetContest(ctx, idOrSlug, contest)
	contest.Status = contest.StatusAt(s.now())
	return contest, nil
}

func (s *ContestService) CreateContest(ctx context.Context, user *model.User, in ContestInput) (*model.Contest, error) {
	if err := RequireCapability(user, model.CapManageContests); err != nil {
		return nil, err
	}
	contest, err := in.validate()
	if err != nil {
		return nil, err
	}

	contest.ID = uuid.NewString()
	contest.Slug = makeContestSlug(contest.Title, contest.ID)
	if err := s.contestRepo.Create(ctx, contest); err != nil {
		return nil, storeFailure(err, "Failed to create contest", contest.ID)
	}

	s.cache.InvalidateContestList(ctx)
	publish(ctx, s.publisher, events.ContestCreated, contest.ID, contest)
	logger.L().Info().Str("contest_id", contest.ID).Str("user_id", user.ID).Msg("contest created")
	return contest, nil
}

func (s *ContestService) UpdateContest(ctx context.Context, user *model.User, id string, in ContestInput) (*model.Contest, error) {
	if err := RequireCapability(user, model.CapManageContests); err != nil {
		return nil, err
	}
	contest, err := in.validate()
	if err != nil {
		return nil, err
	}

	contest.ID = id
	if err := s.contestRepo.Update(ctx, contest); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound("Contest not found")
		}
		return nil, storeFailure(err, "Failed to update contest", id)
	}

	s.cache.InvalidateContestList(ctx)
	s.cache.InvalidateContest(ctx, id)
	publish(ctx, s.publisher, events.ContestUpdated, id, contest)
	return contest, nil
}

// DeleteContest removes the contest and, through the schema's cascade, its participations.
func (s *ContestService) DeleteContest(ctx context.Context, user *model.User, id string) error {
	if err := RequireCapability(user, model.CapManageContests); err != nil {
		return err
	}
	if err := s.contestRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NotFound("Contest not found")
		}
		return storeFailure(err, "Failed to delete contest", id)
	}

	s.cache.InvalidateContestList(ctx)
	s.cache.InvalidateContest(ctx, id)
	publish(ctx, s.publisher, events.ContestDeleted, id, nil)
	logger.L().Info().Str("contest_id", id).Str("user_id", user.ID).Msg("contest deleted")
	return nil
}

// inWindow stamps the status at now and drops contests that have left the requested window,
// which a cached list can still hold.
func inWindow(contests []model.ContestWithCount, status model.ContestStatus, now time.Time) []model.ContestWithCount {
	out := make([]model.ContestWithCount, 0, len(contests))
	for _, c := range contests {
		c.Status = c.StatusAt(now)
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

func makeContestSlug(title, id string) string {
	base := slug.Make(title)
	suffix := strings.ReplaceAll(id, "-", "")[:8]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

// storeFailure keeps typed errors (validation from constraints, conflicts) and replaces anything else
// with a generic message after logging it.
func storeFailure(err error, message, contestID string) error {
	var appErr *common.Error
	if errors.As(err, &appErr) {
		return err
	}
	logger.L().Error().Err(err).Str("contest_id", contestID).Msg(message)
	return common.Internal(message)
}
