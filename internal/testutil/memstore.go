package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"codebattle/internal/common"
	"codebattle/internal/domain/model"
	"codebattle/internal/domain/repository"
)

// MemoryStore is an in-process stand-in for the postgres repositories. It enforces the same
// uniqueness rules (user email, one participation per user and contest) and cascades contest deletes.
type MemoryStore struct {
	mu             sync.Mutex
	users          map[string]*model.User
	contests       map[string]*model.Contest
	participations map[string]*model.Participation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:          map[string]*model.User{},
		contests:       map[string]*model.Contest{},
		participations: map[string]*model.Participation{},
	}
}

func (s *MemoryStore) Users() repository.UserRepository                   { return memUsers{s} }
func (s *MemoryStore) Contests() repository.ContestRepository             { return memContests{s} }
func (s *MemoryStore) Participations() repository.ParticipationRepository { return memParticipations{s} }

// ParticipationCount returns how many rows exist for the pair.
func (s *MemoryStore) ParticipationCount(userID, contestID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.participations {
		if p.UserID == userID && p.ContestID == contestID {
			n++
		}
	}
	return n
}

func (s *MemoryStore) countFor(contestID string) int {
	n := 0
	for _, p := range s.participations {
		if p.ContestID == contestID {
			n++
		}
	}
	return n
}

type memUsers struct{ s *MemoryStore }

func (r memUsers) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return common.Conflict("User with this email already exists")
		}
	}
	user.CreatedAt = time.Now().UTC()
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUsers) ListWithCounts(_ context.Context) ([]model.UserWithCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.UserWithCount{}
	for _, u := range r.s.users {
		n := 0
		for _, p := range r.s.participations {
			if p.UserID == u.ID {
				n++
			}
		}
		out = append(out, model.UserWithCount{User: *u, Participations: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memUsers) UpdatePassword(_ context.Context, id, hashedPassword string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.HashedPassword = hashedPassword
	return nil
}

func (r memUsers) EnsureAdmin(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			u.Role = model.RoleAdmin
			return nil
		}
	}
	cp := *user
	cp.Role = model.RoleAdmin
	cp.CreatedAt = time.Now().UTC()
	r.s.users[cp.ID] = &cp
	return nil
}

type memContests struct{ s *MemoryStore }

func (r memContests) List(_ context.Context, filter model.ContestFilter, now time.Time) ([]model.ContestWithCount, error) {
	status, ok := model.ParseContestStatus(string(filter.Status))
	if !ok {
		return nil, common.Validation("Invalid status")
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	search := strings.ToLower(filter.Search)
	out := []model.ContestWithCount{}
	for _, c := range r.s.contests {
		if c.StatusAt(now) != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Title), search) {
			continue
		}
		if filter.Difficulty != "" && c.Difficulty != filter.Difficulty {
			continue
		}
		if filter.Category != "" && c.Category != filter.Category {
			continue
		}
		out = append(out, model.ContestWithCount{Contest: *c, Participants: r.s.countFor(c.ID)})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var x, y time.Time
		switch status {
		case model.StatusUpcoming:
			x, y = a.StartDate, b.StartDate
		case model.StatusPast:
			x, y = b.EndDate, a.EndDate
		default:
			x, y = a.EndDate, b.EndDate
		}
		if !x.Equal(y) {
			return x.Before(y)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r memContests) FindByIDOrSlug(_ context.Context, key string) (*model.ContestWithCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.contests {
		if c.ID == key || c.Slug == key {
			return &model.ContestWithCount{Contest: *c, Participants: r.s.countFor(c.ID)}, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memContests) Create(_ context.Context, c *model.Contest) error {
	if !c.StartDate.Before(c.EndDate) {
		return common.Validation("Start date must be before end date")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.contests {
		if existing.Slug == c.Slug {
			return common.ErrConflict
		}
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.s.contests[c.ID] = &cp
	return nil
}

func (r memContests) Update(_ context.Context, c *model.Contest) error {
	if !c.StartDate.Before(c.EndDate) {
		return common.Validation("Start date must be before end date")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.contests[c.ID]
	if !ok {
		return common.ErrNotFound
	}
	existing.Title = c.Title
	existing.Description = c.Description
	existing.StartDate = c.StartDate
	existing.EndDate = c.EndDate
	existing.Difficulty = c.Difficulty
	existing.Category = c.Category
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r memContests) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contests[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.contests, id)
	for pid, p := range r.s.participations {
		if p.ContestID == id {
			delete(r.s.participations, pid)
		}
	}
	return nil
}

type memParticipations struct{ s *MemoryStore }

func (r memParticipations) Exists(_ context.Context, userID, contestID string) (bool, error) {
	return r.s.ParticipationCount(userID, contestID) > 0, nil
}

func (r memParticipations) Create(_ context.Context, p *model.Participation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.contests[p.ContestID]; !ok {
		return common.NotFound("Contest not found")
	}
	for _, existing := range r.s.participations {
		if existing.UserID == p.UserID && existing.ContestID == p.ContestID {
			return common.Conflict("You are already registered for this contest")
		}
	}
	p.JoinedAt = time.Now().UTC()
	cp := *p
	r.s.participations[p.ID] = &cp
	return nil
}

func (r memParticipations) ListByContest(_ context.Context, contestID string) ([]model.RegistrationWithUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.RegistrationWithUser{}
	for _, p := range r.s.participations {
		if p.ContestID != contestID {
			continue
		}
		u := r.s.users[p.UserID]
		row := model.RegistrationWithUser{Participation: *p}
		if u != nil {
			row.User = model.ParticipantUser{ID: u.ID, Name: u.Name, Email: u.Email}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.After(out[j].JoinedAt) })
	return out, nil
}

func (r memParticipations) ListContestsForUser(_ context.Context, userID string) ([]model.RegisteredContest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.RegisteredContest{}
	for _, p := range r.s.participations {
		if p.UserID != userID {
			continue
		}
		if c, ok := r.s.contests[p.ContestID]; ok {
			out = append(out, model.RegisteredContest{Contest: *c, JoinedAt: p.JoinedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.After(out[j].JoinedAt) })
	return out, nil
}
