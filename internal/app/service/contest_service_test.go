package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"codebattle/internal/app/cache"
	"codebattle/internal/common"
	"codebattle/internal/domain/model"
	"codebattle/internal/platform/events"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type contestFixture struct {
	repo  *fakeContestRepo
	cache *recordingCache
	pub   *recordingPublisher
	svc   *ContestService
	now   time.Time
}

func newContestFixture() *contestFixture {
	f := &contestFixture{
		repo:  newFakeContestRepo(),
		cache: &recordingCache{},
		pub:   &recordingPublisher{},
		now:   t0,
	}
	f.svc = NewContestService(f.repo, f.cache, f.pub)
	f.svc.SetClock(func() time.Time { return f.now })
	return f
}

func validInput() ContestInput {
	return ContestInput{
		Title:       "Algo Cup",
		Description: "Two hours of algorithms",
		StartDate:   t0.Format(time.RFC3339),
		EndDate:     t0.Add(2 * time.Hour).Format(time.RFC3339),
		Difficulty:  "Medium",
		Category:    "Algorithms",
	}
}

func TestContestService_AlgoCupScenario(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()

	created, err := f.svc.CreateContest(ctx, adminUser, validInput())
	require.NoError(t, err)

	f.now = t0.Add(time.Hour)
	active, err := f.svc.ListContests(ctx, model.ContestFilter{Status: model.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, created.ID, active[0].ID)
	assert.Equal(t, model.StatusActive, active[0].Status)

	f.now = t0.Add(3 * time.Hour)
	past, err := f.svc.ListContests(ctx, model.ContestFilter{Status: model.StatusPast})
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.Equal(t, model.StatusPast, past[0].Status)

	active, err = f.svc.ListContests(ctx, model.ContestFilter{Status: model.StatusActive})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestContestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ContestInput)
		message string
	}{
		{"missing title", func(in *ContestInput) { in.Title = "" }, "All fields are required"},
		{"blank category", func(in *ContestInput) { in.Category = "   " }, "All fields are required"},
		{"missing end", func(in *ContestInput) { in.EndDate = "" }, "All fields are required"},
		{"bad start", func(in *ContestInput) { in.StartDate = "next tuesday" }, "Invalid date format"},
		{"bad difficulty", func(in *ContestInput) { in.Difficulty = "Impossible" }, "Invalid difficulty"},
		{"end before start", func(in *ContestInput) {
			in.StartDate, in.EndDate = in.EndDate, in.StartDate
		}, "Start date must be before end date"},
		{"zero length", func(in *ContestInput) { in.EndDate = in.StartDate }, "Start date must be before end date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newContestFixture()
			in := validInput()
			tt.mutate(&in)

			_, err := f.svc.CreateContest(context.Background(), adminUser, in)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Equal(t, tt.message, common.PublicMessage(err, ""))
			assert.Zero(t, f.repo.calls, "nothing is written")
		})
	}
}

func TestContestService_AcceptsDatetimeLocal(t *testing.T) {
	f := newContestFixture()
	in := validInput()
	in.StartDate = "2025-03-10T09:00"
	in.EndDate = "2025-03-10T11:00"

	c, err := f.svc.CreateContest(context.Background(), adminUser, in)
	require.NoError(t, err)
	assert.True(t, c.StartDate.Equal(t0))
	assert.Contains(t, c.Slug, "algo-cup-")
}

func TestContestService_NonAdminNeverReachesStore(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()

	_, err := f.svc.CreateContest(ctx, studentUser, validInput())
	assert.ErrorIs(t, err, common.ErrAuthorizationDenied)
	_, err = f.svc.UpdateContest(ctx, studentUser, "c1", validInput())
	assert.ErrorIs(t, err, common.ErrAuthorizationDenied)
	assert.ErrorIs(t, f.svc.DeleteContest(ctx, studentUser, "c1"), common.ErrAuthorizationDenied)
	assert.ErrorIs(t, f.svc.DeleteContest(ctx, nil, "c1"), common.ErrAuthenticationRequired)

	assert.Zero(t, f.repo.calls)
	assert.Empty(t, f.pub.types())
}

func TestContestService_WritesInvalidateAndPublish(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()

	c, err := f.svc.CreateContest(ctx, adminUser, validInput())
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.inv.lists)

	in := validInput()
	in.Title = "Algo Cup II"
	updated, err := f.svc.UpdateContest(ctx, adminUser, c.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Algo Cup II", updated.Title)
	assert.Equal(t, 2, f.cache.inv.lists)
	assert.Equal(t, []string{c.ID}, f.cache.inv.contests)

	require.NoError(t, f.svc.DeleteContest(ctx, adminUser, c.ID))
	assert.Equal(t, 3, f.cache.inv.lists)

	assert.Equal(t, []string{events.ContestCreated, events.ContestUpdated, events.ContestDeleted}, f.pub.types())

	got, err := f.svc.GetContest(ctx, c.ID)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestContestService_PublishFailureDoesNotFailWrite(t *testing.T) {
	f := newContestFixture()
	f.pub.err = errors.New("broker unavailable")

	_, err := f.svc.CreateContest(context.Background(), adminUser, validInput())
	assert.NoError(t, err)
}

func TestContestService_MissingContest(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()

	_, err := f.svc.UpdateContest(ctx, adminUser, "ghost", validInput())
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, "Contest not found", common.PublicMessage(err, ""))

	err = f.svc.DeleteContest(ctx, adminUser, "ghost")
	assert.Equal(t, "Contest not found", common.PublicMessage(err, ""))

	got, err := f.svc.GetContest(ctx, "ghost")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestContestService_StoreFailureIsGeneric(t *testing.T) {
	f := newContestFixture()
	f.repo.writeErr = errors.New("pq: could not serialize access")

	_, err := f.svc.CreateContest(context.Background(), adminUser, validInput())
	require.Error(t, err)
	assert.Equal(t, "Failed to create contest", common.PublicMessage(err, ""))
	assert.NotContains(t, err.Error(), "serialize")

	err = f.svc.DeleteContest(context.Background(), adminUser, "c1")
	assert.Equal(t, "Failed to delete contest", common.PublicMessage(err, ""))
}

func TestContestService_ListErrors(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()

	_, err := f.svc.ListContests(ctx, model.ContestFilter{Status: "archived"})
	assert.ErrorIs(t, err, common.ErrValidation)

	f.repo.listErr = errors.New("connection reset")
	got, err := f.svc.ListContests(ctx, model.ContestFilter{})
	assert.Error(t, err, "a failed query is not an empty result")
	assert.Nil(t, got)
}

func TestContestService_ListDefaultsToActiveAndSearchIsCaseInsensitive(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()
	_, err := f.svc.CreateContest(ctx, adminUser, validInput())
	require.NoError(t, err)
	f.now = t0.Add(30 * time.Minute)

	got, err := f.svc.ListContests(ctx, model.ContestFilter{Search: "ALGO"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.svc.ListContests(ctx, model.ContestFilter{Search: "graph"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestContestService_GetBySlug(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()
	c, err := f.svc.CreateContest(ctx, adminUser, validInput())
	require.NoError(t, err)

	f.now = t0.Add(-time.Hour)
	got, err := f.svc.GetContest(ctx, c.Slug)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, model.StatusUpcoming, got.Status)
}

func TestContestService_CachedListHonoursStatusWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := newFakeContestRepo()
	svc := NewContestService(repo, cache.NewRedisContestCache(rdb, 30*time.Second), &recordingPublisher{})
	now := t0.Add(-10 * time.Second)
	svc.SetClock(func() time.Time { return now })
	ctx := context.Background()

	created, err := svc.CreateContest(ctx, adminUser, validInput())
	require.NoError(t, err)

	upcoming, err := svc.ListContests(ctx, model.ContestFilter{Status: model.StatusUpcoming})
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, model.StatusUpcoming, upcoming[0].Status)

	// The contest starts while the upcoming list is still cached.
	now = t0.Add(10 * time.Second)
	calls := repo.calls
	upcoming, err = svc.ListContests(ctx, model.ContestFilter{Status: model.StatusUpcoming})
	require.NoError(t, err)
	assert.Equal(t, calls, repo.calls, "served from cache")
	assert.Empty(t, upcoming)

	active, err := svc.ListContests(ctx, model.ContestFilter{Status: model.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, created.ID, active[0].ID)
	assert.Equal(t, model.StatusActive, active[0].Status)
}
