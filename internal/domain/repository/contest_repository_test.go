package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"codebattle/internal/common"
	"codebattle/internal/domain/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contestCols = []string{
	"id", "slug", "title", "description", "start_date", "end_date",
	"difficulty", "category", "created_at", "updated_at", "participants",
}

func TestContestRepository_ListOrderingPerStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		status model.ContestStatus
		where  string
		order  string
	}{
		{model.StatusActive, `c\.start_date <= \$1 AND c\.end_date >= \$1`, `ORDER BY c\.end_date ASC, c\.id ASC`},
		{model.StatusUpcoming, `c\.start_date > \$1`, `ORDER BY c\.start_date ASC, c\.id ASC`},
		{model.StatusPast, `c\.end_date < \$1`, `ORDER BY c\.end_date DESC, c\.id ASC`},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewPgContestRepository(db)

			mock.ExpectQuery(tt.where + `(.+)` + tt.order).
				WithArgs(now).
				WillReturnRows(sqlmock.NewRows(contestCols))

			got, err := repo.List(context.Background(), model.ContestFilter{Status: tt.status}, now)
			require.NoError(t, err)
			assert.NotNil(t, got, "no matches is an empty slice, not nil")
			assert.Empty(t, got)
		})
	}
}

func TestContestRepository_ListFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgContestRepository(db)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`c\.title ILIKE \$2 ESCAPE (.+) AND c\.difficulty = \$3 AND c\.category = \$4`).
		WithArgs(now, `%100\%\_off%`, model.DifficultyHard, "DSA").
		WillReturnRows(sqlmock.NewRows(contestCols).
			AddRow("c1", "sale-1a2b", "100%_off", "d", now.Add(-time.Hour), now.Add(time.Hour), "Hard", "DSA", now, now, 4))

	got, err := repo.List(context.Background(), model.ContestFilter{
		Status:     model.StatusActive,
		Search:     "100%_off",
		Difficulty: model.DifficultyHard,
		Category:   "DSA",
	}, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Participants)
	assert.Equal(t, model.DifficultyHard, got[0].Difficulty)
}

func TestContestRepository_ListRejectsUnknownStatus(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewPgContestRepository(db)

	_, err := repo.List(context.Background(), model.ContestFilter{Status: "archived"}, time.Now())
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestContestRepository_ListQueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgContestRepository(db)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection refused"))

	got, err := repo.List(context.Background(), model.ContestFilter{Status: model.StatusPast}, time.Now())
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestContestRepository_FindByIDOrSlug(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgContestRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`WHERE c\.id = \$1 OR c\.slug = \$1`).
		WithArgs("algo-cup-1a2b3c4d").
		WillReturnRows(sqlmock.NewRows(contestCols).
			AddRow("c1", "algo-cup-1a2b3c4d", "Algo Cup", "d", now, now.Add(time.Hour), "Medium", "Algorithms", now, now, 2))

	c, err := repo.FindByIDOrSlug(context.Background(), "algo-cup-1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, 2, c.Participants)

	mock.ExpectQuery(`WHERE c\.id = \$1 OR c\.slug = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	c, err = repo.FindByIDOrSlug(context.Background(), "missing")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestContestRepository_CreateCheckViolation(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgContestRepository(db)

	mock.ExpectQuery("INSERT INTO contests").
		WillReturnError(&pgconn.PgError{Code: common.PgCheckViolation})

	err := repo.Create(context.Background(), &model.Contest{ID: "c1"})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "Start date must be before end date", common.PublicMessage(err, ""))
}

func TestContestRepository_UpdateAndDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPgContestRepository(db)

	mock.ExpectExec("UPDATE contests SET").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), &model.Contest{ID: "ghost"}), common.ErrNotFound)

	mock.ExpectExec("DELETE FROM contests WHERE id").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "ghost"), common.ErrNotFound)

	mock.ExpectExec("DELETE FROM contests WHERE id").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.Delete(context.Background(), "c1"))
}
