package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"codebattle/internal/common"
	"codebattle/internal/domain/model"
)

type ContestRepository interface {
	List(ctx context.Context, filter model.ContestFilter, now time.Time) ([]model.ContestWithCount, error)
	FindByIDOrSlug(ctx context.Context, key string) (*model.ContestWithCount, error)
	Create(ctx context.Context, contest *model.Contest) error
	Update(ctx context.Context, contest *model.Contest) error
	Delete(ctx context.Context, id string) error
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

const contestColumns = `c.id, c.slug, c.title, c.description, c.start_date, c.end_date,
               c.difficulty, c.category, c.created_at, c.updated_at, COUNT(p.id) AS participants`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List applies the status window against now and returns an empty, non-nil slice when nothing matches.
func (r *pgContestRepository) List(ctx context.Context, filter model.ContestFilter, now time.Time) ([]model.ContestWithCount, error) {
	var query strings.Builder
	query.WriteString(`
        SELECT ` + contestColumns + `
        FROM contests c
        LEFT JOIN participations p ON p.contest_id = c.id`)

	var conditions []string
	var args []interface{}
	argID := 1

	var orderBy string
	switch filter.Status {
	case model.StatusActive:
		conditions = append(conditions, fmt.Sprintf("c.start_date <= $%d AND c.end_date >= $%d", argID, argID))
		orderBy = "c.end_date ASC"
	case model.StatusUpcoming:
		conditions = append(conditions, fmt.Sprintf("c.start_date > $%d", argID))
		orderBy = "c.start_date ASC"
	case model.StatusPast:
		conditions = append(conditions, fmt.Sprintf("c.end_date < $%d", argID))
		orderBy = "c.end_date DESC"
	default:
		return nil, common.Validation("Invalid status")
	}
	args = append(args, now)
	argID++

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`c.title ILIKE $%d ESCAPE '\'`, argID))
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		argID++
	}

	if filter.Difficulty != "" {
		conditions = append(conditions, fmt.Sprintf("c.difficulty = $%d", argID))
		args = append(args, filter.Difficulty)
		argID++
	}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("c.category = $%d", argID))
		args = append(args, filter.Category)
	}

	query.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	query.WriteString(" GROUP BY c.id ORDER BY " + orderBy + ", c.id ASC")

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.List query: %w", err)
	}
	defer rows.Close()

	contests := []model.ContestWithCount{}
	for rows.Next() {
		var c model.ContestWithCount
		if err := scanContest(rows, &c); err != nil {
			return nil, fmt.Errorf("pgContestRepository.List scan: %w", err)
		}
		contests = append(contests, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.List rows.Err: %w", err)
	}
	return contests, nil
}

func (r *pgContestRepository) FindByIDOrSlug(ctx context.Context, key string) (*model.ContestWithCount, error) {
	query := `
        SELECT ` + contestColumns + `
        FROM contests c
        LEFT JOIN participations p ON p.contest_id = c.id
        WHERE c.id = $1 OR c.slug = $1
        GROUP BY c.id
        LIMIT 1`

	c := &model.ContestWithCount{}
	if err := scanContest(r.db.QueryRowContext(ctx, query, key), c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindByIDOrSlug: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) Create(ctx context.Context, c *model.Contest) error {
	query := `INSERT INTO contests (id, slug, title, description, start_date, end_date, difficulty, category)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.Slug, c.Title, c.Description, c.StartDate, c.EndDate, c.Difficulty, c.Category,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return classifyContestWriteError("pgContestRepository.Create", err)
	}
	return nil
}

func (r *pgContestRepository) Update(ctx context.Context, c *model.Contest) error {
	query := `UPDATE contests SET
                title = $1, description = $2, start_date = $3, end_date = $4,
                difficulty = $5, category = $6, updated_at = CURRENT_TIMESTAMP
              WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query,
		c.Title, c.Description, c.StartDate, c.EndDate, c.Difficulty, c.Category, c.ID,
	)
	if err != nil {
		return classifyContestWriteError("pgContestRepository.Update", err)
	}
	return requireOneRow(res, "pgContestRepository.Update")
}

// Delete removes the contest; participations go with it through ON DELETE CASCADE.
func (r *pgContestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgContestRepository.Delete: %w", err)
	}
	return requireOneRow(res, "pgContestRepository.Delete")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContest(row rowScanner, c *model.ContestWithCount) error {
	return row.Scan(
		&c.ID, &c.Slug, &c.Title, &c.Description, &c.StartDate, &c.EndDate,
		&c.Difficulty, &c.Category, &c.CreatedAt, &c.UpdatedAt, &c.Participants,
	)
}

func classifyContestWriteError(op string, err error) error {
	switch common.PgErrorCode(err) {
	case common.PgCheckViolation:
		return common.Validation("Start date must be before end date")
	case common.PgUniqueViolation:
		return fmt.Errorf("contest with this slug already exists: %w", common.ErrConflict)
	}
	return fmt.Errorf("%s: %w", op, err)
}
