package repository

import (
	"context"
	"database/sql"
	"fmt"

	"codebattle/internal/common"
	"codebattle/internal/domain/model"
)

const alreadyRegisteredMsg = "You are already registered for this contest"

type ParticipationRepository interface {
	Exists(ctx context.Context, userID, contestID string) (bool, error)
	Create(ctx context.Context, p *model.Participation) error
	ListByContest(ctx context.Context, contestID string) ([]model.RegistrationWithUser, error)
	ListContestsForUser(ctx context.Context, userID string) ([]model.RegisteredContest, error)
}

type pgParticipationRepository struct {
	db *sql.DB
}

func NewPgParticipationRepository(db *sql.DB) ParticipationRepository {
	return &pgParticipationRepository{db: db}
}

func (r *pgParticipationRepository) Exists(ctx context.Context, userID, contestID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM participations WHERE user_id = $1 AND contest_id = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, contestID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgParticipationRepository.Exists: %w", err)
	}
	return exists, nil
}

// Create inserts one participation. The UNIQUE(user_id, contest_id) constraint is the final word on duplicates.
func (r *pgParticipationRepository) Create(ctx context.Context, p *model.Participation) error {
	query := `INSERT INTO participations (id, user_id, contest_id, roll_number, section, semester, contact_number)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING joined_at`
	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.UserID, p.ContestID, p.RollNumber, p.Section, p.Semester, p.ContactNumber,
	).Scan(&p.JoinedAt)
	if err != nil {
		switch common.PgErrorCode(err) {
		case common.PgUniqueViolation:
			return common.Conflict(alreadyRegisteredMsg)
		case common.PgForeignKeyViolation:
			return common.NotFound("Contest not found")
		}
		return fmt.Errorf("pgParticipationRepository.Create: %w", err)
	}
	return nil
}

func (r *pgParticipationRepository) ListByContest(ctx context.Context, contestID string) ([]model.RegistrationWithUser, error) {
	query := `SELECT p.id, p.user_id, p.contest_id, p.roll_number, p.section, p.semester, p.contact_number, p.joined_at,
	                 u.id, u.name, u.email
	          FROM participations p
	          JOIN users u ON u.id = p.user_id
	          WHERE p.contest_id = $1
	          ORDER BY p.joined_at DESC, p.id ASC`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgParticipationRepository.ListByContest query: %w", err)
	}
	defer rows.Close()

	regs := []model.RegistrationWithUser{}
	for rows.Next() {
		var reg model.RegistrationWithUser
		if err := rows.Scan(
			&reg.ID, &reg.UserID, &reg.ContestID, &reg.RollNumber, &reg.Section, &reg.Semester, &reg.ContactNumber, &reg.JoinedAt,
			&reg.User.ID, &reg.User.Name, &reg.User.Email,
		); err != nil {
			return nil, fmt.Errorf("pgParticipationRepository.ListByContest scan: %w", err)
		}
		regs = append(regs, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgParticipationRepository.ListByContest rows.Err: %w", err)
	}
	return regs, nil
}

func (r *pgParticipationRepository) ListContestsForUser(ctx context.Context, userID string) ([]model.RegisteredContest, error) {
	query := `SELECT c.id, c.slug, c.title, c.description, c.start_date, c.end_date,
	                 c.difficulty, c.category, c.created_at, c.updated_at, p.joined_at
	          FROM participations p
	          JOIN contests c ON c.id = p.contest_id
	          WHERE p.user_id = $1
	          ORDER BY p.joined_at DESC, c.id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgParticipationRepository.ListContestsForUser query: %w", err)
	}
	defer rows.Close()

	contests := []model.RegisteredContest{}
	for rows.Next() {
		var c model.RegisteredContest
		if err := rows.Scan(
			&c.ID, &c.Slug, &c.Title, &c.Description, &c.StartDate, &c.EndDate,
			&c.Difficulty, &c.Category, &c.CreatedAt, &c.UpdatedAt, &c.JoinedAt,
		); err != nil {
			return nil, fmt.Errorf("pgParticipationRepository.ListContestsForUser scan: %w", err)
		}
		contests = append(contests, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgParticipationRepository.ListContestsForUser rows.Err: %w", err)
	}
	return contests, nil
}
