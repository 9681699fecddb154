package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codebattle/internal/common"
	"codebattle/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	ListWithCounts(ctx context.Context) ([]model.UserWithCount, error)
	UpdatePassword(ctx context.Context, id, hashedPassword string) error
	EnsureAdmin(ctx context.Context, user *model.User) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, email, password, role)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Name, user.Email, user.HashedPassword, user.Role).Scan(&user.CreatedAt)
	if err != nil {
		if common.PgErrorCode(err) == common.PgUniqueViolation {
			return common.Conflict("User with this email already exists")
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, name, email, password, role, created_at
	          FROM users WHERE email = $1`
	return r.findOne(ctx, "FindByEmail", query, email)
}

func (r *pgUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, name, email, password, role, created_at
	          FROM users WHERE id = $1`
	return r.findOne(ctx, "FindByID", query, id)
}

func (r *pgUserRepository) findOne(ctx context.Context, op, query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.Role, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.%s: %w", op, err)
	}
	return user, nil
}

func (r *pgUserRepository) ListWithCounts(ctx context.Context) ([]model.UserWithCount, error) {
	query := `SELECT u.id, u.name, u.email, u.role, u.created_at, COUNT(p.id)
	          FROM users u
	          LEFT JOIN participations p ON p.user_id = u.id
	          GROUP BY u.id
	          ORDER BY u.created_at DESC, u.id ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.ListWithCounts query: %w", err)
	}
	defer rows.Close()

	users := []model.UserWithCount{}
	for rows.Next() {
		var u model.UserWithCount
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.Participations); err != nil {
			return nil, fmt.Errorf("pgUserRepository.ListWithCounts scan: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgUserRepository.ListWithCounts rows.Err: %w", err)
	}
	return users, nil
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, id, hashedPassword string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password = $1 WHERE id = $2`, hashedPassword, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.UpdatePassword: %w", err)
	}
	return requireOneRow(res, "pgUserRepository.UpdatePassword")
}

// EnsureAdmin creates user as an administrator, or promotes the existing account with that email.
// An existing password is left untouched.
func (r *pgUserRepository) EnsureAdmin(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, name, email, password, role)
	          VALUES ($1, $2, $3, $4, 'ADMIN')
	          ON CONFLICT (email) DO UPDATE SET role = 'ADMIN'`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.HashedPassword); err != nil {
		return fmt.Errorf("pgUserRepository.EnsureAdmin: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
