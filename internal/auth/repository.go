package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	TouchLogin(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUser = `
	SELECT u.id, u.company_id, u.role_id, r.code, r.name, u.username, u.password_hash,
	       u.first_name, u.last_name, u.email, u.status, u.last_login_at
	FROM users u
	JOIN roles r ON r.id = u.role_id`

// FindByUsername fetches a user by username, case-insensitively.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	return r.scanOne(ctx, selectUser+` WHERE LOWER(u.username) = LOWER($1)`, username)
}

// FindByID fetches a user by id.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.scanOne(ctx, selectUser+` WHERE u.id = $1`, id)
}

// TouchLogin stamps last_login_at.
func (r *PGRepository) TouchLogin(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// UpdatePassword stores a new bcrypt hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return err
}

func (r *PGRepository) scanOne(ctx context.Context, sql string, arg any) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.CompanyID, &u.RoleID, &u.RoleCode, &u.RoleName,
		&u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Email, &u.Status, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
