package users

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectUser = `
	SELECT u.id, u.company_id, c.name, u.role_id, r.code, r.name, u.supervisor_id, u.username,
	       u.first_name, u.last_name, u.email, u.phone, u.status, u.last_login_at, u.created_at, u.updated_at
	FROM users u
	JOIN roles r ON r.id = u.role_id
	JOIN companies c ON c.id = u.company_id`

var userSorts = map[string]string{
	"username":  "u.username",
	"firstName": "u.first_name",
	"role":      "r.name",
	"status":    "u.status",
	"createdAt": "u.created_at",
	"lastLogin": "u.last_login_at",
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.CompanyID, &u.CompanyName, &u.RoleID, &u.RoleCode, &u.RoleName, &u.SupervisorID,
		&u.Username, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.Status, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func buildWhere(params shared.ListParams, f ListFilters) db.Where {
	var where db.Where
	if f.CompanyID != nil {
		where.Add("u.company_id = ?", *f.CompanyID)
	}
	if f.RoleID != nil {
		where.Add("u.role_id = ?", *f.RoleID)
	}
	if f.RoleCode != "" {
		where.Add("r.code = ?", f.RoleCode)
	}
	if f.Status != "" {
		where.Add("u.status = ?", f.Status)
	}
	where.Search(params.Search, "u.username", "u.first_name", "u.last_name")
	return where
}

// List returns a page of users and the total count.
func (r *Repository) List(ctx context.Context, params shared.ListParams, f ListFilters) ([]User, int, error) {
	where := buildWhere(params, f)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u JOIN roles r ON r.id = u.role_id`+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	page, args := where.Page(params.Limit(), params.Offset())
	sql := selectUser + where.SQL() + db.OrderBy(userSorts, params.SortBy, params.Desc(), "u.first_name ASC, u.id ASC") + page
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// Get loads a user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
	if err != nil {
		return User{}, httpx.MapPgError(err)
	}
	return u, nil
}

// Create inserts a user with an already hashed password.
func (r *Repository) Create(ctx context.Context, in CreateInput, hash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (company_id, role_id, supervisor_id, username, password_hash, first_name, last_name, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		in.CompanyID, in.RoleID, in.SupervisorID, in.Username, hash, in.FirstName, in.LastName, in.Email, in.Phone).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

// Update edits profile fields. An empty hash keeps the stored password.
func (r *Repository) Update(ctx context.Context, id int64, in UpdateInput, hash string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET company_id = $2, role_id = $3, supervisor_id = $4, first_name = $5, last_name = $6,
		       email = $7, phone = $8, password_hash = COALESCE(NULLIF($9, ''), password_hash), updated_at = NOW()
		WHERE id = $1`,
		id, in.CompanyID, in.RoleID, in.SupervisorID, in.FirstName, in.LastName, in.Email, in.Phone, hash)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// SetStatus changes the account status.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
