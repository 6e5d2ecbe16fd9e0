package roles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/platform/db"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
	db   db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// WithTx runs fn against a transaction-bound repository.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{pool: r.pool, db: tx})
	})
}

const selectRole = `
	SELECT r.id, r.code, r.name, r.description, r.is_system, r.is_active,
	       (SELECT COUNT(*) FROM users u WHERE u.role_id = r.id), r.created_at, r.updated_at
	FROM roles r`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Code, &role.Name, &role.Description, &role.IsSystem, &role.IsActive,
		&role.UserCount, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

// ListRoles returns roles, system roles first.
func (r *Repository) ListRoles(ctx context.Context, includeInactive bool, search string) ([]Role, error) {
	var where db.Where
	if !includeInactive {
		where.Raw("r.is_active")
	}
	where.Search(search, "r.code", "r.name")
	rows, err := r.db.Query(ctx, selectRole+where.SQL()+` ORDER BY r.is_system DESC, r.name ASC`, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// GetRole loads one role.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx, selectRole+` WHERE r.id = $1`, id))
	if err != nil {
		return Role{}, httpx.MapPgError(err)
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, in CreateInput, active bool) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO roles (code, name, description, is_active) VALUES ($1, $2, $3, $4) RETURNING id`,
		in.Code, in.Name, in.Description, active).Scan(&id)
	if err != nil {
		return 0, httpx.MapPgError(err)
	}
	return id, nil
}

// UpdateRole edits name, description and the active flag.
func (r *Repository) UpdateRole(ctx context.Context, id int64, in UpdateInput, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE roles SET name = $2, description = $3, is_active = $4, updated_at = NOW() WHERE id = $1`,
		id, in.Name, in.Description, active)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// DeleteRole removes a role and its grants.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return httpx.MapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// RolePermissions returns the granted permission names.
func (r *Repository) RolePermissions(ctx context.Context, id int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.name FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1 ORDER BY p.name`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PermissionIDs resolves names to ids. Unknown names are absent from the map.
func (r *Repository) PermissionIDs(ctx context.Context, names []string) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT name, id FROM permissions WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make(map[string]int64, len(names))
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

// ReplacePermissions swaps the role's grants for ids.
func (r *Repository) ReplacePermissions(ctx context.Context, roleID int64, ids []int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("clear role permissions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, unnest($2::bigint[])`, roleID, ids)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
