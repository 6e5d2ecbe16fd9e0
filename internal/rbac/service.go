package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mini-erp/telecrm/internal/shared"
)

// Service reads the permission catalogue and per-user grants.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service backed by the provided pool.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// ListPermissions returns all permissions ordered by name.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	perms := []Permission{}
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// EnsureCatalogue upserts every known permission so role editors can grant them.
func (s *Service) EnsureCatalogue(ctx context.Context) error {
	for _, name := range shared.AllScopes() {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO permissions (name, description) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
			name, describe(name)); err != nil {
			return fmt.Errorf("rbac: ensure %s: %w", name, err)
		}
	}
	return nil
}

// EffectivePermissions returns deduplicated permission names for an active user.
// The super admin role receives the whole catalogue.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	const q = `
		SELECT p.name
		FROM users u
		JOIN roles r ON r.id = u.role_id AND r.is_active
		JOIN role_permissions rp ON rp.role_id = r.id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE u.id = $1 AND u.status = 'active'
		UNION
		SELECT p.name
		FROM users u
		JOIN roles r ON r.id = u.role_id AND r.code = $2
		CROSS JOIN permissions p
		WHERE u.id = $1 AND u.status = 'active'`
	rows, err := s.pool.Query(ctx, q, userID, SuperAdminCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		perms = append(perms, name)
	}
	return perms, rows.Err()
}

func describe(name string) string {
	resource, action, ok := strings.Cut(name, ".")
	if !ok {
		return name
	}
	return strings.ToUpper(action[:1]) + action[1:] + " " + resource
}
