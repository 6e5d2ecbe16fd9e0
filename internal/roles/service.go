package roles

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error
	ListRoles(ctx context.Context, includeInactive bool, search string) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, in CreateInput, active bool) (int64, error)
	UpdateRole(ctx context.Context, id int64, in UpdateInput, active bool) error
	DeleteRole(ctx context.Context, id int64) error
	RolePermissions(ctx context.Context, id int64) ([]string, error)
	PermissionIDs(ctx context.Context, names []string) (map[string]int64, error)
	ReplacePermissions(ctx context.Context, roleID int64, ids []int64) error
}

// Service handles role business logic.
type Service struct {
	repo  RepositoryPort
	audit shared.AuditRecorder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.AuditRecorder) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit}
}

// ListRoles returns roles, hiding inactive ones unless asked.
func (s *Service) ListRoles(ctx context.Context, includeInactive bool, search string) ([]Role, error) {
	return s.repo.ListRoles(ctx, includeInactive, search)
}

// GetRole returns a role with its permission names.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	role.Permissions, err = s.repo.RolePermissions(ctx, id)
	return role, err
}

// CreateRole validates and inserts a role with its initial permissions.
func (s *Service) CreateRole(ctx context.Context, actorID int64, in CreateInput) (Role, error) {
	in.Code = strings.ToLower(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if !codePattern.MatchString(in.Code) {
		return Role{}, httpx.NewFieldErrors("code", "must be lowercase letters, digits or underscore")
	}
	active := in.IsActive == nil || *in.IsActive

	var id int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo RepositoryPort) error {
		var err error
		id, err = repo.CreateRole(ctx, in, active)
		if err != nil {
			return err
		}
		if len(in.Permissions) > 0 {
			return replacePermissions(ctx, repo, id, in.Permissions)
		}
		return nil
	})
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.create", id, map[string]any{"code": in.Code})
	return s.GetRole(ctx, id)
}

// UpdateRole edits a non-system role.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, in UpdateInput) (Role, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if role.IsSystem {
		return Role{}, fmt.Errorf("%w: cannot edit system role", httpx.ErrForbidden)
	}
	in.Name = strings.TrimSpace(in.Name)
	active := role.IsActive
	if in.IsActive != nil {
		active = *in.IsActive
	}
	if err := s.repo.UpdateRole(ctx, id, in, active); err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.update", id, map[string]any{"name": in.Name, "active": active})
	return s.GetRole(ctx, id)
}

// DeleteRole removes a non-system role that no user holds.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return fmt.Errorf("%w: cannot delete system role", httpx.ErrForbidden)
	}
	if role.UserCount > 0 {
		return fmt.Errorf("%w: %d user(s) are assigned to this role", httpx.ErrConflict, role.UserCount)
	}
	if err := s.repo.WithTx(ctx, func(ctx context.Context, repo RepositoryPort) error {
		return repo.DeleteRole(ctx, id)
	}); err != nil {
		return err
	}
	s.record(ctx, actorID, "role.delete", id, map[string]any{"code": role.Code})
	return nil
}

// SetPermissions replaces a role's grants. System roles may have their
// permissions edited even though their identity is fixed.
func (s *Service) SetPermissions(ctx context.Context, actorID, id int64, names []string) (Role, error) {
	if _, err := s.repo.GetRole(ctx, id); err != nil {
		return Role{}, err
	}
	if err := s.repo.WithTx(ctx, func(ctx context.Context, repo RepositoryPort) error {
		return replacePermissions(ctx, repo, id, names)
	}); err != nil {
		return Role{}, err
	}
	role, err := s.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	s.record(ctx, actorID, "role.permissions", id, map[string]any{"permissions": role.Permissions})
	return role, nil
}

func replacePermissions(ctx context.Context, repo RepositoryPort, roleID int64, names []string) error {
	names = normaliseNames(names)
	ids, err := repo.PermissionIDs(ctx, names)
	if err != nil {
		return err
	}
	var unknown []string
	resolved := make([]int64, 0, len(names))
	for _, n := range names {
		id, ok := ids[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		resolved = append(resolved, id)
	}
	if len(unknown) > 0 {
		return httpx.NewFieldErrors("permissions", "unknown permission: "+strings.Join(unknown, ", "))
	}
	return repo.ReplacePermissions(ctx, roleID, resolved)
}

func normaliseNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
