package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

type memoryRepo struct {
	roles  map[int64]Role
	grants map[int64][]int64
	perms  map[string]int64
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		roles: map[int64]Role{
			1: {ID: 1, Code: "super_admin", Name: "Super Admin", IsSystem: true, IsActive: true, UserCount: 1},
			2: {ID: 2, Code: "telesale", Name: "Telesale", IsActive: true, UserCount: 3},
			3: {ID: 3, Code: "temp", Name: "Temp", IsActive: true},
		},
		grants: map[int64][]int64{},
		perms:  map[string]int64{"orders.view": 10, "orders.edit": 11, "customers.view": 12},
		nextID: 3,
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, RepositoryPort) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) ListRoles(context.Context, bool, string) ([]Role, error) {
	out := []Role{}
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRepo) GetRole(_ context.Context, id int64) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, httpx.ErrNotFound
	}
	return r, nil
}

func (m *memoryRepo) CreateRole(_ context.Context, in CreateInput, active bool) (int64, error) {
	for _, r := range m.roles {
		if r.Code == in.Code {
			return 0, httpx.ErrDuplicate
		}
	}
	m.nextID++
	m.roles[m.nextID] = Role{ID: m.nextID, Code: in.Code, Name: in.Name, IsActive: active}
	return m.nextID, nil
}

func (m *memoryRepo) UpdateRole(_ context.Context, id int64, in UpdateInput, active bool) error {
	r := m.roles[id]
	r.Name, r.Description, r.IsActive = in.Name, in.Description, active
	m.roles[id] = r
	return nil
}

func (m *memoryRepo) DeleteRole(_ context.Context, id int64) error {
	delete(m.roles, id)
	delete(m.grants, id)
	return nil
}

func (m *memoryRepo) RolePermissions(_ context.Context, id int64) ([]string, error) {
	names := []string{}
	for _, pid := range m.grants[id] {
		for name, v := range m.perms {
			if v == pid {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func (m *memoryRepo) PermissionIDs(_ context.Context, names []string) (map[string]int64, error) {
	out := map[string]int64{}
	for _, n := range names {
		if id, ok := m.perms[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func (m *memoryRepo) ReplacePermissions(_ context.Context, roleID int64, ids []int64) error {
	m.grants[roleID] = ids
	return nil
}

type captureAudit struct{ actions []string }

func (c *captureAudit) Record(_ context.Context, log shared.AuditLog) error {
	c.actions = append(c.actions, log.Action)
	return nil
}

func TestCreateRoleNormalisesCodeAndGrants(t *testing.T) {
	repo := newMemoryRepo()
	audit := &captureAudit{}
	svc := NewService(repo, audit)

	role, err := svc.CreateRole(context.Background(), 1, CreateInput{
		Code:        "  Supervisor ",
		Name:        "Supervisor",
		Permissions: []string{"orders.view", "ORDERS.VIEW", " customers.view"},
	})
	require.NoError(t, err)
	require.Equal(t, "supervisor", role.Code)
	require.True(t, role.IsActive)
	require.ElementsMatch(t, []string{"orders.view", "customers.view"}, role.Permissions)
	require.Equal(t, []string{"role.create"}, audit.actions)
}

func TestCreateRoleRejectsBadCode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.CreateRole(context.Background(), 1, CreateInput{Code: "bad code!", Name: "x"})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSystemRoleIsReadOnly(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, 1, 1, UpdateInput{Name: "Root"})
	require.ErrorIs(t, err, httpx.ErrForbidden)
	require.ErrorIs(t, svc.DeleteRole(ctx, 1, 1), httpx.ErrForbidden)

	role, err := svc.SetPermissions(ctx, 1, 1, []string{"orders.edit"})
	require.NoError(t, err)
	require.Equal(t, []string{"orders.edit"}, role.Permissions)
}

func TestDeleteRoleInUse(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	require.ErrorIs(t, svc.DeleteRole(context.Background(), 1, 2), httpx.ErrConflict)
	require.NoError(t, svc.DeleteRole(context.Background(), 1, 3))
	_, ok := repo.roles[3]
	require.False(t, ok)
}

func TestSetPermissionsUnknownName(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	_, err := svc.SetPermissions(context.Background(), 1, 2, []string{"orders.view", "orders.fly"})
	var fields *httpx.FieldErrors
	require.True(t, errors.As(err, &fields))
	require.Contains(t, fields.Fields["permissions"], "orders.fly")
	require.Empty(t, repo.grants[2])
}

func TestUpdateRoleKeepsActiveWhenOmitted(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	role, err := svc.UpdateRole(context.Background(), 1, 2, UpdateInput{Name: " Telesales "})
	require.NoError(t, err)
	require.Equal(t, "Telesales", role.Name)
	require.True(t, role.IsActive)
}
