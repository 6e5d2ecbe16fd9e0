package rbac

import "context"

// SuperAdminCode is the role code that bypasses permission checks.
const SuperAdminCode = "super_admin"

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PermissionSource resolves the effective permissions of a user.
type PermissionSource interface {
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)
}
