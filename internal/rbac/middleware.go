package rbac

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service PermissionSource
	Logger  *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), hasAnyPermission, "rbac require any")
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), hasAllPermissions, "rbac require all")
}

func (m Middleware) require(required []string, check func(granted, required []string) bool, logMsg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			granted, err := m.Service.EffectivePermissions(r.Context(), principal.UserID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error(logMsg, slog.Int64("user_id", principal.UserID), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if check(granted, required) {
				next.ServeHTTP(w, r)
				return
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission")
		})
	}
}

// Has reports whether the current user holds perm. Handlers use it for
// scope decisions that are not a hard gate, such as cross-company listing.
func (m Middleware) Has(r *http.Request, perm string) bool {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok || m.Service == nil {
		return false
	}
	granted, err := m.Service.EffectivePermissions(r.Context(), principal.UserID)
	if err != nil {
		return false
	}
	return hasAnyPermission(granted, normalizePermissions([]string{perm}))
}

// CompanyScope resolves the companyId filter for list endpoints. Callers
// holding companies.all may pick any company or none; everyone else is
// pinned to their own company.
func (m Middleware) CompanyScope(r *http.Request) (*int64, error) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return nil, httpx.ErrUnauthorized
	}
	requested, err := httpx.Int64Query(r, "companyId")
	if err != nil {
		return nil, err
	}
	if m.Has(r, shared.PermCompaniesAll) {
		return requested, nil
	}
	own := principal.CompanyID
	return &own, nil
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, dup := unique[p]; dup {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, p)
	}
	return normalized
}

func permissionSet(granted []string) map[string]struct{} {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	return set
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
