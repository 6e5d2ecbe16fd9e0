package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Handler manages role management endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesView, shared.PermRolesEdit))
		r.Get("/", h.listRoles)
		r.Get("/{id}", h.getRole)
		r.Get("/{id}/permissions", h.getPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermRolesEdit))
		r.Post("/", h.createRole)
		r.Put("/{id}", h.updateRole)
		r.Delete("/{id}", h.deleteRole)
		r.Put("/{id}/permissions", h.setPermissions)
	})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	include := httpx.BoolQuery(r, "includeInactive")
	roles, err := h.service.ListRoles(r.Context(), include != nil && *include, httpx.StringQuery(r, "search"))
	if err != nil {
		httpx.Fail(h.logger, w, "list roles", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": roles})
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get role", err, slog.Int64("role_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) getPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	role, err := h.service.GetRole(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get role permissions", err, slog.Int64("role_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": role.Permissions})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	role, err := h.service.CreateRole(r.Context(), principal.UserID, in)
	if err != nil {
		httpx.Fail(h.logger, w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, role)
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	role, err := h.service.UpdateRole(r.Context(), principal.UserID, id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "update role", err, slog.Int64("role_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.DeleteRole(r.Context(), principal.UserID, id); err != nil {
		httpx.Fail(h.logger, w, "delete role", err, slog.Int64("role_id", id))
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in PermissionsInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	role, err := h.service.SetPermissions(r.Context(), principal.UserID, id, in.Permissions)
	if err != nil {
		httpx.Fail(h.logger, w, "set role permissions", err, slog.Int64("role_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}
