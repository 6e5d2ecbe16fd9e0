package tags

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCustomersView, shared.PermTagsEdit))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermTagsEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	company, err := h.rbac.CompanyScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.List(r.Context(), Filters{
		CompanyID: company,
		Type:      httpx.StringQuery(r, "type"),
		Search:    httpx.StringQuery(r, "search"),
	})
	if err != nil {
		httpx.Fail(h.logger, w, "list tags failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tag, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get tag failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, tag)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var tag Tag
	if err := httpx.DecodeJSON(r, &tag); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	if tag.CompanyID == 0 || !h.rbac.Has(r, shared.PermCompaniesAll) {
		tag.CompanyID = principal.CompanyID
	}
	created, err := h.service.Create(r.Context(), tag)
	if err != nil {
		httpx.Fail(h.logger, w, "create tag failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get tag failed", err, slog.Int64("id", id))
		return
	}
	tag := current
	if err := httpx.DecodeJSON(r, &tag); err != nil {
		httpx.RespondError(w, err)
		return
	}
	tag.CompanyID = current.CompanyID
	updated, err := h.service.Update(r.Context(), id, tag)
	if err != nil {
		httpx.Fail(h.logger, w, "update tag failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, "delete tag failed", err, slog.Int64("id", id))
		return
	}
	httpx.NoContent(w)
}
