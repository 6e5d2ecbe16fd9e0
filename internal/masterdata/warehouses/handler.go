package warehouses

import (
	"log/slog"
	"net/http"

	"github.com/mini-erp/telecrm/internal/masterdata/shared"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	core "github.com/mini-erp/telecrm/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// List accepts servesProvince to find the warehouses that ship to a province.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := shared.ParseFilters(r, h.rbac.CompanyScope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), filters, httpx.StringQuery(r, "servesProvince"))
	if err != nil {
		httpx.Fail(h.logger, w, "list warehouses failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	warehouse, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get warehouse failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, warehouse)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in := Warehouse{IsActive: true}
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if in.CompanyID == 0 {
		principal, _ := core.PrincipalFromContext(r.Context())
		in.CompanyID = principal.CompanyID
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, "create warehouse failed", err)
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
	var in Warehouse
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "update warehouse failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in shared.StatusInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.SetActive(r.Context(), id, *in.IsActive)
	if err != nil {
		httpx.Fail(h.logger, w, "set warehouse status failed", err, slog.Int64("id", id))
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
		httpx.Fail(h.logger, w, "delete warehouse failed", err, slog.Int64("id", id))
		return
	}
	httpx.NoContent(w)
}
