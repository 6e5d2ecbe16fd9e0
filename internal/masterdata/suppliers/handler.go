package suppliers

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := shared.ParseFilters(r, h.rbac.CompanyScope)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), filters)
	if err != nil {
		httpx.Fail(h.logger, w, "list suppliers failed", err)
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
	supplier, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get supplier failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	supplier := Supplier{IsActive: true}
	if err := httpx.DecodeJSON(r, &supplier); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if supplier.CompanyID == 0 {
		principal, _ := core.PrincipalFromContext(r.Context())
		supplier.CompanyID = principal.CompanyID
	}
	created, err := h.service.Create(r.Context(), supplier)
	if err != nil {
		httpx.Fail(h.logger, w, "create supplier failed", err)
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
	var supplier Supplier
	if err := httpx.DecodeJSON(r, &supplier); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), id, supplier)
	if err != nil {
		httpx.Fail(h.logger, w, "update supplier failed", err, slog.Int64("id", id))
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
		httpx.Fail(h.logger, w, "set supplier status failed", err, slog.Int64("id", id))
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
		httpx.Fail(h.logger, w, "delete supplier failed", err, slog.Int64("id", id))
		return
	}
	httpx.NoContent(w)
}
