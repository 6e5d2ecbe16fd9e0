package companies

import (
	"log/slog"
	"net/http"

	"github.com/mini-erp/telecrm/internal/masterdata/shared"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
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
		httpx.Fail(h.logger, w, "list companies failed", err)
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
	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get company failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form CompanyForm
	if err := httpx.DecodeAndValidate(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	company, err := h.service.Create(r.Context(), form)
	if err != nil {
		httpx.Fail(h.logger, w, "create company failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, company)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var form CompanyForm
	if err := httpx.DecodeAndValidate(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	company, err := h.service.Update(r.Context(), id, form)
	if err != nil {
		httpx.Fail(h.logger, w, "update company failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, "delete company failed", err, slog.Int64("id", id))
		return
	}
	httpx.NoContent(w)
}
