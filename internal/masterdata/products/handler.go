package products

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
	page, err := h.service.List(r.Context(), filters, httpx.StringQuery(r, "category"))
	if err != nil {
		httpx.Fail(h.logger, w, "list products failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	company, err := h.rbac.CompanyScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	categories, err := h.service.Categories(r.Context(), company)
	if err != nil {
		httpx.Fail(h.logger, w, "list product categories failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": categories})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get product failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form ProductForm
	if err := httpx.DecodeAndValidate(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if form.CompanyID == 0 {
		principal, _ := core.PrincipalFromContext(r.Context())
		form.CompanyID = principal.CompanyID
	}
	product, err := h.service.Create(r.Context(), form)
	if err != nil {
		httpx.Fail(h.logger, w, "create product failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var form ProductForm
	if err := httpx.DecodeAndValidate(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if form.CompanyID == 0 {
		principal, _ := core.PrincipalFromContext(r.Context())
		form.CompanyID = principal.CompanyID
	}
	product, err := h.service.Update(r.Context(), id, form)
	if err != nil {
		httpx.Fail(h.logger, w, "update product failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, product)
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
	product, err := h.service.SetActive(r.Context(), id, *in.IsActive)
	if err != nil {
		httpx.Fail(h.logger, w, "set product status failed", err, slog.Int64("id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, "delete product failed", err, slog.Int64("id", id))
		return
	}
	httpx.NoContent(w)
}
