package procurement

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Handler manages procurement endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchasesView, shared.PermPurchasesEdit, shared.PermPurchasesRecv))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPurchasesEdit))
		r.Post("/", h.create)
		r.Patch("/{id}/status", h.updateStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPurchasesRecv))
		r.Post("/{id}/receive", h.receive)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	params, err := httpx.ParseListParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	f := Filters{Status: httpx.StringQuery(r, "status"), From: params.From, To: params.To}
	if f.CompanyID, err = h.rbac.CompanyScope(r); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if f.SupplierID, err = httpx.Int64Query(r, "supplierId"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if f.WarehouseID, err = httpx.Int64Query(r, "warehouseId"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), params, f)
	if err != nil {
		httpx.Fail(h.logger, w, "list purchases", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

// load fetches the purchase named by the URL, hiding other companies'
// purchases from callers without companies.all.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Purchase, bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return Purchase{}, false
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get purchase", err, slog.Int64("purchase_id", id))
		return Purchase{}, false
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	if p.CompanyID != principal.CompanyID && !h.rbac.Has(r, shared.PermCompaniesAll) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return Purchase{}, false
	}
	return p, true
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.load(w, r); ok {
		httpx.JSON(w, http.StatusOK, p)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	if in.CompanyID == 0 || !h.rbac.Has(r, shared.PermCompaniesAll) {
		in.CompanyID = principal.CompanyID
	}
	p, err := h.service.Create(r.Context(), principal.UserID, in)
	if err != nil {
		httpx.Fail(h.logger, w, "create purchase", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	current, ok := h.load(w, r)
	if !ok {
		return
	}
	var in ReceiveInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	p, err := h.service.Receive(r.Context(), principal.UserID, current.ID, in)
	if err != nil {
		httpx.Fail(h.logger, w, "receive purchase", err, slog.Int64("purchase_id", current.ID))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	current, ok := h.load(w, r)
	if !ok {
		return
	}
	var in StatusInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	p, err := h.service.UpdateStatus(r.Context(), principal.UserID, current.ID, in)
	if err != nil {
		httpx.Fail(h.logger, w, "update purchase status", err, slog.Int64("purchase_id", current.ID))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
