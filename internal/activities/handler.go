package activities

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Handler serves the activity feed.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermCustomersView)).Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	params, err := httpx.ParseListParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	customerID, err := httpx.Int64Query(r, "customerId")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), params, Filters{CustomerID: customerID, Type: httpx.StringQuery(r, "type")})
	if err != nil {
		httpx.Fail(h.logger, w, "list activities", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

// ListForCustomer serves GET /customers/{id}/activities.
func (h *Handler) ListForCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	params, err := httpx.ParseListParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), params, Filters{CustomerID: &id, Type: httpx.StringQuery(r, "type")})
	if err != nil {
		httpx.Fail(h.logger, w, "list customer activities", err, slog.Int64("customer_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}
