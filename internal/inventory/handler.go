package inventory

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermInventoryView, shared.PermInventoryAdjust))
		r.Get("/stocks", h.listStocks)
		r.Get("/lots", h.listLots)
		r.Get("/movements", h.listMovements)
		r.Get("/movements/export.csv", h.exportMovements)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermInventoryAdjust))
		r.Post("/adjustments", h.adjust)
	})
}

type scope struct {
	company   *int64
	warehouse *int64
	product   *int64
}

func (h *Handler) parseScope(r *http.Request) (scope, error) {
	var s scope
	var err error
	if s.company, err = h.rbac.CompanyScope(r); err != nil {
		return s, err
	}
	if s.warehouse, err = httpx.Int64Query(r, "warehouseId"); err != nil {
		return s, err
	}
	s.product, err = httpx.Int64Query(r, "productId")
	return s, err
}

func (h *Handler) listStocks(w http.ResponseWriter, r *http.Request) {
	params, err := httpx.ParseListParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sc, err := h.parseScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.ListStocks(r.Context(), params, StockFilters{
		CompanyID: sc.company, WarehouseID: sc.warehouse, ProductID: sc.product,
	})
	if err != nil {
		httpx.Fail(h.logger, w, "list stocks", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) listLots(w http.ResponseWriter, r *http.Request) {
	params, err := httpx.ParseListParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sc, err := h.parseScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	f := LotFilters{CompanyID: sc.company, WarehouseID: sc.warehouse, ProductID: sc.product, Status: httpx.StringQuery(r, "status")}
	if raw := httpx.StringQuery(r, "expiringWithinDays"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			httpx.RespondError(w, httpx.NewFieldErrors("expiringWithinDays", "must be a non-negative integer"))
			return
		}
		f.ExpiringWithinDays = &days
	}
	page, err := h.service.ListLots(r.Context(), params, f)
	if err != nil {
		httpx.Fail(h.logger, w, "list lots", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) movementFilters(r *http.Request) (shared.ListParams, MovementFilters, error) {
	params, err := httpx.ParseListParams(r)
	if err != nil {
		return params, MovementFilters{}, err
	}
	sc, err := h.parseScope(r)
	if err != nil {
		return params, MovementFilters{}, err
	}
	return params, MovementFilters{
		CompanyID:   sc.company,
		WarehouseID: sc.warehouse,
		ProductID:   sc.product,
		Product:     httpx.StringQuery(r, "product"),
		Type:        httpx.StringQuery(r, "type"),
		From:        params.From,
		To:          params.To,
	}, nil
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	params, f, err := h.movementFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.ListMovements(r.Context(), params, f)
	if err != nil {
		httpx.Fail(h.logger, w, "list movements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) exportMovements(w http.ResponseWriter, r *http.Request) {
	params, f, err := h.movementFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var buf bytes.Buffer
	if _, err := h.service.ExportMovementsCSV(r.Context(), params, f, &buf); err != nil {
		httpx.Fail(h.logger, w, "export movements", err)
		return
	}
	httpx.Attachment(w, "text/csv; charset=utf-8", fmt.Sprintf("stock-movements-%s.csv", httpx.Now(r).Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var in AdjustmentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	m, err := h.service.Adjust(r.Context(), principal.UserID, in)
	if err != nil {
		httpx.Fail(h.logger, w, "adjust stock", err,
			slog.Int64("warehouse_id", in.WarehouseID), slog.Int64("product_id", in.ProductID))
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}
