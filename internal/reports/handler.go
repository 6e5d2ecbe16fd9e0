package reports

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/internal/xlsx"
)

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportsView))
		r.Get("/sales-summary", h.salesSummary)
		r.Get("/telesales", h.telesales)
		r.Get("/orders.xlsx", h.ordersWorkbook)
	})
}

// ResolveWindow fills a missing bound: no bounds means the current month,
// a lone from runs to the end of today, a lone to starts on the first of its month.
func ResolveWindow(from, to *time.Time, now time.Time) (time.Time, time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case from != nil && to != nil:
		return *from, *to
	case from != nil:
		return *from, today.AddDate(0, 0, 1)
	case to != nil:
		last := to.Add(-time.Nanosecond)
		return time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, last.Location()), *to
	default:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start, start.AddDate(0, 1, 0)
	}
}

func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	from, to, err := httpx.ParseDateWindow(r)
	if err != nil {
		httpx.RespondError(w, err)
		return Filter{}, false
	}
	company, err := h.rbac.CompanyScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return Filter{}, false
	}
	f := Filter{CompanyID: company}
	f.From, f.To = ResolveWindow(from, to, httpx.Now(r))
	return f, true
}

func (h *Handler) salesSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	summary, err := h.service.SalesSummary(r.Context(), f)
	if err != nil {
		httpx.Fail(h.logger, w, "sales summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) telesales(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Telesales(r.Context(), f)
	if err != nil {
		httpx.Fail(h.logger, w, "telesales report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (h *Handler) ordersWorkbook(w http.ResponseWriter, r *http.Request) {
	f, ok := h.filter(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.service.OrdersWorkbook(r.Context(), f, &buf); err != nil {
		httpx.Fail(h.logger, w, "orders workbook", err)
		return
	}
	name := fmt.Sprintf("orders_report_%s_%s.xlsx", f.From.Format("20060102"), f.To.AddDate(0, 0, -1).Format("20060102"))
	httpx.Attachment(w, xlsx.ContentType, name)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
