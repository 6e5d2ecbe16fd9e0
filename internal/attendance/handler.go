package attendance

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/internal/xlsx"
)

// Handler exposes attendance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers attendance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny()).Post("/heartbeat", h.heartbeat)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAttendanceView))
		r.Get("/report", h.report)
		r.Get("/report.csv", h.reportCSV)
		r.Get("/report.xlsx", h.reportXLSX)
	})
}

func (h *Handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	res, err := h.service.Heartbeat(r.Context(), principal.UserID)
	if err != nil {
		httpx.Fail(h.logger, w, "attendance heartbeat", err, slog.Int64("user_id", principal.UserID))
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Report, bool) {
	now := httpx.Now(r)
	year, month := now.Year(), int(now.Month())
	if raw := httpx.StringQuery(r, "month"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > 12 {
			httpx.RespondError(w, httpx.NewFieldErrors("month", "must be 1-12"))
			return Report{}, false
		}
		month = v
	}
	if raw := httpx.StringQuery(r, "year"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 2000 || v > 9999 {
			httpx.RespondError(w, httpx.NewFieldErrors("year", "is invalid"))
			return Report{}, false
		}
		year = v
	}
	company, err := h.rbac.CompanyScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return Report{}, false
	}
	report, err := h.service.Report(r.Context(), company, year, month)
	if err != nil {
		httpx.Fail(h.logger, w, "attendance report", err, slog.Int("year", year), slog.Int("month", month))
		return Report{}, false
	}
	return report, true
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	if report, ok := h.load(w, r); ok {
		httpx.JSON(w, http.StatusOK, report)
	}
}

func (h *Handler) reportCSV(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "csv", "text/csv; charset=utf-8", WriteCSV)
}

func (h *Handler) reportXLSX(w http.ResponseWriter, r *http.Request) {
	h.download(w, r, "xlsx", xlsx.ContentType, WriteXLSX)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request, ext, contentType string, write func(Report, io.Writer) error) {
	report, ok := h.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := write(report, &buf); err != nil {
		httpx.Fail(h.logger, w, "write attendance report", err, slog.String("format", ext))
		return
	}
	httpx.Attachment(w, contentType, fmt.Sprintf("attendance_report_%d_%d.%s", report.Year, report.Month, ext))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
