package orders

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/internal/xlsx"
	"github.com/mini-erp/telecrm/report"
)

// ExportRequest is the payload of an asynchronous order export.
type ExportRequest struct {
	Params      shared.ListParams `json:"params"`
	Filters     Filters           `json:"filters"`
	Format      string            `json:"format"`
	CompanyID   int64             `json:"companyId"`
	RequestedBy int64             `json:"requestedBy"`
}

// ExportQueue schedules asynchronous exports and returns the task id.
type ExportQueue interface {
	EnqueueOrderExport(ctx context.Context, req ExportRequest) (string, error)
}

// ImportObserver receives import row counts.
type ImportObserver interface {
	ObserveImport(entity string, created, updated, failed int)
}

// Handler serves /api/orders.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	rbac        rbac.Middleware
	renderer    Renderer
	queue       ExportQueue
	metrics     ImportObserver
	importLimit func(http.Handler) http.Handler
	maxImport   int64
}

// HandlerOptions carries optional collaborators.
type HandlerOptions struct {
	Renderer       Renderer
	Queue          ExportQueue
	Metrics        ImportObserver
	ImportLimit    func(http.Handler) http.Handler
	ImportMaxBytes int64
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, opts HandlerOptions) *Handler {
	if opts.ImportMaxBytes <= 0 {
		opts.ImportMaxBytes = 10 << 20
	}
	if opts.ImportLimit == nil {
		opts.ImportLimit = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		logger:      logger,
		service:     service,
		rbac:        rbac,
		renderer:    opts.Renderer,
		queue:       opts.Queue,
		metrics:     opts.Metrics,
		importLimit: opts.ImportLimit,
		maxImport:   opts.ImportMaxBytes,
	}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrdersExport))
		r.Get("/export.csv", h.exportCSV)
		r.Get("/export.xlsx", h.exportXLSX)
		r.Post("/export", h.exportAsync)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrdersTracking))
		r.Post("/tracking/validate", h.validateTracking)
		r.Post("/tracking/apply", h.applyTracking)
	})
	r.With(h.rbac.RequireAll(shared.PermOrdersImport), h.importLimit).Post("/import", h.importCSV)
	r.With(h.rbac.RequireAll(shared.PermOrdersCreate)).Post("/", h.create)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrdersView, shared.PermOrdersEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/label.pdf", h.label)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermOrdersEdit))
		r.Patch("/{id}", h.patch)
		r.Post("/{id}/slips", h.addSlip)
	})
}

// parseFilters reads the list filters. Callers without orders.edit only see
// orders they created.
func (h *Handler) parseFilters(r *http.Request) (shared.ListParams, Filters, error) {
	params, err := httpx.ParseListParams(r)
	if err != nil {
		return params, Filters{}, err
	}
	company, err := h.rbac.CompanyScope(r)
	if err != nil {
		return params, Filters{}, err
	}
	customerID, err := httpx.Int64Query(r, "customerId")
	if err != nil {
		return params, Filters{}, err
	}
	creatorID, err := httpx.Int64Query(r, "creatorId")
	if err != nil {
		return params, Filters{}, err
	}
	if !h.rbac.Has(r, shared.PermOrdersEdit) {
		principal, _ := shared.PrincipalFromContext(r.Context())
		own := principal.UserID
		creatorID = &own
	}
	return params, Filters{
		CompanyID:     company,
		Status:        httpx.StringQuery(r, "status"),
		PaymentStatus: httpx.StringQuery(r, "paymentStatus"),
		PaymentMethod: httpx.StringQuery(r, "paymentMethod"),
		CustomerID:    customerID,
		CreatorID:     creatorID,
	}, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	params, filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), params, filters)
	if err != nil {
		httpx.Fail(h.logger, w, "list orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get order", err, slog.String("order_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, o)
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
	o, err := h.service.Create(r.Context(), principal.UserID, r.Header.Get(shared.IdempotencyHeader), in)
	if err != nil {
		httpx.Fail(h.logger, w, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in PatchInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	o, err := h.service.Patch(r.Context(), principal.UserID, id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "patch order", err, slog.String("order_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) addSlip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in SlipInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	o, err := h.service.AddSlip(r.Context(), principal.UserID, id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "add order slip", err, slog.String("order_id", id))
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

type trackingRequest struct {
	Rows  []TrackingRow `json:"rows"`
	Paste string        `json:"paste"`
}

func (req trackingRequest) rows() []TrackingRow {
	if len(req.Rows) == 0 && req.Paste != "" {
		return ParseTrackingPaste(req.Paste)
	}
	return req.Rows
}

func (h *Handler) validateTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.ValidateTracking(r.Context(), req.rows())
	if err != nil {
		httpx.Fail(h.logger, w, "validate tracking", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) applyTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	result, err := h.service.ApplyTracking(r.Context(), principal.UserID, req.rows())
	if err != nil {
		httpx.Fail(h.logger, w, "apply tracking", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", "text/csv; charset=utf-8", h.service.ExportCSV)
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", xlsx.ContentType, h.service.ExportXLSX)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, ext, contentType string,
	write func(context.Context, shared.ListParams, Filters, io.Writer) (int, error)) {
	params, filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var buf bytes.Buffer
	if _, err := write(r.Context(), params, filters, &buf); err != nil {
		httpx.Fail(h.logger, w, "export orders", err, slog.String("format", ext))
		return
	}
	httpx.Attachment(w, contentType, fmt.Sprintf("orders-%s.%s", httpx.Now(r).Format("20060102"), ext))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) exportAsync(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "export queue not configured")
		return
	}
	params, filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	format := httpx.StringQuery(r, "format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		httpx.RespondError(w, httpx.NewFieldErrors("format", "must be csv or xlsx"))
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	taskID, err := h.queue.EnqueueOrderExport(r.Context(), ExportRequest{
		Params:      params,
		Filters:     filters,
		Format:      format,
		CompanyID:   principal.CompanyID,
		RequestedBy: principal.UserID,
	})
	if err != nil {
		httpx.Fail(h.logger, w, "enqueue order export", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"taskId": taskID})
}

func (h *Handler) label(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.renderer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf renderer not configured")
		return
	}
	pdf, err := h.service.Label(r.Context(), h.renderer, id)
	if errors.Is(err, report.ErrDisabled) {
		httpx.Problem(w, http.StatusServiceUnavailable, "Service Unavailable", "pdf renderer not configured")
		return
	}
	if err != nil {
		httpx.Fail(h.logger, w, "render order label", err, slog.String("order_id", id))
		return
	}
	httpx.Attachment(w, "application/pdf", fmt.Sprintf("label-%s.pdf", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImport)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "file exceeds the upload limit")
			return
		}
		httpx.RespondError(w, httpx.NewFieldErrors("file", "multipart field is required"))
		return
	}
	defer file.Close()

	principal, _ := shared.PrincipalFromContext(r.Context())
	result, err := h.service.Import(r.Context(), principal.UserID, principal.CompanyID, file)
	if err != nil {
		httpx.Fail(h.logger, w, "import orders", err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveImport("orders", result.Created, result.Updated, result.Skipped)
	}
	httpx.JSON(w, http.StatusOK, result)
}
