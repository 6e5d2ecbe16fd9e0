package customers

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

// ImportObserver receives import row counts.
type ImportObserver interface {
	ObserveImport(entity string, created, updated, failed int)
}

// Handler serves /api/customers.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	rbac        rbac.Middleware
	timeline    *activities.Handler
	metrics     ImportObserver
	importLimit func(http.Handler) http.Handler
	maxImport   int64
}

// HandlerOptions carries optional collaborators.
type HandlerOptions struct {
	Timeline       *activities.Handler
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
		timeline:    opts.Timeline,
		metrics:     opts.Metrics,
		importLimit: opts.ImportLimit,
		maxImport:   opts.ImportMaxBytes,
	}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCustomersView, shared.PermCustomersEdit))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		if h.timeline != nil {
			r.Get("/{id}/activities", h.timeline.ListForCustomer)
		}
		r.Post("/{id}/calls", h.logCall)
		r.Post("/{id}/appointments", h.setAppointment)
	})
	r.With(h.rbac.RequireAll(shared.PermCustomersExport)).Get("/export.csv", h.export)
	r.With(h.rbac.RequireAll(shared.PermCustomersImport), h.importLimit).Post("/import", h.importCSV)
	r.With(h.rbac.RequireAll(shared.PermCustomersAssign)).Post("/{id}/assign", h.assign)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCustomersEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
		r.Put("/{id}/tags", h.setTags)
	})
}

// parseFilters reads the list filters. Callers who cannot reassign
// customers only see their own book.
func (h *Handler) parseFilters(r *http.Request) (shared.ListParams, Filters, error) {
	params, err := httpx.ParseListParams(r)
	if err != nil {
		return params, Filters{}, err
	}
	company, err := h.rbac.CompanyScope(r)
	if err != nil {
		return params, Filters{}, err
	}
	assigned, err := httpx.Int64Query(r, "assignedTo")
	if err != nil {
		return params, Filters{}, err
	}
	tagID, err := httpx.Int64Query(r, "tagId")
	if err != nil {
		return params, Filters{}, err
	}
	if !h.rbac.Has(r, shared.PermCustomersAssign) {
		principal, _ := shared.PrincipalFromContext(r.Context())
		own := principal.UserID
		assigned = &own
	}
	return params, Filters{
		CompanyID:  company,
		Lifecycle:  httpx.StringQuery(r, "lifecycle"),
		Behavioral: httpx.StringQuery(r, "behavioral"),
		Grade:      httpx.StringQuery(r, "grade"),
		AssignedTo: assigned,
		Province:   httpx.StringQuery(r, "province"),
		TagID:      tagID,
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
		httpx.Fail(h.logger, w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get customer", err, slog.Int64("customer_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, c)
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
	c, err := h.service.Create(r.Context(), principal.UserID, in)
	if err != nil {
		httpx.Fail(h.logger, w, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	c, err := h.service.Update(r.Context(), principal.UserID, id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "update customer", err, slog.Int64("customer_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), principal.UserID, id); err != nil {
		httpx.Fail(h.logger, w, "delete customer", err, slog.Int64("customer_id", id))
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in AssignInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	c, err := h.service.Assign(r.Context(), principal.UserID, id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "assign customer", err, slog.Int64("customer_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) setTags(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in TagsInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	c, err := h.service.SetTags(r.Context(), id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "set customer tags", err, slog.Int64("customer_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) logCall(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CallInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	c, err := h.service.LogCall(r.Context(), principal.UserID, id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "log customer call", err, slog.Int64("customer_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) setAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in AppointmentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	c, err := h.service.SetAppointment(r.Context(), principal.UserID, id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "set customer appointment", err, slog.Int64("customer_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	params, filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var buf bytes.Buffer
	if _, err := h.service.Export(r.Context(), params, filters, &buf); err != nil {
		httpx.Fail(h.logger, w, "export customers", err)
		return
	}
	httpx.Attachment(w, "text/csv; charset=utf-8", fmt.Sprintf("customers-%s.csv", httpx.Now(r).Format("20060102")))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
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
		httpx.Fail(h.logger, w, "import customers", err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveImport("customers", result.Created, result.Updated, result.Skipped)
	}
	httpx.JSON(w, http.StatusOK, result)
}
