package exports

import (
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/internal/xlsx"
)

// Handler exposes export history endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermOrdersExport, shared.PermCustomersExport))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/download", h.download)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	params, err := httpx.ParseListParams(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	company, err := h.rbac.CompanyScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), params, Filters{
		CompanyID: company,
		Kind:      httpx.StringQuery(r, "kind"),
		Status:    httpx.StringQuery(r, "status"),
	})
	if err != nil {
		httpx.Fail(h.logger, w, "list exports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) scope(r *http.Request) *int64 {
	if h.rbac.Has(r, shared.PermCompaniesAll) {
		return nil
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	return &principal.CompanyID
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Get(r.Context(), id, h.scope(r))
	if err != nil {
		httpx.Fail(h.logger, w, "get export", err, slog.Int64("export_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, body, err := h.service.Open(r.Context(), id, h.scope(r))
	if err != nil {
		httpx.Fail(h.logger, w, "download export", err, slog.Int64("export_id", id))
		return
	}
	defer func() { _ = body.Close() }()
	contentType := "text/csv; charset=utf-8"
	if filepath.Ext(rec.FileName) == ".xlsx" {
		contentType = xlsx.ContentType
	}
	httpx.Attachment(w, contentType, rec.FileName)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream export", slog.Int64("export_id", id), slog.Any("error", err))
	}
}
