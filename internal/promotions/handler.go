package promotions

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/shared"
)

// Handler serves /api/promotions.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers promotion routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPromotionsView, shared.PermPromotionsEdit, shared.PermOrdersCreate))
		r.Get("/", h.list)
		r.Get("/active", h.active)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPromotionsEdit))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Patch("/{id}/active", h.setActive)
		r.Delete("/{id}", h.delete)
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
	page, err := h.service.List(r.Context(), params, Filters{CompanyID: company, IsActive: httpx.BoolQuery(r, "active")})
	if err != nil {
		httpx.Fail(h.logger, w, "list promotions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	company, err := h.rbac.CompanyScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	day := httpx.Now(r)
	if raw := httpx.StringQuery(r, "date"); raw != "" {
		if day, err = time.ParseInLocation("2006-01-02", raw, httpx.Location(r)); err != nil {
			httpx.RespondError(w, httpx.NewFieldErrors("date", "expected YYYY-MM-DD"))
			return
		}
	}
	items, err := h.service.Active(r.Context(), company, day)
	if err != nil {
		httpx.Fail(h.logger, w, "list active promotions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get promotion", err, slog.Int64("promotion_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if in.CompanyID == 0 || !h.rbac.Has(r, shared.PermCompaniesAll) {
		principal, _ := shared.PrincipalFromContext(r.Context())
		in.CompanyID = principal.CompanyID
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.Fail(h.logger, w, "create promotion", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.Fail(h.logger, w, "get promotion", err, slog.Int64("promotion_id", id))
		return
	}
	in.CompanyID = current.CompanyID
	p, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.Fail(h.logger, w, "update promotion", err, slog.Int64("promotion_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ActiveInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.SetActive(r.Context(), id, *in.IsActive)
	if err != nil {
		httpx.Fail(h.logger, w, "toggle promotion", err, slog.Int64("promotion_id", id))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.Fail(h.logger, w, "delete promotion", err, slog.Int64("promotion_id", id))
		return
	}
	httpx.NoContent(w)
}
