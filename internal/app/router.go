package app

import (
	"log/slog"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mini-erp/telecrm/internal/activities"
	"github.com/mini-erp/telecrm/internal/attendance"
	"github.com/mini-erp/telecrm/internal/auth"
	"github.com/mini-erp/telecrm/internal/customers"
	"github.com/mini-erp/telecrm/internal/exports"
	"github.com/mini-erp/telecrm/internal/inventory"
	"github.com/mini-erp/telecrm/internal/masterdata/companies"
	"github.com/mini-erp/telecrm/internal/masterdata/products"
	"github.com/mini-erp/telecrm/internal/masterdata/suppliers"
	"github.com/mini-erp/telecrm/internal/masterdata/warehouses"
	"github.com/mini-erp/telecrm/internal/observability"
	"github.com/mini-erp/telecrm/internal/orders"
	"github.com/mini-erp/telecrm/internal/platform/httpx"
	"github.com/mini-erp/telecrm/internal/procurement"
	"github.com/mini-erp/telecrm/internal/promotions"
	"github.com/mini-erp/telecrm/internal/rbac"
	"github.com/mini-erp/telecrm/internal/reports"
	"github.com/mini-erp/telecrm/internal/roles"
	"github.com/mini-erp/telecrm/internal/shared"
	"github.com/mini-erp/telecrm/internal/tags"
	"github.com/mini-erp/telecrm/internal/users"
	"github.com/mini-erp/telecrm/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	CompaniesHandler   *companies.Handler
	SuppliersHandler   *suppliers.Handler
	WarehousesHandler  *warehouses.Handler
	ProductsHandler    *products.Handler
	CustomersHandler   *customers.Handler
	ActivitiesHandler  *activities.Handler
	TagsHandler        *tags.Handler
	OrdersHandler      *orders.Handler
	PromotionsHandler  *promotions.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	AttendanceHandler  *attendance.Handler
	ReportsHandler     *reports.Handler
	ExportsHandler     *exports.Handler
	JobHandler         *jobs.Handler
	// PDFHealth reports renderer reachability at /report/health.
	PDFHealth http.HandlerFunc
}

type mounter interface {
	MountRoutes(r chi.Router)
}

// NewRouter constructs the chi.Router with the application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.PDFHealth != nil {
		r.Get("/report/health", params.PDFHealth)
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		routes := []struct {
			prefix  string
			handler mounter
		}{
			{"/users", params.UsersHandler},
			{"/roles", params.RolesHandler},
			{"/permissions", params.PermissionsHandler},
			{"/companies", params.CompaniesHandler},
			{"/suppliers", params.SuppliersHandler},
			{"/warehouses", params.WarehousesHandler},
			{"/products", params.ProductsHandler},
			{"/customers", params.CustomersHandler},
			{"/activities", params.ActivitiesHandler},
			{"/tags", params.TagsHandler},
			{"/orders", params.OrdersHandler},
			{"/promotions", params.PromotionsHandler},
			{"/inventory", params.InventoryHandler},
			{"/purchases", params.ProcurementHandler},
			{"/attendance", params.AttendanceHandler},
			{"/reports", params.ReportsHandler},
			{"/exports", params.ExportsHandler},
		}
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			for _, route := range routes {
				if isNil(route.handler) {
					continue
				}
				r.Route(route.prefix, route.handler.MountRoutes)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
	})
	return r
}

// isNil catches typed nil handler pointers stored in the interface.
func isNil(m mounter) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
