package products

import (
	"github.com/go-chi/chi/v5"

	"github.com/mini-erp/telecrm/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermMasterDataView, shared.PermMasterDataEdit, shared.PermOrdersCreate))
		r.Get("/", h.List)
		r.Get("/categories", h.Categories)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermMasterDataEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/status", h.SetStatus)
		r.Delete("/{id}", h.Delete)
	})
}
