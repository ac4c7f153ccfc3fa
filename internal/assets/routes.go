package assets

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the asset endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.CreateCategory)
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Post("/depreciation/run", h.Run)
	r.Get("/{code}", h.Show)
	r.Post("/{code}/compute", h.Compute)
	r.Post("/{code}/dispose", h.Dispose)
	r.Post("/{code}/status", h.ChangeStatus)
}
