package accounts

import "github.com/go-chi/chi/v5"

// MountRoutes registers chart of accounts routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{code}", h.Show)
	r.Patch("/{code}", h.Update)
	r.Post("/{code}/deactivate", h.Deactivate)
}
