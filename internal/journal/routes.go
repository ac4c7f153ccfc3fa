package journal

import "github.com/go-chi/chi/v5"

// MountRoutes registers journal entry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Post("/{id}/post", h.Post)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/reverse", h.Reverse)
}
