package journals

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Post("/{id}/fix", h.Fix)
	r.Delete("/{id}", h.Delete)
	r.Post("/renumber/{year}", h.Renumber)
}
