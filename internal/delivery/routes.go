package delivery

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ListPending)
	r.Post("/", h.Create)
	r.Get("/{code}", h.Show)
	r.Post("/{code}/attach", h.Attach)
	r.Post("/{code}/unlink", h.Unlink)
}
