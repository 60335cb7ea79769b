package invoices

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{code}", h.Show)
	r.Post("/{code}/post", h.Post)
	r.Post("/{code}/date", h.ChangeDate)
	r.Post("/{code}/audit", h.Audit)
	r.Delete("/{code}", h.Delete)
}
