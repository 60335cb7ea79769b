package subaccounts

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ListByYear)
	r.Post("/ensure-party", h.EnsureParty)
	r.Get("/{code}", h.Show)
}
