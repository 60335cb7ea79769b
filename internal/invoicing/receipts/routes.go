package receipts

import "github.com/go-chi/chi/v5"

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ListByInvoice)
	r.Get("/history", h.History)
	r.Post("/generate", h.Generate)
	r.Post("/{id}/pay", h.MarkPaid)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}
