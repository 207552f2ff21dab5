package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all form routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/form", func(r chi.Router) {
		r.Get("/", h.HandleGetForm)
		r.Post("/reset", h.HandleReset)
		r.Post("/submit", h.HandleSubmit)

		r.Route("/rows", func(r chi.Router) {
			r.Post("/", h.HandleAddRow)
			r.Route("/{index}", func(r chi.Router) {
				r.Put("/ticker", h.HandleSelectTicker)
				r.Put("/weights", h.HandleSetWeights)
				r.Put("/sector", h.HandleSetSector)
				r.Get("/options", h.HandleGetOptions)
				r.Post("/delete", h.HandleRequestDelete)
			})
		})

		r.Post("/deletions/{token}/confirm", h.HandleConfirmDelete)
		r.Delete("/deletions/{token}", h.HandleCancelDelete)

		r.Route("/method", func(r chi.Router) {
			r.Put("/", h.HandleSelectMethod)
			r.Patch("/params", h.HandleSetParams)
			r.Put("/sectors/{sector}", h.HandleSetSectorWeight)
			r.Put("/budget/{index}", h.HandleSetBudgetWeight)
		})
	})

	r.Post("/submissions", h.HandleSubmitPayload)
}
