package contact

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes registers the contact endpoints. intake and redeem are the rate limiters.
func (h *Handler) Routes(r chi.Router, intake, redeem func(http.Handler) http.Handler) {
	r.With(intake).Post("/api/contact", h.Submit)
	r.With(redeem).Get("/api/contact/verify", h.Verify)
}
