package events

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the event webhook behind the given middleware.
func (h *Handler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.With(middlewares...).Post("/v1/events", h.Handle)
}
