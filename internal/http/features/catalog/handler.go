package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/stay-concierge/internal/httputil"
	"github.com/tendant/stay-concierge/pkg/catalog"
)

// Response lists the section catalogue in display order.
type Response struct {
	Sections []catalog.Section `json:"sections"`
}

// Handler serves the static section catalogue to channel adapters.
type Handler struct {
	body Response
}

// NewHandler creates a new catalogue handler.
func NewHandler() *Handler {
	return &Handler{body: Response{Sections: catalog.Sections()}}
}

// List returns every section with its fixed fields.
// GET /v1/catalog
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, h.body)
}

// RegisterRoutes registers the catalogue route behind the given middleware.
func (h *Handler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.With(middlewares...).Get("/v1/catalog", h.List)
}
