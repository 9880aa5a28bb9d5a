package portfolio

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"pennyleague/internal/modules/users"
)

// Handlers contains HTTP handlers for portfolio views.
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetOwn returns the authenticated user's portfolio.
// GET /api/portfolio
func (h *Handlers) HandleGetOwn(w http.ResponseWriter, r *http.Request) {
	id, ok := users.FromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	h.respond(w, id.Username)
}

// HandleGetForUser returns any user's portfolio. Admin only (routed behind
// RequireAdmin).
// GET /api/portfolio/{username}
func (h *Handlers) HandleGetForUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		http.Error(w, "Username required", http.StatusBadRequest)
		return
	}

	h.respond(w, username)
}

func (h *Handlers) respond(w http.ResponseWriter, owner string) {
	p, err := h.service.GetPortfolio(owner)
	if err != nil {
		h.log.Error().Err(err).Str("owner", owner).Msg("Failed to compute portfolio")
		http.Error(w, "Failed to compute portfolio", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(p)
}
