package leaderboard

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pennyleague/internal/modules/portfolio"
)

// OwnerSource lists every registered username.
type OwnerSource interface {
	Usernames() ([]string, error)
}

// Handlers contains HTTP handlers for the leaderboard.
type Handlers struct {
	owners       OwnerSource
	trades       portfolio.TradeSource
	quote        portfolio.QuoteFunc
	startingCash decimal.Decimal
	log          zerolog.Logger
}

// NewHandlers creates a new leaderboard handlers instance
func NewHandlers(owners OwnerSource, trades portfolio.TradeSource, quote portfolio.QuoteFunc, startingCash decimal.Decimal, log zerolog.Logger) *Handlers {
	return &Handlers{
		owners:       owners,
		trades:       trades,
		quote:        quote,
		startingCash: startingCash,
		log:          log.With().Str("handler", "leaderboard").Logger(),
	}
}

// HandleGetLeaderboard returns all users ranked by percentage return.
// GET /api/leaderboard
func (h *Handlers) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	owners, err := h.owners.Usernames()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list users")
		http.Error(w, "Failed to build leaderboard", http.StatusInternalServerError)
		return
	}

	entries, err := Rank(owners, h.trades, h.startingCash, h.quote)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to rank users")
		http.Error(w, "Failed to build leaderboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}
