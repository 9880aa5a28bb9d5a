// Package admin exposes the competition administration surface: full-ledger
// views, trade deletion and timestamp repair for any owner, user management,
// and the oversell report. All routes are gated by users.RequireAdmin.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"pennyleague/internal/modules/ledger"
	"pennyleague/internal/modules/portfolio"
	"pennyleague/internal/modules/users"
)

// Handlers contains HTTP handlers for the admin panel.
type Handlers struct {
	trades     *ledger.TradeRepository
	userRepo   *users.Repository
	portfolios *portfolio.Service
	log        zerolog.Logger
}

// NewHandlers creates a new admin handlers instance
func NewHandlers(trades *ledger.TradeRepository, userRepo *users.Repository, portfolios *portfolio.Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		trades:     trades,
		userRepo:   userRepo,
		portfolios: portfolios,
		log:        log.With().Str("handler", "admin").Logger(),
	}
}

// HandleGetAllTrades returns the full ledger in fold order.
// GET /api/admin/trades
func (h *Handlers) HandleGetAllTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.ListAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list all trades")
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}

	if trades == nil {
		trades = []ledger.Trade{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(trades)
}

// HandleDeleteTrade deletes any user's trade.
// DELETE /api/admin/trades/{id}
func (h *Handlers) HandleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	tradeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}

	err = h.trades.AdminRemove(tradeID)
	if errors.Is(err, ledger.ErrNotFound) {
		http.Error(w, "Trade not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("trade_id", tradeID).Msg("Failed to delete trade")
		http.Error(w, "Failed to delete trade", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUpdateTimestamp repairs a trade's timestamp.
// PUT /api/admin/trades/{id}/timestamp
func (h *Handlers) HandleUpdateTimestamp(w http.ResponseWriter, r *http.Request) {
	tradeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}

	var req struct {
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Timestamp.IsZero() {
		http.Error(w, "Valid RFC3339 timestamp required", http.StatusBadRequest)
		return
	}

	err = h.trades.UpdateTimestamp(tradeID, req.Timestamp)
	if errors.Is(err, ledger.ErrNotFound) {
		http.Error(w, "Trade not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("trade_id", tradeID).Msg("Failed to update timestamp")
		http.Error(w, "Failed to update timestamp", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetUsers lists all registered users.
// GET /api/admin/users
func (h *Handlers) HandleGetUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.userRepo.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list users")
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}

	if list == nil {
		list = []users.User{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

// HandleDeleteUser removes a user account and their sessions.
// DELETE /api/admin/users/{username}
func (h *Handlers) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if id, ok := users.FromContext(r.Context()); ok && id.Username == username {
		http.Error(w, "Cannot delete your own account", http.StatusBadRequest)
		return
	}

	err := h.userRepo.Delete(username)
	if errors.Is(err, users.ErrNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("Failed to delete user")
		http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// OversellReport is one flagged oversell across the whole league.
type OversellReport struct {
	Username string `json:"username"`
	Ticker   string `json:"ticker"`
	TradeID  int64  `json:"trade_id,omitempty"`
	Detail   string `json:"detail"`
}

// HandleGetOversells surfaces every oversell condition in the ledger, the
// data-integrity report the clamp policy calls for.
// GET /api/admin/oversells
func (h *Handlers) HandleGetOversells(w http.ResponseWriter, r *http.Request) {
	usernames, err := h.userRepo.Usernames()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list users")
		http.Error(w, "Failed to build oversell report", http.StatusInternalServerError)
		return
	}

	reports := []OversellReport{}
	for _, username := range usernames {
		p, err := h.portfolios.GetPortfolio(username)
		if err != nil {
			h.log.Error().Err(err).Str("username", username).Msg("Failed to compute portfolio")
			http.Error(w, "Failed to build oversell report", http.StatusInternalServerError)
			return
		}

		for _, warning := range p.Warnings {
			if warning.Kind != portfolio.WarningOversell {
				continue
			}
			reports = append(reports, OversellReport{
				Username: username,
				Ticker:   warning.Ticker,
				TradeID:  warning.TradeID,
				Detail:   warning.Detail,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reports)
}
