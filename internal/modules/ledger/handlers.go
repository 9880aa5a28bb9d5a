package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pennyleague/internal/modules/users"
)

// Handlers contains HTTP handlers for the trade ledger.
type Handlers struct {
	repo *TradeRepository
	log  zerolog.Logger
}

// NewHandlers creates a new ledger handlers instance
func NewHandlers(repo *TradeRepository, log zerolog.Logger) *Handlers {
	return &Handlers{
		repo: repo,
		log:  log.With().Str("handler", "ledger").Logger(),
	}
}

type recordRequest struct {
	Ticker   string          `json:"ticker"`
	Side     string          `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// HandleRecordTrade records a trade for the authenticated user.
// POST /api/trades
func (h *Handlers) HandleRecordTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := users.FromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	side, err := TradeSideFromString(req.Side)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	trade, err := h.repo.Record(Trade{
		Owner:    id.Username,
		Ticker:   req.Ticker,
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(trade)
}

// HandleGetTrades returns the authenticated user's trades in fold order.
// GET /api/trades
func (h *Handlers) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	id, ok := users.FromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	trades, err := h.repo.ListFor(id.Username)
	if err != nil {
		h.log.Error().Err(err).Str("owner", id.Username).Msg("Failed to list trades")
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}

	if trades == nil {
		trades = []Trade{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(trades)
}

// HandleDeleteTrade deletes one of the authenticated user's own trades.
// DELETE /api/trades/{id}
func (h *Handlers) HandleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := users.FromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	tradeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid trade id", http.StatusBadRequest)
		return
	}

	err = h.repo.Remove(tradeID, id.Username)
	if errors.Is(err, ErrNotFound) {
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

// HandleImportCSV bulk-imports trades from an uploaded CSV file.
// POST /api/trades/import
func (h *Handlers) HandleImportCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := users.FromContext(r.Context())
	if !ok {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "CSV file upload required (field \"file\")", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := h.repo.ImportCSV(id.Username, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
