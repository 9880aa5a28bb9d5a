package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a trade does not exist (or does not belong to
// the requesting user).
var ErrNotFound = errors.New("trade not found")

// TradeRepository handles the trades table. The ledger is append-only per
// user apart from deletion; there is no edit-in-place.
type TradeRepository struct {
	db       *sql.DB
	maxPrice *decimal.Decimal // price ceiling, nil when not enforced
	log      zerolog.Logger
}

// NewTradeRepository creates a new trade repository. When maxPrice is
// non-nil, Record rejects trades priced above it.
func NewTradeRepository(db *sql.DB, maxPrice *decimal.Decimal, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:       db,
		maxPrice: maxPrice,
		log:      log.With().Str("repo", "trade").Logger(),
	}
}

// Record validates and persists a trade, assigning its id and, when the
// caller did not supply one, its timestamp.
func (r *TradeRepository) Record(trade Trade) (Trade, error) {
	if err := trade.Validate(); err != nil {
		return Trade{}, err
	}

	if r.maxPrice != nil && trade.Price.GreaterThan(*r.maxPrice) {
		return Trade{}, fmt.Errorf("price %s exceeds eligible maximum %s", trade.Price, r.maxPrice)
	}

	if trade.Timestamp.IsZero() {
		trade.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO trades (owner, ticker, side, quantity, price, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Exec(query,
		trade.Owner,
		trade.Ticker,
		string(trade.Side),
		trade.Quantity,
		trade.Price.String(),
		trade.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return Trade{}, fmt.Errorf("failed to record trade: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Trade{}, fmt.Errorf("failed to read trade id: %w", err)
	}
	trade.ID = id

	r.log.Info().
		Str("owner", trade.Owner).
		Str("ticker", trade.Ticker).
		Str("side", string(trade.Side)).
		Int64("quantity", trade.Quantity).
		Str("price", trade.Price.String()).
		Msg("Trade recorded")

	return trade, nil
}

// Remove deletes a trade by id, only if it belongs to requestedBy.
// Returns ErrNotFound when no matching row exists.
func (r *TradeRepository) Remove(tradeID int64, requestedBy string) error {
	res, err := r.db.Exec("DELETE FROM trades WHERE id = ? AND owner = ?", tradeID, requestedBy)
	if err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", tradeID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion of trade %d: %w", tradeID, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	r.log.Info().Int64("trade_id", tradeID).Str("owner", requestedBy).Msg("Trade deleted")
	return nil
}

// AdminRemove deletes a trade by id regardless of owner.
func (r *TradeRepository) AdminRemove(tradeID int64) error {
	res, err := r.db.Exec("DELETE FROM trades WHERE id = ?", tradeID)
	if err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", tradeID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deletion of trade %d: %w", tradeID, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	r.log.Info().Int64("trade_id", tradeID).Msg("Trade deleted by admin")
	return nil
}

// UpdateTimestamp rewrites a trade's timestamp. Admin repair operation for
// imported ledgers with bad or missing times; changes the fold order.
func (r *TradeRepository) UpdateTimestamp(tradeID int64, ts time.Time) error {
	res, err := r.db.Exec(
		"UPDATE trades SET timestamp = ? WHERE id = ?",
		ts.UTC().Format(time.RFC3339), tradeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trade %d timestamp: %w", tradeID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of trade %d: %w", tradeID, err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// ListFor returns all trades for one owner, ordered by timestamp ascending
// (id breaks ties). This is the order the average-cost fold requires.
func (r *TradeRepository) ListFor(owner string) ([]Trade, error) {
	query := `
		SELECT id, owner, ticker, side, quantity, price, timestamp
		FROM trades
		WHERE owner = ?
		ORDER BY timestamp ASC, id ASC
	`
	return r.queryTrades(query, owner)
}

// ListAll returns every trade in the ledger in fold order, for admin views
// and leaderboard construction.
func (r *TradeRepository) ListAll() ([]Trade, error) {
	query := `
		SELECT id, owner, ticker, side, quantity, price, timestamp
		FROM trades
		ORDER BY timestamp ASC, id ASC
	`
	return r.queryTrades(query)
}

// DistinctTickers returns every ticker present in the ledger. Used by the
// quote cache pre-warm job.
func (r *TradeRepository) DistinctTickers() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT ticker FROM trades ORDER BY ticker")
	if err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		tickers = append(tickers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickers: %w", err)
	}

	return tickers, nil
}

func (r *TradeRepository) queryTrades(query string, args ...interface{}) ([]Trade, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	return trades, nil
}

func scanTrade(rows *sql.Rows) (Trade, error) {
	var trade Trade
	var side, price, timestamp string

	if err := rows.Scan(&trade.ID, &trade.Owner, &trade.Ticker, &side, &trade.Quantity, &price, &timestamp); err != nil {
		return Trade{}, err
	}

	trade.Side = TradeSide(strings.ToUpper(side))
	trade.Ticker = strings.ToUpper(strings.TrimSpace(trade.Ticker))

	p, err := decimal.NewFromString(price)
	if err != nil {
		return Trade{}, fmt.Errorf("bad price %q for trade %d: %w", price, trade.ID, err)
	}
	trade.Price = p

	ts, err := parseTimestamp(timestamp)
	if err != nil {
		return Trade{}, fmt.Errorf("bad timestamp %q for trade %d: %w", timestamp, trade.ID, err)
	}
	trade.Timestamp = ts

	return trade, nil
}

// parseTimestamp accepts RFC3339 plus the bare datetime format older
// imported ledgers used.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}
