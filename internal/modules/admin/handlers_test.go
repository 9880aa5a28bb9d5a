package admin

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pennyleague/internal/database"
	"pennyleague/internal/modules/ledger"
	"pennyleague/internal/modules/portfolio"
	"pennyleague/internal/modules/users"
)

type fixture struct {
	router *chi.Mux
	trades *ledger.TradeRepository
	users  *users.Repository
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(database.Schema)
	require.NoError(t, err)

	return db
}

func setup(t *testing.T) fixture {
	t.Helper()

	db := setupTestDB(t)
	tradeRepo := ledger.NewTradeRepository(db, nil, zerolog.Nop())
	userRepo := users.NewRepository(db, zerolog.Nop())

	quote := func(ticker string) (decimal.Decimal, error) {
		return decimal.NewFromInt(1), nil
	}
	portfolios := portfolio.NewService(tradeRepo, quote, decimal.NewFromInt(500), zerolog.Nop())

	h := NewHandlers(tradeRepo, userRepo, portfolios, zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/api/admin/trades", h.HandleGetAllTrades)
	r.Delete("/api/admin/trades/{id}", h.HandleDeleteTrade)
	r.Put("/api/admin/trades/{id}/timestamp", h.HandleUpdateTimestamp)
	r.Get("/api/admin/users", h.HandleGetUsers)
	r.Delete("/api/admin/users/{username}", h.HandleDeleteUser)
	r.Get("/api/admin/oversells", h.HandleGetOversells)

	return fixture{router: r, trades: tradeRepo, users: userRepo}
}

func registerUser(t *testing.T, repo *users.Repository, username string) {
	t.Helper()
	_, err := repo.Create(users.Registration{
		Username: username,
		Name:     "Test User",
		Email:    username + "@example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
}

func recordTrade(t *testing.T, repo *ledger.TradeRepository, owner, ticker string, side ledger.TradeSide, qty int64) ledger.Trade {
	t.Helper()
	trade, err := repo.Record(ledger.Trade{
		Owner: owner, Ticker: ticker, Side: side, Quantity: qty,
		Price: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	return trade
}

func TestHandleGetAllTrades(t *testing.T) {
	f := setup(t)

	recordTrade(t, f.trades, "alice", "AAA", ledger.TradeSideBuy, 1)
	recordTrade(t, f.trades, "bob", "BBB", ledger.TradeSideBuy, 1)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/admin/trades", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var trades []ledger.Trade
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trades))
	assert.Len(t, trades, 2)
}

func TestHandleDeleteTrade_AnyOwner(t *testing.T) {
	f := setup(t)

	trade := recordTrade(t, f.trades, "alice", "AAA", ledger.TradeSideBuy, 1)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest("DELETE", fmt.Sprintf("/api/admin/trades/%d", trade.ID), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest("DELETE", fmt.Sprintf("/api/admin/trades/%d", trade.ID), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleUpdateTimestamp(t *testing.T) {
	f := setup(t)

	trade := recordTrade(t, f.trades, "alice", "AAA", ledger.TradeSideBuy, 1)

	body := `{"timestamp":"2026-01-02T10:00:00Z"}`
	req := httptest.NewRequest("PUT", fmt.Sprintf("/api/admin/trades/%d/timestamp", trade.ID), strings.NewReader(body))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	trades, err := f.trades.ListFor("alice")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 2026, trades[0].Timestamp.Year())

	// Missing or zero timestamp is rejected.
	req = httptest.NewRequest("PUT", fmt.Sprintf("/api/admin/trades/%d/timestamp", trade.ID), strings.NewReader(`{}`))
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDeleteUser_BlocksSelf(t *testing.T) {
	f := setup(t)
	registerUser(t, f.users, "alice")
	registerUser(t, f.users, "bob")

	req := httptest.NewRequest("DELETE", "/api/admin/users/alice", nil)
	req = req.WithContext(users.WithIdentity(req.Context(), users.Identity{Username: "alice", IsAdmin: true}))
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest("DELETE", "/api/admin/users/bob", nil)
	req = req.WithContext(users.WithIdentity(req.Context(), users.Identity{Username: "alice", IsAdmin: true}))
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleGetOversells(t *testing.T) {
	f := setup(t)
	registerUser(t, f.users, "alice")
	registerUser(t, f.users, "bob")

	// bob sells shares he never bought.
	recordTrade(t, f.trades, "alice", "AAA", ledger.TradeSideBuy, 10)
	oversell := recordTrade(t, f.trades, "bob", "AAA", ledger.TradeSideSell, 5)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest("GET", "/api/admin/oversells", nil))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reports []OversellReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "bob", reports[0].Username)
	assert.Equal(t, "AAA", reports[0].Ticker)
	assert.Equal(t, oversell.ID, reports[0].TradeID)
}
