package leaderboard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pennyleague/internal/modules/ledger"
)

type fakeLedger map[string][]ledger.Trade

func (f fakeLedger) ListFor(owner string) ([]ledger.Trade, error) {
	return f[owner], nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func staticQuote(prices map[string]string) func(string) (decimal.Decimal, error) {
	return func(ticker string) (decimal.Decimal, error) {
		return d(prices[ticker]), nil
	}
}

func TestRank_OrdersByPctReturnDescending(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	start := d("500.00")

	src := fakeLedger{
		// bob: 500 - 100 + 10*15 = 550, +10%
		"bob": {{ID: 1, Owner: "bob", Ticker: "WIN", Side: ledger.TradeSideBuy, Quantity: 10, Price: d("10.00"), Timestamp: t0}},
		// carol: 500 - 100 + 10*5 = 450, -10%
		"carol": {{ID: 2, Owner: "carol", Ticker: "LOSE", Side: ledger.TradeSideBuy, Quantity: 10, Price: d("10.00"), Timestamp: t0}},
		// alice: no trades, flat
		"alice": nil,
	}
	quote := staticQuote(map[string]string{"WIN": "15.00", "LOSE": "5.00"})

	entries, err := Rank([]string{"alice", "bob", "carol"}, src, start, quote)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "bob", entries[0].Username)
	assert.Equal(t, "alice", entries[1].Username)
	assert.Equal(t, "carol", entries[2].Username)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, 3, entries[2].Rank)

	assert.True(t, entries[0].PctReturn.Equal(d("10")), "bob pct = %s", entries[0].PctReturn)
	assert.True(t, entries[1].PctReturn.IsZero())
	assert.True(t, entries[2].PctReturn.Equal(d("-10")), "carol pct = %s", entries[2].PctReturn)
}

func TestRank_TiesBrokenByUsername(t *testing.T) {
	src := fakeLedger{}
	quote := staticQuote(nil)

	entries, err := Rank([]string{"zoe", "amy", "mia"}, src, d("500.00"), quote)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "amy", entries[0].Username)
	assert.Equal(t, "mia", entries[1].Username)
	assert.Equal(t, "zoe", entries[2].Username)
}

func TestRank_Deterministic(t *testing.T) {
	t0 := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	src := fakeLedger{
		"bob":   {{ID: 1, Owner: "bob", Ticker: "AAA", Side: ledger.TradeSideBuy, Quantity: 10, Price: d("2.00"), Timestamp: t0}},
		"alice": {{ID: 2, Owner: "alice", Ticker: "AAA", Side: ledger.TradeSideBuy, Quantity: 10, Price: d("2.00"), Timestamp: t0}},
	}
	quote := staticQuote(map[string]string{"AAA": "3.00"})
	owners := []string{"bob", "alice"}

	first, err := Rank(owners, src, d("500.00"), quote)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Rank(owners, src, d("500.00"), quote)
		require.NoError(t, err)
		require.Equal(t, len(first), len(again))
		for j := range first {
			assert.Equal(t, first[j].Username, again[j].Username)
			assert.Equal(t, first[j].Rank, again[j].Rank)
		}
	}
}

func TestRank_NoOwners(t *testing.T) {
	entries, err := Rank(nil, fakeLedger{}, d("500.00"), staticQuote(nil))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
