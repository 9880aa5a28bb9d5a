package leaderboard

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"pennyleague/internal/modules/portfolio"
)

// Entry is one leaderboard row.
type Entry struct {
	Rank       int             `json:"rank"`
	Username   string          `json:"username"`
	TotalValue decimal.Decimal `json:"total_value"`
	PctReturn  decimal.Decimal `json:"pct_return"`
}

// Rank computes every owner's portfolio independently and orders them by
// percentage return, descending, ties broken by username ascending. The
// ordering is total and deterministic: ranking an unchanged ledger twice
// yields identical sequences. Owners with no trades rank flat at starting
// cash.
func Rank(owners []string, src portfolio.TradeSource, startingCash decimal.Decimal, quote portfolio.QuoteFunc) ([]Entry, error) {
	entries := make([]Entry, 0, len(owners))

	for _, owner := range owners {
		trades, err := src.ListFor(owner)
		if err != nil {
			return nil, fmt.Errorf("failed to load trades for %s: %w", owner, err)
		}

		p := portfolio.Compute(owner, startingCash, trades, quote)
		entries = append(entries, Entry{
			Username:   owner,
			TotalValue: p.TotalValue,
			PctReturn:  p.PctReturn,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].PctReturn.Cmp(entries[j].PctReturn); c != 0 {
			return c > 0
		}
		return entries[i].Username < entries[j].Username
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries, nil
}
