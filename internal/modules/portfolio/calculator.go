package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pennyleague/internal/modules/ledger"
)

// QuoteFunc returns the current market price for a ticker. Injected so the
// calculator stays a pure function and tests can fake the market.
type QuoteFunc func(ticker string) (decimal.Decimal, error)

type position struct {
	shares  int64
	avgCost decimal.Decimal
}

// Compute folds a user's trades into their portfolio: cash, holdings with
// weighted average cost, realized and unrealized P/L, total value and the
// value history used for charting.
//
// Trades are folded in ascending timestamp order; the order is load-bearing
// for average cost. A SELL always credits cash for the full requested
// quantity, but its P/L and share reduction are clamped to the shares
// actually held (oversells are flagged, not rejected). A failed quote zeroes
// that ticker's value contribution and is surfaced as a warning; it never
// aborts the computation.
func Compute(owner string, startingCash decimal.Decimal, trades []ledger.Trade, quote QuoteFunc) Portfolio {
	sorted := make([]ledger.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})

	cash := startingCash
	positions := make(map[string]*position)
	realized := decimal.Zero
	quotes := newQuoteCache(quote)

	var warnings []Warning
	var history []ValuePoint

	if len(sorted) > 0 {
		// Baseline point just before the first trade, at starting cash.
		history = append(history, ValuePoint{
			Timestamp:  sorted[0].Timestamp.Add(-time.Second),
			TotalValue: startingCash,
		})
	}

	for _, t := range sorted {
		qty := decimal.NewFromInt(t.Quantity)
		gross := t.Price.Mul(qty)

		switch {
		case t.Side.IsBuy():
			cash = cash.Sub(gross)

			pos := positions[t.Ticker]
			if pos == nil {
				pos = &position{avgCost: decimal.Zero}
				positions[t.Ticker] = pos
			}

			totalCost := decimal.NewFromInt(pos.shares).Mul(pos.avgCost).Add(gross)
			pos.shares += t.Quantity
			pos.avgCost = totalCost.Div(decimal.NewFromInt(pos.shares))

		case t.Side.IsSell():
			cash = cash.Add(gross)

			pos := positions[t.Ticker]
			if pos == nil {
				pos = &position{avgCost: decimal.Zero}
				positions[t.Ticker] = pos
			}

			sold := t.Quantity
			if sold > pos.shares {
				sold = pos.shares
				warnings = append(warnings, Warning{
					Kind:    WarningOversell,
					Ticker:  t.Ticker,
					TradeID: t.ID,
					Detail: fmt.Sprintf("sold %d shares with only %d held; P/L clamped to %d",
						t.Quantity, pos.shares, sold),
				})
			}

			if sold > 0 {
				realized = realized.Add(t.Price.Sub(pos.avgCost).Mul(decimal.NewFromInt(sold)))
				pos.shares -= sold
			}
			if pos.shares == 0 {
				pos.avgCost = decimal.Zero
			}
		}

		history = append(history, ValuePoint{
			Timestamp:  t.Timestamp,
			TotalValue: cash.Add(markHoldings(positions, quotes)),
		})
	}

	// Value the final holdings at current quotes.
	holdings := make(map[string]Holding)
	unrealized := decimal.Zero
	holdingsValue := decimal.Zero

	for _, ticker := range sortedTickers(positions) {
		pos := positions[ticker]
		if pos.shares <= 0 {
			continue
		}

		h := Holding{
			Ticker:      ticker,
			Shares:      pos.shares,
			AverageCost: pos.avgCost,
			MarketValue: decimal.Zero,
		}

		shares := decimal.NewFromInt(pos.shares)
		if price, ok := quotes.get(ticker); ok {
			p := price
			h.CurrentPrice = &p
			h.MarketValue = shares.Mul(price)
			unrealized = unrealized.Add(shares.Mul(price.Sub(pos.avgCost)))
			holdingsValue = holdingsValue.Add(h.MarketValue)
		} else {
			warnings = append(warnings, Warning{
				Kind:   WarningQuoteUnavailable,
				Ticker: ticker,
				Detail: "no current price; holding valued at zero",
			})
		}

		holdings[ticker] = h
	}

	totalValue := cash.Add(holdingsValue)

	return Portfolio{
		Owner:         owner,
		Cash:          cash,
		Holdings:      holdings,
		RealizedPL:    realized,
		UnrealizedPL:  unrealized,
		HoldingsValue: holdingsValue,
		TotalValue:    totalValue,
		PctReturn:     pctReturn(totalValue, startingCash),
		History:       history,
		Warnings:      warnings,
	}
}

// pctReturn is the percentage return on starting cash, in percentage points.
func pctReturn(totalValue, startingCash decimal.Decimal) decimal.Decimal {
	if !startingCash.IsPositive() {
		return decimal.Zero
	}
	return totalValue.Sub(startingCash).Div(startingCash).Mul(decimal.NewFromInt(100))
}

// markHoldings values all open positions at current quotes. Tickers without
// a quote contribute zero, matching the final valuation rule.
func markHoldings(positions map[string]*position, quotes *quoteCache) decimal.Decimal {
	value := decimal.Zero
	for ticker, pos := range positions {
		if pos.shares <= 0 {
			continue
		}
		if price, ok := quotes.get(ticker); ok {
			value = value.Add(decimal.NewFromInt(pos.shares).Mul(price))
		}
	}
	return value
}

func sortedTickers(positions map[string]*position) []string {
	tickers := make([]string, 0, len(positions))
	for t := range positions {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// quoteCache memoizes the quote function so each ticker is fetched at most
// once per computation.
type quoteCache struct {
	fetch  QuoteFunc
	prices map[string]decimal.Decimal
	failed map[string]bool
}

func newQuoteCache(fetch QuoteFunc) *quoteCache {
	return &quoteCache{
		fetch:  fetch,
		prices: make(map[string]decimal.Decimal),
		failed: make(map[string]bool),
	}
}

func (c *quoteCache) get(ticker string) (decimal.Decimal, bool) {
	if price, ok := c.prices[ticker]; ok {
		return price, true
	}
	if c.failed[ticker] {
		return decimal.Zero, false
	}

	price, err := c.fetch(ticker)
	if err != nil {
		c.failed[ticker] = true
		return decimal.Zero, false
	}

	c.prices[ticker] = price
	return price, true
}
