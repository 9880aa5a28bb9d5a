package portfolio

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is the derived position in one ticker. Never persisted: recomputed
// from the trade ledger on every read, so it cannot drift from history.
type Holding struct {
	Ticker       string           `json:"ticker"`
	Shares       int64            `json:"shares"`
	AverageCost  decimal.Decimal  `json:"average_cost"`
	CurrentPrice *decimal.Decimal `json:"current_price,omitempty"` // nil when the quote failed
	MarketValue  decimal.Decimal  `json:"market_value"`
}

// ValuePoint is one sample of the portfolio's total value over time, taken
// after each trade at current market prices.
type ValuePoint struct {
	Timestamp  time.Time       `json:"timestamp"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// WarningKind classifies non-fatal conditions found while computing.
type WarningKind string

const (
	// WarningOversell flags a SELL whose quantity exceeded held shares.
	// The trade is still folded with the clamp policy; this is a
	// data-integrity signal for admins, not a failure.
	WarningOversell WarningKind = "oversell"

	// WarningQuoteUnavailable flags a held ticker whose current price could
	// not be fetched; its value contribution is zero.
	WarningQuoteUnavailable WarningKind = "quote_unavailable"
)

// Warning is a non-fatal condition attached to a computed portfolio.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Ticker  string      `json:"ticker"`
	TradeID int64       `json:"trade_id,omitempty"`
	Detail  string      `json:"detail"`
}

// Portfolio is the full derived state for one user: a pure function of their
// trade sequence plus current quotes.
type Portfolio struct {
	Owner         string             `json:"owner"`
	Cash          decimal.Decimal    `json:"cash"`
	Holdings      map[string]Holding `json:"holdings"`
	RealizedPL    decimal.Decimal    `json:"realized_pl"`
	UnrealizedPL  decimal.Decimal    `json:"unrealized_pl"`
	HoldingsValue decimal.Decimal    `json:"holdings_value"`
	TotalValue    decimal.Decimal    `json:"total_value"`
	PctReturn     decimal.Decimal    `json:"pct_return"`
	History       []ValuePoint       `json:"history,omitempty"`
	Warnings      []Warning          `json:"warnings,omitempty"`
}
