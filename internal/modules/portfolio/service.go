package portfolio

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pennyleague/internal/modules/ledger"
)

// TradeSource supplies a user's trades in fold order.
type TradeSource interface {
	ListFor(owner string) ([]ledger.Trade, error)
}

// Service wires the trade ledger and the quote provider into portfolio
// computations. Stateless: every call recomputes from the ledger.
type Service struct {
	trades       TradeSource
	quote        QuoteFunc
	startingCash decimal.Decimal
	log          zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(trades TradeSource, quote QuoteFunc, startingCash decimal.Decimal, log zerolog.Logger) *Service {
	return &Service{
		trades:       trades,
		quote:        quote,
		startingCash: startingCash,
		log:          log.With().Str("service", "portfolio").Logger(),
	}
}

// GetPortfolio computes the current portfolio for one user.
func (s *Service) GetPortfolio(owner string) (Portfolio, error) {
	trades, err := s.trades.ListFor(owner)
	if err != nil {
		return Portfolio{}, fmt.Errorf("failed to load trades for %s: %w", owner, err)
	}

	p := Compute(owner, s.startingCash, trades, s.quote)

	for _, w := range p.Warnings {
		s.log.Warn().
			Str("owner", owner).
			Str("kind", string(w.Kind)).
			Str("ticker", w.Ticker).
			Msg(w.Detail)
	}

	return p, nil
}

// StartingCash exposes the configured starting balance.
func (s *Service) StartingCash() decimal.Decimal {
	return s.startingCash
}
