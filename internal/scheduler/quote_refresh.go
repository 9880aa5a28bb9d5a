package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"
)

// TickerSource lists every ticker present in the trade ledger.
type TickerSource interface {
	DistinctTickers() ([]string, error)
}

// QuotePrimer refreshes cached prices for a set of tickers.
type QuotePrimer interface {
	Prime(tickers []string)
}

// QuoteRefreshJob pre-warms the quote cache for every traded ticker, so
// portfolio and leaderboard views have a last-known price even when the
// provider is flaky at request time.
type QuoteRefreshJob struct {
	tickers TickerSource
	quotes  QuotePrimer
	log     zerolog.Logger
}

// NewQuoteRefreshJob creates the quote cache refresh job
func NewQuoteRefreshJob(tickers TickerSource, quotes QuotePrimer, log zerolog.Logger) *QuoteRefreshJob {
	return &QuoteRefreshJob{
		tickers: tickers,
		quotes:  quotes,
		log:     log.With().Str("job", "quote_refresh").Logger(),
	}
}

// Name implements Job
func (j *QuoteRefreshJob) Name() string {
	return "quote_refresh"
}

// Run implements Job
func (j *QuoteRefreshJob) Run() error {
	tickers, err := j.tickers.DistinctTickers()
	if err != nil {
		return fmt.Errorf("failed to list tickers: %w", err)
	}

	if len(tickers) == 0 {
		return nil
	}

	j.quotes.Prime(tickers)
	j.log.Debug().Int("tickers", len(tickers)).Msg("Quote cache refreshed")

	return nil
}
