package yahoo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrQuoteNotFound is returned for unknown ticker symbols.
var ErrQuoteNotFound = errors.New("quote: symbol not found")

// ErrQuoteUnavailable is returned when the provider cannot be reached and no
// cached price exists.
var ErrQuoteUnavailable = errors.New("quote: provider unavailable")

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Client fetches market prices from the Yahoo Finance chart API. It keeps a
// last-known-price cache so a transient provider failure degrades to stale
// data instead of an error.
type Client struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger

	mu        sync.RWMutex
	lastKnown map[string]decimal.Decimal
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:   defaultBaseURL,
		log:       log.With().Str("client", "yahoo").Logger(),
		lastKnown: make(map[string]decimal.Decimal),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetPrice returns the current market price for a ticker. On provider
// failure a cached last-known price is returned instead; only with an empty
// cache does the call fail.
func (c *Client) GetPrice(ticker string) (decimal.Decimal, error) {
	price, err := c.fetch(ticker)
	if err == nil {
		c.mu.Lock()
		c.lastKnown[ticker] = price
		c.mu.Unlock()
		return price, nil
	}

	if errors.Is(err, ErrQuoteNotFound) {
		return decimal.Zero, err
	}

	c.mu.RLock()
	cached, ok := c.lastKnown[ticker]
	c.mu.RUnlock()
	if ok {
		c.log.Warn().Err(err).Str("ticker", ticker).Msg("Quote fetch failed, serving last-known price")
		return cached, nil
	}

	return decimal.Zero, err
}

// Prime refreshes the cache for a set of tickers. Failures are logged, not
// returned; the job runs again.
func (c *Client) Prime(tickers []string) {
	for _, ticker := range tickers {
		if _, err := c.GetPrice(ticker); err != nil {
			c.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to prime quote cache")
		}
	}
}

func (c *Client) fetch(ticker string) (decimal.Decimal, error) {
	reqURL := fmt.Sprintf("%s/%s?range=1d&interval=1d", c.baseURL, url.PathEscape(ticker))

	resp, err := c.client.Get(reqURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrQuoteNotFound, ticker)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: status %d", ErrQuoteUnavailable, resp.StatusCode)
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad response: %v", ErrQuoteUnavailable, err)
	}

	if parsed.Chart.Error != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrQuoteNotFound, parsed.Chart.Error.Code)
	}

	if len(parsed.Chart.Result) == 0 || parsed.Chart.Result[0].Meta.RegularMarketPrice == nil {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", ErrQuoteNotFound, ticker)
	}

	return decimal.NewFromFloat(*parsed.Chart.Result[0].Meta.RegularMarketPrice), nil
}
