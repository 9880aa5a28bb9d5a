package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide represents the trade direction (BUY or SELL)
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// IsValid checks if the trade side is valid
func (ts TradeSide) IsValid() bool {
	return ts == TradeSideBuy || ts == TradeSideSell
}

// IsBuy returns true if this is a BUY trade
func (ts TradeSide) IsBuy() bool {
	return ts == TradeSideBuy
}

// IsSell returns true if this is a SELL trade
func (ts TradeSide) IsSell() bool {
	return ts == TradeSideSell
}

// TradeSideFromString creates a TradeSide from a string (case-insensitive).
// "Buy"/"Sell" spellings from CSV exports are accepted.
func TradeSideFromString(value string) (TradeSide, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "BUY":
		return TradeSideBuy, nil
	case "SELL":
		return TradeSideSell, nil
	default:
		return "", fmt.Errorf("invalid trade side: %q", value)
	}
}

// Trade is one simulated order. Immutable once recorded: the only mutations
// the ledger supports are deletion and the admin timestamp repair.
type Trade struct {
	ID        int64           `json:"id"`
	Owner     string          `json:"owner"`
	Ticker    string          `json:"ticker"`
	Side      TradeSide       `json:"side"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Validate checks trade data and normalizes the ticker. Holdings are NOT
// checked here: a SELL exceeding owned shares is recorded as submitted and
// handled downstream by the portfolio calculator.
func (t *Trade) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return fmt.Errorf("owner cannot be empty")
	}

	if strings.TrimSpace(t.Ticker) == "" {
		return fmt.Errorf("ticker cannot be empty")
	}

	if !t.Side.IsValid() {
		return fmt.Errorf("invalid trade side: %q", t.Side)
	}

	if t.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	if !t.Price.IsPositive() {
		return fmt.Errorf("price must be positive")
	}

	t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))

	return nil
}
