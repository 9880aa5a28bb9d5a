package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

var importColumns = []string{"timestamp", "ticker", "action", "shares", "price"}

// ImportCSV reads trades from a CSV export and records them for owner.
// Expected header: timestamp,ticker,action,shares,price (any order,
// case-insensitive). Invalid rows are skipped and reported, valid rows are
// recorded; the whole import fails only on malformed CSV or a missing column.
func (r *TradeRepository) ImportCSV(owner string, reader io.Reader) (ImportResult, error) {
	cr := csv.NewReader(reader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range importColumns {
		if _, ok := idx[col]; !ok {
			return ImportResult{}, fmt.Errorf("CSV is missing required column %q", col)
		}
	}

	var result ImportResult
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("failed to read CSV row: %w", err)
		}
		line++

		trade, err := parseImportRow(owner, record, idx)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if _, err := r.Record(trade); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.Imported++
	}

	r.log.Info().
		Str("owner", owner).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("CSV import finished")

	return result, nil
}

func parseImportRow(owner string, record []string, idx map[string]int) (Trade, error) {
	field := func(name string) string {
		i := idx[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ts, err := parseTimestamp(field("timestamp"))
	if err != nil {
		return Trade{}, fmt.Errorf("bad timestamp %q", field("timestamp"))
	}

	side, err := TradeSideFromString(field("action"))
	if err != nil {
		return Trade{}, err
	}

	quantity, err := strconv.ParseInt(field("shares"), 10, 64)
	if err != nil {
		return Trade{}, fmt.Errorf("bad share count %q", field("shares"))
	}

	price, err := decimal.NewFromString(field("price"))
	if err != nil {
		return Trade{}, fmt.Errorf("bad price %q", field("price"))
	}

	return Trade{
		Owner:     owner,
		Ticker:    field("ticker"),
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		Timestamp: ts.UTC(),
	}, nil
}
