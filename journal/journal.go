// Package journal persists backtest runs: run metadata, the holdings and
// positions history, orders and fills.
package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
)

// Run describes one backtest and its headline results.
type Run struct {
	RunID    string
	Created  time.Time
	Strategy string
	Symbols  []market.Symbol
	Dataset  string
	Config   []byte // run config as written to disk

	Start time.Time
	End   time.Time

	InitialCapital   float64
	FinalEquity      float64
	TotalReturn      float64
	Sharpe           float64
	MaxDrawdown      float64
	DrawdownDuration int
	Commission       float64

	Cycles int
	Orders int
	Fills  int

	Notes []string
}

type Journal interface {
	RecordRun(Run) error
	RecordHoldings(runID string, h portfolio.HoldingsSnapshot) error
	RecordPositions(runID string, p portfolio.PositionsEntry) error
	RecordOrder(runID string, o event.Order) error
	RecordFill(runID string, f event.Fill) error
	Close() error
}

// Discard is a Journal that records nothing.
type Discard struct{}

func (Discard) RecordRun(Run) error                                    { return nil }
func (Discard) RecordHoldings(string, portfolio.HoldingsSnapshot) error { return nil }
func (Discard) RecordPositions(string, portfolio.PositionsEntry) error  { return nil }
func (Discard) RecordOrder(string, event.Order) error                   { return nil }
func (Discard) RecordFill(string, event.Fill) error                     { return nil }
func (Discard) Close() error                                            { return nil }

// Open returns the journal for driver: "sqlite" (path is the database
// file), "csv" (path is a directory) or "none".
func Open(driver, path string, symbols []market.Symbol) (Journal, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "none", "off":
		return Discard{}, nil
	case "sqlite", "sqlite3":
		return NewSQLite(path)
	case "csv":
		return NewCSV(path, symbols)
	default:
		return nil, fmt.Errorf("unknown journal driver %q (supported: sqlite, csv, none)", driver)
	}
}

func joinSymbols(symbols []market.Symbol) string {
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func splitSymbols(s string) []market.Symbol {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]market.Symbol, len(parts))
	for i, p := range parts {
		out[i] = market.Symbol(p)
	}
	return out
}
