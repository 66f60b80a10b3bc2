package portfolio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
)

const (
	aapl market.Symbol = "AAPL"
	msft market.Symbol = "MSFT"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return t0.AddDate(0, 0, n) }

func newLedger(t *testing.T, capital float64, syms ...market.Symbol) *Ledger {
	t.Helper()
	if len(syms) == 0 {
		syms = []market.Symbol{aapl, msft}
	}
	l, err := NewLedger(syms, t0, capital)
	require.NoError(t, err)
	return l
}

// pushCycle publishes one bar per symbol at the same time.
func pushCycle(t *testing.T, s *market.BarStore, at time.Time, closes map[market.Symbol]float64) {
	t.Helper()
	for sym, c := range closes {
		require.NoError(t, s.Push(market.Bar{Symbol: sym, Time: at, Open: c, High: c, Low: c, Close: c}))
	}
}

func fill(sym market.Symbol, dir event.Direction, qty int64, commission float64) event.Fill {
	return event.Fill{Symbol: sym, Direction: dir, Quantity: qty, Commission: commission}
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}
