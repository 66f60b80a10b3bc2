// Package indicators provides technical analysis indicators over bar
// closes.
package indicators

import "github.com/rustyeddy/backtester/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in replay and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	// Seed replaces the state with the one Update would reach after
	// consuming history. It needs at least Warmup() bars.
	Seed(history []market.Bar) error

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 before Ready().
	Value() float64
}

// New returns a streaming indicator by kind ("sma" or "ema").
func New(kind string, period int) (Indicator, error) {
	if period <= 0 {
		return nil, errPeriod(period)
	}
	switch kind {
	case "sma", "ma", "":
		return NewMA(period), nil
	case "ema":
		return NewEMA(period), nil
	default:
		return nil, errKind(kind)
	}
}
