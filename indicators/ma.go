package indicators

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/backtester/market"
)

func errPeriod(period int) error {
	return fmt.Errorf("period must be positive, got %d", period)
}

func errKind(kind string) error {
	return fmt.Errorf("unknown indicator %q (supported: sma, ema)", kind)
}

func closesOf(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// MA calculates the Simple Moving Average of the last period closes.
func MA(bars []market.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, errPeriod(period)
	}
	if len(bars) < period {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period, len(bars))
	}

	out := talib.Sma(closesOf(bars[len(bars)-period:]), period)
	return out[len(out)-1], nil
}

// EMA calculates the Exponential Moving Average over all bars, seeded with
// the SMA of the first period closes.
func EMA(bars []market.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, errPeriod(period)
	}
	if len(bars) < period {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period, len(bars))
	}

	out := talib.Ema(closesOf(bars), period)
	return out[len(out)-1], nil
}
