// Package performance summarises a holdings history: total return, Sharpe
// ratio and drawdowns.
package performance

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/backtester/portfolio"
)

// TradingDays is the default number of periods per year for daily bars.
const TradingDays = 252

// Summary holds the statistics of one run.
type Summary struct {
	Cycles        int
	InitialEquity float64
	FinalEquity   float64
	TotalReturn   float64 // final equity curve value, 0.05 = 5%

	MeanReturn float64
	StdDev     float64
	Sharpe     float64 // annualised, risk-free rate 0

	MaxDrawdown      float64 // fraction of the peak, 0.25 = 25%
	DrawdownDuration int     // longest stretch of cycles spent below a peak
	Drawdowns        []float64
}

// Summarize computes a Summary over history. periods is the number of
// cycles per year used to annualise the Sharpe ratio; values <= 0 mean
// TradingDays.
func Summarize(history []portfolio.HoldingsSnapshot, periods int) Summary {
	var s Summary
	if len(history) == 0 {
		return s
	}
	if periods <= 0 {
		periods = TradingDays
	}

	s.Cycles = len(history)
	s.InitialEquity = history[0].TotalHoldings
	s.FinalEquity = history[len(history)-1].TotalHoldings
	s.TotalReturn = history[len(history)-1].EquityCurve

	returns := make([]float64, 0, len(history)-1)
	for _, h := range history[1:] {
		returns = append(returns, h.Returns)
	}
	s.MeanReturn, s.StdDev, s.Sharpe = Sharpe(returns, periods)

	equity := make([]float64, len(history))
	for i, h := range history {
		equity[i] = h.TotalHoldings
	}
	s.Drawdowns, s.MaxDrawdown, s.DrawdownDuration = Drawdowns(equity)
	return s
}

// Sharpe returns the mean and sample standard deviation of returns and
// the annualised Sharpe ratio. The ratio is 0 with fewer than two returns
// or no variance.
func Sharpe(returns []float64, periods int) (mean, stddev, sharpe float64) {
	if len(returns) == 0 {
		return 0, 0, 0
	}
	mean = stat.Mean(returns, nil)
	if len(returns) < 2 {
		return mean, 0, 0
	}
	stddev = stat.StdDev(returns, nil)
	if stddev == 0 || math.IsNaN(stddev) {
		return mean, 0, 0
	}
	return mean, stddev, math.Sqrt(float64(periods)) * mean / stddev
}

// Drawdowns returns the drawdown from the running high-water mark at every
// point of equity, the deepest drawdown and the longest run of points
// spent below a high-water mark.
func Drawdowns(equity []float64) (series []float64, maxDD float64, duration int) {
	series = make([]float64, len(equity))
	if len(equity) == 0 {
		return series, 0, 0
	}

	peak := equity[0]
	run := 0
	for i, v := range equity {
		if v >= peak {
			peak = v
			run = 0
			continue
		}
		run++
		if run > duration {
			duration = run
		}
		if peak > 0 {
			series[i] = (peak - v) / peak
		}
		if series[i] > maxDD {
			maxDD = series[i]
		}
	}
	return series, maxDD, duration
}
