package portfolio

import (
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// TimeIndexUpdater appends one positions entry and one holdings snapshot
// to the ledger per bar-close cycle.
type TimeIndexUpdater struct {
	ledger *Ledger
	bars   market.BarProvider
}

func NewTimeIndexUpdater(l *Ledger, bars market.BarProvider) *TimeIndexUpdater {
	return &TimeIndexUpdater{ledger: l, bars: bars}
}

// Advance marks every live position to the close of its symbol's latest
// bar and appends the result to the ledger history.
//
// All symbols' latest bars must carry the same timestamp, and that
// timestamp must be after the last history entry. A cycle that breaks
// either rule, or lacks a bar for any symbol, fails without touching the
// history.
func (u *TimeIndexUpdater) Advance() (HoldingsSnapshot, error) {
	return u.advance(time.Time{})
}

// advance is Advance with an optional expected cycle time.
func (u *TimeIndexUpdater) advance(expect time.Time) (HoldingsSnapshot, error) {
	l := u.ledger

	var (
		cycle     time.Time
		first     market.Symbol
		sum       float64
		positions = make(map[market.Symbol]int64, len(l.symbols))
		values    = make(map[market.Symbol]float64, len(l.symbols))
	)

	for i, sym := range l.symbols {
		bar, err := market.LatestBar(u.bars, sym)
		if err != nil {
			return HoldingsSnapshot{}, fmt.Errorf("advance %s: %w: %w", sym, ErrMissingMarketData, err)
		}

		if i == 0 {
			cycle, first = bar.Time, sym
		} else if !bar.Time.Equal(cycle) {
			return HoldingsSnapshot{}, fmt.Errorf("advance: %w: %s at %s, %s at %s",
				ErrTimestampSkew, first, cycle.Format(time.RFC3339), sym, bar.Time.Format(time.RFC3339))
		}

		qty := l.live.Positions[sym]
		mv := float64(qty) * bar.Close
		positions[sym] = qty
		values[sym] = mv
		sum += mv
	}

	if !expect.IsZero() && !cycle.Equal(expect) {
		return HoldingsSnapshot{}, fmt.Errorf("advance: %w: cycle at %s, bars at %s",
			ErrTimestampSkew, expect.Format(time.RFC3339), cycle.Format(time.RFC3339))
	}

	last := l.holdings[len(l.holdings)-1].Time
	if !cycle.After(last) {
		return HoldingsSnapshot{}, fmt.Errorf("advance: %w: %s <= %s",
			ErrStaleTimestamp, cycle.Format(time.RFC3339), last.Format(time.RFC3339))
	}

	return l.appendCycle(cycle, positions, values, sum), nil
}
