package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
)

func TestSingleEntryHasZeroReturns(t *testing.T) {
	l := newLedger(t, 100000)
	h := l.Holdings()
	require.Len(t, h, 1)
	assert.Equal(t, 0.0, h[0].Returns)
	assert.Equal(t, 0.0, h[0].EquityCurve)
}

func TestAdvanceMarksToMarket(t *testing.T) {
	l := newLedger(t, 100000)
	bars := market.NewBarStore()
	a := NewFillApplier(l, bars)
	u := NewTimeIndexUpdater(l, bars)

	pushCycle(t, bars, day(1), map[market.Symbol]float64{aapl: 50, msft: 300})
	require.NoError(t, a.ApplyFill(fill(aapl, event.Buy, 10, 1)))
	require.NoError(t, a.ApplyFill(fill(msft, event.Sell, 2, 1)))

	snap, err := u.Advance()
	require.NoError(t, err)

	assert.Equal(t, day(1), snap.Time)
	assert.Equal(t, map[market.Symbol]float64{aapl: 500, msft: -600}, snap.Values)
	assert.Equal(t, 100000.0-500-1+600-1, snap.HeldCash)
	assert.Equal(t, 2.0, snap.Commission)
	assert.Equal(t, snap.HeldCash+500-600, snap.TotalHoldings)
	assert.Equal(t, 99998.0, snap.TotalHoldings)

	wantRet := 99998.0/100000.0 - 1
	assert.InDelta(t, wantRet, snap.Returns, 1e-12)
	assert.InDelta(t, wantRet, snap.EquityCurve, 1e-12)

	pos := l.Positions()
	require.Len(t, pos, 2)
	assert.Equal(t, day(1), pos[1].Time)
	assert.Equal(t, map[market.Symbol]int64{aapl: 10, msft: -2}, pos[1].Positions)

	qty, at, ok := l.LatestPosition(msft)
	require.True(t, ok)
	assert.Equal(t, int64(-2), qty)
	assert.Equal(t, day(1), at)
}

func TestAdvanceEquityCurveCompounds(t *testing.T) {
	l := newLedger(t, 100000, aapl)
	bars := market.NewBarStore()
	a := NewFillApplier(l, bars)
	u := NewTimeIndexUpdater(l, bars)

	closes := []float64{100, 110, 99, 120, 120, 80}
	for i, c := range closes {
		pushCycle(t, bars, day(i+1), map[market.Symbol]float64{aapl: c})
		if i == 0 {
			require.NoError(t, a.ApplyFill(fill(aapl, event.Buy, 500, 5)))
		}
		if i == 3 {
			require.NoError(t, a.ApplyFill(fill(aapl, event.Sell, 200, 5)))
		}
		_, err := u.Advance()
		require.NoError(t, err)
	}

	h := l.Holdings()
	require.Len(t, h, len(closes)+1)
	assert.Equal(t, 0.0, h[0].EquityCurve)

	for i := 1; i < len(h); i++ {
		want := (h[i-1].EquityCurve+1)*(1+h[i].Returns) - 1
		assert.InDelta(t, want, h[i].EquityCurve, 1e-12, "t=%d", i)
		assert.InDelta(t, h[i].TotalHoldings/h[i-1].TotalHoldings-1, h[i].Returns, 1e-12, "t=%d", i)

		var sum float64
		for _, v := range h[i].Values {
			sum += v
		}
		assert.InDelta(t, h[i].HeldCash+sum, h[i].TotalHoldings, 1e-9, "t=%d", i)
	}

	// Compounded, not additive: the curve equals total growth since start.
	last := h[len(h)-1]
	assert.InDelta(t, last.TotalHoldings/100000-1, last.EquityCurve, 1e-9)
}

func TestAdvanceRejectsSkewedTimestamps(t *testing.T) {
	l := newLedger(t, 100000)
	bars := market.NewBarStore()
	require.NoError(t, bars.Push(market.Bar{Symbol: aapl, Time: day(1), Close: 50}))
	require.NoError(t, bars.Push(market.Bar{Symbol: msft, Time: day(2), Close: 300}))

	_, err := NewTimeIndexUpdater(l, bars).Advance()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimestampSkew)
	assert.Equal(t, 1, l.Len())
	assert.Len(t, l.Positions(), 1)
}

func TestAdvanceRejectsStaleTimestamp(t *testing.T) {
	l := newLedger(t, 100000)
	bars := market.NewBarStore()
	u := NewTimeIndexUpdater(l, bars)

	// A bar at the start date would overwrite the initial entry.
	pushCycle(t, bars, t0, map[market.Symbol]float64{aapl: 50, msft: 300})
	_, err := u.Advance()
	assert.ErrorIs(t, err, ErrStaleTimestamp)

	pushCycle(t, bars, day(1), map[market.Symbol]float64{aapl: 51, msft: 301})
	_, err = u.Advance()
	require.NoError(t, err)

	// Same cycle twice: nothing new was published.
	_, err = u.Advance()
	assert.ErrorIs(t, err, ErrStaleTimestamp)
	assert.Equal(t, 2, l.Len())
}

func TestAdvanceMissingMarketData(t *testing.T) {
	l := newLedger(t, 100000)
	bars := market.NewBarStore()
	require.NoError(t, bars.Push(market.Bar{Symbol: aapl, Time: day(1), Close: 50}))

	_, err := NewTimeIndexUpdater(l, bars).Advance()
	assert.ErrorIs(t, err, ErrMissingMarketData)
	assert.ErrorIs(t, err, market.ErrNoBars)
	assert.Equal(t, 1, l.Len())
}

func TestAdvanceHistoryIsImmutable(t *testing.T) {
	l := newLedger(t, 100000, aapl)
	bars := market.NewBarStore()
	a := NewFillApplier(l, bars)
	u := NewTimeIndexUpdater(l, bars)

	pushCycle(t, bars, day(1), map[market.Symbol]float64{aapl: 10})
	require.NoError(t, a.ApplyFill(fill(aapl, event.Buy, 100, 0)))
	snap, err := u.Advance()
	require.NoError(t, err)

	snap.Values[aapl] = -1
	before := l.Holdings()

	pushCycle(t, bars, day(2), map[market.Symbol]float64{aapl: 12})
	require.NoError(t, a.ApplyFill(fill(aapl, event.Sell, 100, 0)))
	_, err = u.Advance()
	require.NoError(t, err)

	after := l.Holdings()
	require.Len(t, after, 3)
	assert.Equal(t, before, after[:2])
	assert.Equal(t, 1000.0, after[1].Values[aapl])
	assert.Equal(t, 0.0, after[2].Values[aapl])
}

func TestAdvanceZeroPreviousTotal(t *testing.T) {
	l := newLedger(t, 1000, aapl)
	bars := market.NewBarStore()
	a := NewFillApplier(l, bars)
	u := NewTimeIndexUpdater(l, bars)

	// Spend exactly all cash, then the price goes to zero.
	pushCycle(t, bars, day(1), map[market.Symbol]float64{aapl: 10})
	require.NoError(t, a.ApplyFill(fill(aapl, event.Buy, 100, 0)))
	pushCycle(t, bars, day(2), map[market.Symbol]float64{aapl: 0})
	_, err := u.Advance()
	require.NoError(t, err)

	pushCycle(t, bars, day(3), map[market.Symbol]float64{aapl: 5})
	snap, err := u.Advance()
	require.NoError(t, err)
	assert.Equal(t, 500.0, snap.TotalHoldings)
	assert.Equal(t, 0.0, snap.Returns)
	assert.Equal(t, -1.0, snap.EquityCurve)
}
