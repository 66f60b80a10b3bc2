// Package portfolio keeps the position and holdings ledger of a backtest
// run and turns strategy signals into orders.
//
// A Ledger has one mutable LiveState and two append-only histories: the
// per-cycle positions and the per-cycle holdings snapshots. Only
// FillApplier (live state) and TimeIndexUpdater (history) write to it.
// Nothing in this package is safe for concurrent use; each run owns its
// own Ledger.
package portfolio

import (
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/rustyeddy/backtester/market"
)

// LiveState is the current, not yet snapshotted, account state.
type LiveState struct {
	Positions map[market.Symbol]int64

	// Holdings is the cost-basis contribution of each symbol: the signed
	// sum of fill quantities valued at the close when they were applied.
	Holdings map[market.Symbol]float64

	HeldCash   float64
	Commission float64 // cumulative

	// TotalHoldings moves with HeldCash on fills; positions are marked to
	// market only when a snapshot is taken.
	TotalHoldings float64
}

func (s LiveState) clone() LiveState {
	s.Positions = maps.Clone(s.Positions)
	s.Holdings = maps.Clone(s.Holdings)
	return s
}

// HoldingsSnapshot values the portfolio at the close of one cycle.
type HoldingsSnapshot struct {
	Time          time.Time
	Values        map[market.Symbol]float64 // position * close
	HeldCash      float64
	Commission    float64
	TotalHoldings float64
	Returns       float64 // period return vs. the previous snapshot
	EquityCurve   float64 // compounded return since the first snapshot
}

func (h HoldingsSnapshot) clone() HoldingsSnapshot {
	h.Values = maps.Clone(h.Values)
	return h
}

// PositionsEntry records every symbol's position at the close of a cycle.
type PositionsEntry struct {
	Time      time.Time
	Positions map[market.Symbol]int64
}

func (p PositionsEntry) clone() PositionsEntry {
	p.Positions = maps.Clone(p.Positions)
	return p
}

type Ledger struct {
	symbols        []market.Symbol
	start          time.Time
	initialCapital float64

	live      LiveState
	positions []PositionsEntry
	holdings  []HoldingsSnapshot

	// latest maps a symbol to the index of its most recent entry in
	// positions so lookups never scan the history.
	latest map[market.Symbol]int
}

// NewLedger creates the live state and the single-entry histories for a
// run starting at start with initialCapital in cash and no positions.
func NewLedger(symbols []market.Symbol, start time.Time, initialCapital float64) (*Ledger, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("new ledger: empty symbol universe")
	}
	if initialCapital <= 0 || math.IsNaN(initialCapital) || math.IsInf(initialCapital, 0) {
		return nil, fmt.Errorf("new ledger: initial capital must be positive, got %v", initialCapital)
	}

	l := &Ledger{
		symbols:        make([]market.Symbol, 0, len(symbols)),
		start:          start,
		initialCapital: initialCapital,
		latest:         make(map[market.Symbol]int, len(symbols)),
		live: LiveState{
			Positions:     make(map[market.Symbol]int64, len(symbols)),
			Holdings:      make(map[market.Symbol]float64, len(symbols)),
			HeldCash:      initialCapital,
			TotalHoldings: initialCapital,
		},
	}

	first := PositionsEntry{Time: start, Positions: make(map[market.Symbol]int64, len(symbols))}
	snap := HoldingsSnapshot{
		Time:          start,
		Values:        make(map[market.Symbol]float64, len(symbols)),
		HeldCash:      initialCapital,
		TotalHoldings: initialCapital,
	}
	for _, sym := range symbols {
		if _, dup := l.live.Positions[sym]; dup {
			return nil, fmt.Errorf("new ledger: duplicate symbol %q", sym)
		}
		l.symbols = append(l.symbols, sym)
		l.live.Positions[sym] = 0
		l.live.Holdings[sym] = 0
		first.Positions[sym] = 0
		snap.Values[sym] = 0
		l.latest[sym] = 0
	}
	l.positions = []PositionsEntry{first}
	l.holdings = []HoldingsSnapshot{snap}

	return l, nil
}

// Symbols returns the universe in the order it was configured.
func (l *Ledger) Symbols() []market.Symbol { return append([]market.Symbol(nil), l.symbols...) }

func (l *Ledger) Start() time.Time { return l.start }

func (l *Ledger) InitialCapital() float64 { return l.initialCapital }

// Has reports whether sym belongs to the ledger's universe.
func (l *Ledger) Has(sym market.Symbol) bool {
	_, ok := l.live.Positions[sym]
	return ok
}

// Live returns a copy of the live state.
func (l *Ledger) Live() LiveState { return l.live.clone() }

// Position returns the live position in sym (0 for unknown symbols).
func (l *Ledger) Position(sym market.Symbol) int64 { return l.live.Positions[sym] }

// Len returns the number of history entries, including the initial one.
func (l *Ledger) Len() int { return len(l.holdings) }

// Latest returns the most recent holdings snapshot.
func (l *Ledger) Latest() HoldingsSnapshot { return l.holdings[len(l.holdings)-1].clone() }

// Holdings returns the full holdings history ordered by time.
func (l *Ledger) Holdings() []HoldingsSnapshot {
	out := make([]HoldingsSnapshot, len(l.holdings))
	for i, h := range l.holdings {
		out[i] = h.clone()
	}
	return out
}

// Positions returns the full positions history ordered by time.
func (l *Ledger) Positions() []PositionsEntry {
	out := make([]PositionsEntry, len(l.positions))
	for i, p := range l.positions {
		out[i] = p.clone()
	}
	return out
}

// LatestPositions returns the most recent positions entry.
func (l *Ledger) LatestPositions() PositionsEntry { return l.positions[len(l.positions)-1].clone() }

// LatestPosition returns the last recorded (snapshotted) position of sym
// and the time it was recorded.
func (l *Ledger) LatestPosition(sym market.Symbol) (qty int64, at time.Time, ok bool) {
	i, ok := l.latest[sym]
	if !ok {
		return 0, time.Time{}, false
	}
	e := l.positions[i]
	return e.Positions[sym], e.Time, true
}

// applyFill is the only writer of live state.
func (l *Ledger) applyFill(sym market.Symbol, delta int64, cost, commission float64) {
	l.live.Positions[sym] += delta
	l.live.Holdings[sym] += cost
	l.live.Commission += commission
	l.live.HeldCash -= cost + commission
	l.live.TotalHoldings -= cost + commission
}

// appendCycle is the only writer of history. values and positions are
// owned by the ledger after the call.
func (l *Ledger) appendCycle(t time.Time, positions map[market.Symbol]int64, values map[market.Symbol]float64, marketValue float64) HoldingsSnapshot {
	prev := l.holdings[len(l.holdings)-1]

	snap := HoldingsSnapshot{
		Time:          t,
		Values:        values,
		HeldCash:      l.live.HeldCash,
		Commission:    l.live.Commission,
		TotalHoldings: l.live.HeldCash + marketValue,
	}

	l.positions = append(l.positions, PositionsEntry{Time: t, Positions: positions})
	l.holdings = append(l.holdings, snap)
	idx := len(l.positions) - 1
	for sym := range positions {
		l.latest[sym] = idx
	}

	if len(l.holdings) >= 2 {
		snap.Returns = periodReturn(prev.TotalHoldings, snap.TotalHoldings)
		snap.EquityCurve = (prev.EquityCurve+1)*(1+snap.Returns) - 1
		l.holdings[len(l.holdings)-1] = snap
	}
	return snap.clone()
}

// periodReturn is 0 when the previous total is 0 so the curve stays finite.
func periodReturn(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return cur/prev - 1
}
