package strategies

import (
	"fmt"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/indicators"
	"github.com/rustyeddy/backtester/market"
)

// MACrossConfig configures an MACross.
type MACrossConfig struct {
	Symbols []market.Symbol
	Fast    int
	Slow    int
	MA      string // sma (default) or ema
}

// MACross goes LONG when the fast moving average crosses above the slow
// one and EXITs when it crosses back below. It keeps one state machine per
// symbol so it fires only on the cross itself, not every bar while the
// averages stay crossed.
//
// The first time a symbol is seen, any bars the provider already holds
// before the current one warm the averages up without firing.
type MACross struct {
	name    string
	symbols []market.Symbol
	state   map[market.Symbol]*crossState
}

type crossState struct {
	fast indicators.Indicator
	slow indicators.Indicator
	last market.Bar

	// -1 fast below slow, 0 unknown/not ready, +1 fast above slow
	prevRel int
}

func NewMACross(cfg MACrossConfig) (*MACross, error) {
	if cfg.Fast <= 0 || cfg.Slow <= 0 {
		return nil, fmt.Errorf("ma-cross periods must be > 0, got fast=%d slow=%d", cfg.Fast, cfg.Slow)
	}
	if cfg.Fast >= cfg.Slow {
		return nil, fmt.Errorf("ma-cross requires fast < slow, got fast=%d slow=%d", cfg.Fast, cfg.Slow)
	}
	kind := cfg.MA
	if kind == "" {
		kind = "sma"
	}

	x := &MACross{
		name:    fmt.Sprintf("%s_CROSS(%d,%d)", kindLabel(kind), cfg.Fast, cfg.Slow),
		symbols: append([]market.Symbol(nil), cfg.Symbols...),
		state:   make(map[market.Symbol]*crossState, len(cfg.Symbols)),
	}
	for _, sym := range x.symbols {
		fast, err := indicators.New(kind, cfg.Fast)
		if err != nil {
			return nil, err
		}
		slow, err := indicators.New(kind, cfg.Slow)
		if err != nil {
			return nil, err
		}
		x.state[sym] = &crossState{fast: fast, slow: slow}
	}
	return x, nil
}

func kindLabel(kind string) string {
	if kind == "ema" {
		return "EMA"
	}
	return "MA"
}

func (x *MACross) Name() string { return x.name }

func (x *MACross) Reset() {
	for _, st := range x.state {
		st.fast.Reset()
		st.slow.Reset()
		st.last = market.Bar{}
		st.prevRel = 0
	}
}

func (x *MACross) CalculateSignals(ev event.MarketEvent, bars market.BarProvider) ([]event.Signal, error) {
	var out []event.Signal
	for _, sym := range x.symbols {
		bar, err := market.LatestBar(bars, sym)
		if err != nil {
			return nil, err
		}
		st := x.state[sym]
		if st.last.Time.IsZero() {
			history, err := bars.LatestBars(sym, 0)
			if err != nil {
				return nil, err
			}
			if err := st.warm(history[:len(history)-1]); err != nil {
				return nil, fmt.Errorf("%s warmup %s: %w", x.name, sym, err)
			}
		}
		// A bar is consumed once, even if the provider repeats it.
		if !st.last.Time.IsZero() && !bar.Time.After(st.last.Time) {
			continue
		}
		st.last = bar

		sig, ok := st.update(bar)
		if !ok {
			continue
		}
		sig.StrategyID = x.name
		sig.Symbol = sym
		sig.Time = bar.Time
		out = append(out, sig)
	}
	return out, nil
}

// warm brings the averages up to date with bars that predate the
// strategy. Long enough histories seed both averages in one step and set
// the baseline; shorter ones are replayed and their signals dropped.
func (st *crossState) warm(prior []market.Bar) error {
	if len(prior) < st.slow.Warmup() {
		for _, b := range prior {
			st.update(b)
		}
		return nil
	}
	if err := st.fast.Seed(prior); err != nil {
		return err
	}
	if err := st.slow.Seed(prior); err != nil {
		return err
	}
	st.prevRel = st.relation()
	return nil
}

func (st *crossState) relation() int {
	diff := st.fast.Value() - st.slow.Value()
	switch {
	case diff > 0:
		return +1
	case diff < 0:
		return -1
	}
	return 0
}

func (st *crossState) update(b market.Bar) (event.Signal, bool) {
	st.fast.Update(b)
	st.slow.Update(b)
	if !st.fast.Ready() || !st.slow.Ready() {
		return event.Signal{}, false
	}

	rel := st.relation()

	// First time ready: establish baseline relationship, don't fire.
	if st.prevRel == 0 {
		st.prevRel = rel
		return event.Signal{}, false
	}

	switch {
	case st.prevRel == -1 && rel == +1:
		st.prevRel = rel
		return event.Signal{Type: event.Long, Strength: 1}, true
	case st.prevRel == +1 && rel == -1:
		st.prevRel = rel
		return event.Signal{Type: event.Exit, Strength: 1}, true
	}
	return event.Signal{}, false
}
