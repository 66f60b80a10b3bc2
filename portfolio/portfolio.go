package portfolio

import (
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
)

// Config describes the starting point of a run.
type Config struct {
	Symbols        []market.Symbol
	Start          time.Time
	InitialCapital float64
	Policy         SizingPolicy // nil means FixedLot{Lot: DefaultLot}
}

// Portfolio wires a Ledger to its three event handlers so a dispatcher
// can feed it market, signal and fill events in arrival order.
type Portfolio struct {
	ledger     *Ledger
	fills      *FillApplier
	timeIndex  *TimeIndexUpdater
	translator *Translator
}

// New creates a portfolio reading prices from bars and writing orders to
// orders.
func New(cfg Config, bars market.BarProvider, orders event.OrderSink) (*Portfolio, error) {
	if bars == nil {
		return nil, fmt.Errorf("new portfolio: nil bar provider")
	}
	l, err := NewLedger(cfg.Symbols, cfg.Start, cfg.InitialCapital)
	if err != nil {
		return nil, err
	}
	return &Portfolio{
		ledger:     l,
		fills:      NewFillApplier(l, bars),
		timeIndex:  NewTimeIndexUpdater(l, bars),
		translator: NewTranslator(l, cfg.Policy, orders),
	}, nil
}

// Ledger exposes the ledger for read access.
func (p *Portfolio) Ledger() *Ledger { return p.ledger }

// OnMarket advances the time index for a new cycle. When ev carries a
// time, the bars read from the provider must be for that time.
func (p *Portfolio) OnMarket(ev event.MarketEvent) (HoldingsSnapshot, error) {
	return p.timeIndex.advance(ev.Time)
}

// OnFill applies a fill to the live state.
func (p *Portfolio) OnFill(f event.Fill) error {
	return p.fills.ApplyFill(f)
}

// OnSignal translates a signal into at most one order.
func (p *Portfolio) OnSignal(sig event.Signal) (*event.Order, error) {
	return p.translator.Translate(sig)
}
