// Package execution simulates a broker: it turns orders into fills.
package execution

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
)

var ErrUnsupportedOrder = errors.New("unsupported order")

// Simulated fills every market order immediately and completely at the
// close of the latest bar, moved against the order by SlippageBps. A
// zero-quantity order yields an empty fill.
type Simulated struct {
	bars        market.BarProvider
	commission  CommissionModel
	slippageBps float64
	exchange    string
}

func NewSimulated(bars market.BarProvider, commission CommissionModel, slippageBps float64) *Simulated {
	if commission == nil {
		commission = PerOrder(0)
	}
	return &Simulated{
		bars:        bars,
		commission:  commission,
		slippageBps: slippageBps,
		exchange:    "SIM",
	}
}

// Execute returns the fill for o.
func (s *Simulated) Execute(o event.Order) (event.Fill, error) {
	if o.Type != event.Market {
		return event.Fill{}, fmt.Errorf("execute %s: %w: type %q", o.ID, ErrUnsupportedOrder, o.Type)
	}
	if !o.Direction.Valid() || o.Quantity < 0 {
		return event.Fill{}, fmt.Errorf("execute %s: %w: %s", o.ID, ErrUnsupportedOrder, o)
	}

	bar, err := market.LatestBar(s.bars, o.Symbol)
	if err != nil {
		return event.Fill{}, fmt.Errorf("execute %s: %w", o.ID, err)
	}

	price := bar.Close * (1 + float64(o.Direction.Sign())*s.slippageBps/10_000)

	return event.Fill{
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Time:       bar.Time,
		Exchange:   s.exchange,
		Quantity:   o.Quantity,
		Direction:  o.Direction,
		FillPrice:  price,
		Commission: s.commission.Commission(o.Quantity, price),
	}, nil
}
