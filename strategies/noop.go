package strategies

import (
	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
)

// Noop does nothing.
type Noop struct{}

func (Noop) Name() string { return "noop" }
func (Noop) Reset()       {}

func (Noop) CalculateSignals(event.MarketEvent, market.BarProvider) ([]event.Signal, error) {
	return nil, nil
}
