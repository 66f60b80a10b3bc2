package strategies

import (
	"errors"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
)

// BuyAndHold goes LONG every symbol once, on the first bar it sees for it,
// and never exits.
type BuyAndHold struct {
	symbols []market.Symbol
	bought  map[market.Symbol]bool
}

func NewBuyAndHold(symbols []market.Symbol) *BuyAndHold {
	return &BuyAndHold{
		symbols: append([]market.Symbol(nil), symbols...),
		bought:  make(map[market.Symbol]bool, len(symbols)),
	}
}

func (s *BuyAndHold) Name() string { return "buy-and-hold" }

func (s *BuyAndHold) Reset() {
	clear(s.bought)
}

func (s *BuyAndHold) CalculateSignals(ev event.MarketEvent, bars market.BarProvider) ([]event.Signal, error) {
	var out []event.Signal
	for _, sym := range s.symbols {
		if s.bought[sym] {
			continue
		}
		bar, err := market.LatestBar(bars, sym)
		if errors.Is(err, market.ErrNoBars) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.bought[sym] = true
		out = append(out, event.Signal{
			StrategyID: s.Name(),
			Symbol:     sym,
			Time:       bar.Time,
			Type:       event.Long,
			Strength:   1,
		})
	}
	return out, nil
}
