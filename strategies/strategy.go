// Package strategies turns market data into signals.
package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
)

// Strategy is the minimal interface a backtest strategy must implement.
// CalculateSignals is called once per market event, after the feed has
// published the bars for that event.
type Strategy interface {
	Name() string
	Reset()
	CalculateSignals(ev event.MarketEvent, bars market.BarProvider) ([]event.Signal, error)
}

// Params carries the configurable knobs shared by the built-in strategies.
type Params struct {
	Symbols []market.Symbol
	Fast    int
	Slow    int
	MA      string // sma or ema
}

// Factory builds a strategy from Params.
type Factory func(p Params) (Strategy, error)

var registry = make(map[string]Factory)

func init() {
	Register("noop", func(Params) (Strategy, error) { return Noop{}, nil })
	Register("buy-and-hold", func(p Params) (Strategy, error) { return NewBuyAndHold(p.Symbols), nil })
	Register("ma-cross", func(p Params) (Strategy, error) {
		return NewMACross(MACrossConfig{Symbols: p.Symbols, Fast: p.Fast, Slow: p.Slow, MA: p.MA})
	})
}

// Register adds or replaces a factory under name.
func Register(name string, f Factory) {
	registry[normalize(name)] = f
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ByName builds the registered strategy called name.
func ByName(name string, p Params) (Strategy, error) {
	f, ok := registry[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(p)
}

func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "buyandhold", "buy-hold":
		return "buy-and-hold"
	case "macross", "sma-cross", "ma_cross":
		return "ma-cross"
	case "none":
		return "noop"
	}
	return n
}
