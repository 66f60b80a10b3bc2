package market

import (
	"errors"
	"time"
)

// Symbol identifies a tradable instrument.
type Symbol string

// Bar represents one OHLC record for a symbol at a timestamp.
type Bar struct {
	Symbol Symbol
	Time   time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume float64 // optional
}

var (
	ErrNoBars        = errors.New("no bars")
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// BarProvider exposes the most recent bars for a symbol. Bars are returned
// ascending by time and never include bars after the provider's current
// position in the data. n <= 0 asks for every bar available.
type BarProvider interface {
	LatestBars(sym Symbol, n int) ([]Bar, error)
}

// LatestBar is a convenience wrapper returning the single most recent bar.
func LatestBar(p BarProvider, sym Symbol) (Bar, error) {
	bars, err := p.LatestBars(sym, 1)
	if err != nil {
		return Bar{}, err
	}
	if len(bars) == 0 {
		return Bar{}, ErrNoBars
	}
	return bars[len(bars)-1], nil
}
