package portfolio

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
)

// FillApplier updates the ledger's live state from fill confirmations.
type FillApplier struct {
	ledger *Ledger
	bars   market.BarProvider
}

func NewFillApplier(l *Ledger, bars market.BarProvider) *FillApplier {
	return &FillApplier{ledger: l, bars: bars}
}

// ApplyFill moves the position by the signed quantity and debits cash by
// cost plus commission.
//
// The fill is valued at the close of the latest bar for its symbol, not at
// f.FillPrice: the ledger estimates cost the same way it marks to market.
// Cash leaving the account is always cost+commission, for both sides.
//
// The fill is validated completely before anything changes, so a failed
// call leaves the ledger as it was.
func (a *FillApplier) ApplyFill(f event.Fill) error {
	sign := f.Direction.Sign()
	if sign == 0 {
		return fmt.Errorf("apply fill %s: %w %q", f.Symbol, ErrInvalidDirection, f.Direction)
	}
	if !a.ledger.Has(f.Symbol) {
		return fmt.Errorf("apply fill %s: %w", f.Symbol, ErrUnknownSymbol)
	}
	if f.Quantity < 0 {
		return fmt.Errorf("apply fill %s: %w: negative quantity %d", f.Symbol, ErrInvalidFill, f.Quantity)
	}
	if f.Commission < 0 || math.IsNaN(f.Commission) || math.IsInf(f.Commission, 0) {
		return fmt.Errorf("apply fill %s: %w: commission %v", f.Symbol, ErrInvalidFill, f.Commission)
	}

	bar, err := market.LatestBar(a.bars, f.Symbol)
	if err != nil {
		return fmt.Errorf("apply fill %s: %w: %w", f.Symbol, ErrMissingMarketData, err)
	}

	delta := sign * f.Quantity
	cost := float64(delta) * bar.Close
	a.ledger.applyFill(f.Symbol, delta, cost, f.Commission)
	return nil
}
