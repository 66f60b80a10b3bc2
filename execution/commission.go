package execution

import (
	"fmt"
	"math"
	"strings"
)

// CommissionModel prices the commission for a fill of qty units at price.
type CommissionModel interface {
	Commission(qty int64, price float64) float64
}

// Tiered is an Interactive Brokers style per-share schedule: PerShare up
// to Threshold shares, PerShareAbove beyond it, never below Minimum and
// never above MaxPct of the traded value.
type Tiered struct {
	PerShare      float64
	PerShareAbove float64
	Threshold     int64
	Minimum       float64
	MaxPct        float64 // fraction, 0.005 = 0.5%
}

// IB returns the US-equities fixed-rate schedule.
func IB() Tiered {
	return Tiered{
		PerShare:      0.013,
		PerShareAbove: 0.008,
		Threshold:     500,
		Minimum:       1.30,
		MaxPct:        0.005,
	}
}

func (t Tiered) Commission(qty int64, price float64) float64 {
	if qty <= 0 {
		return 0
	}
	rate := t.PerShare
	if t.Threshold > 0 && qty > t.Threshold {
		rate = t.PerShareAbove
	}
	c := math.Max(t.Minimum, rate*float64(qty))
	if t.MaxPct > 0 {
		c = math.Min(c, t.MaxPct*float64(qty)*price)
	}
	return c
}

// PerOrder charges a flat amount for every non-empty fill.
type PerOrder float64

func (p PerOrder) Commission(qty int64, _ float64) float64 {
	if qty <= 0 {
		return 0
	}
	return float64(p)
}

// CommissionByName maps a configured model name to a CommissionModel.
// "fixed" charges amount per order; "ib" ignores amount.
func CommissionByName(name string, amount float64) (CommissionModel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "zero":
		return PerOrder(0), nil
	case "ib", "interactive-brokers":
		return IB(), nil
	case "fixed", "per-order":
		if amount < 0 {
			return nil, fmt.Errorf("fixed commission must not be negative, got %v", amount)
		}
		return PerOrder(amount), nil
	default:
		return nil, fmt.Errorf("unknown commission model %q (supported: none, ib, fixed)", name)
	}
}
