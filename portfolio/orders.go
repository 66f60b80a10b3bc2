package portfolio

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/internal/id"
)

// DefaultLot is the FixedLot size used when none is configured.
const DefaultLot = 100

// SizingPolicy decides the order, if any, for a signal given the live
// position in the signal's symbol. It returns nil for no order. Policies
// never touch the ledger.
type SizingPolicy interface {
	Size(position int64, sig event.Signal) (*event.Order, error)
}

// SizingFunc adapts a function to a SizingPolicy.
type SizingFunc func(position int64, sig event.Signal) (*event.Order, error)

func (f SizingFunc) Size(position int64, sig event.Signal) (*event.Order, error) {
	return f(position, sig)
}

// FixedLot opens floor(Lot*strength) units from a flat position and closes
// the whole position on EXIT. LONG and SHORT are ignored while a position
// is open (no pyramiding or reversals).
type FixedLot struct {
	Lot int64
}

func (p FixedLot) Size(position int64, sig event.Signal) (*event.Order, error) {
	lot := p.Lot
	if lot <= 0 {
		lot = DefaultLot
	}
	return Decide(position, sig, int64(math.Floor(float64(lot)*sig.Strength))), nil
}

// Decide applies the entry/exit decision table: target units are opened
// from a flat position (a zero target still yields a zero-quantity
// order), EXIT closes the whole position, anything else yields no order.
func Decide(position int64, sig event.Signal, target int64) *event.Order {
	var (
		dir event.Direction
		qty int64
	)
	switch {
	case sig.Type == event.Long && position == 0:
		dir, qty = event.Buy, target
	case sig.Type == event.Short && position == 0:
		dir, qty = event.Sell, target
	case sig.Type == event.Exit && position > 0:
		dir, qty = event.Sell, position
	case sig.Type == event.Exit && position < 0:
		dir, qty = event.Buy, -position
	default:
		return nil
	}
	if qty < 0 {
		return nil
	}

	return &event.Order{
		Symbol:    sig.Symbol,
		Time:      sig.Time,
		Type:      event.Market,
		Quantity:  qty,
		Direction: dir,
	}
}

// Translator turns signals into orders using the ledger's live positions
// and a SizingPolicy, and pushes them to an order sink. It only reads the
// ledger.
type Translator struct {
	ledger *Ledger
	policy SizingPolicy
	sink   event.OrderSink
	newID  func() string
}

// NewTranslator returns a Translator writing to sink. A nil policy means
// FixedLot{Lot: DefaultLot}.
func NewTranslator(l *Ledger, policy SizingPolicy, sink event.OrderSink) *Translator {
	if policy == nil {
		policy = FixedLot{Lot: DefaultLot}
	}
	return &Translator{ledger: l, policy: policy, sink: sink, newID: id.New}
}

// Translate emits at most one order for sig and returns it (nil when the
// policy declines).
func (t *Translator) Translate(sig event.Signal) (*event.Order, error) {
	if !sig.Type.Valid() {
		return nil, fmt.Errorf("translate %s: %w %q", sig.Symbol, ErrInvalidSignal, sig.Type)
	}
	if !(sig.Strength >= 0 && sig.Strength <= 1) {
		return nil, fmt.Errorf("translate %s: %w: %v", sig.Symbol, ErrInvalidStrength, sig.Strength)
	}
	if !t.ledger.Has(sig.Symbol) {
		return nil, fmt.Errorf("translate %s: %w", sig.Symbol, ErrUnknownSymbol)
	}

	order, err := t.policy.Size(t.ledger.Position(sig.Symbol), sig)
	if err != nil {
		return nil, fmt.Errorf("translate %s: %w", sig.Symbol, err)
	}
	if order == nil {
		return nil, nil
	}
	if order.Quantity < 0 || !order.Direction.Valid() {
		return nil, fmt.Errorf("translate %s: policy returned %s", sig.Symbol, order)
	}
	if order.Type == "" {
		order.Type = event.Market
	}
	if order.Type != event.Market {
		return nil, fmt.Errorf("translate %s: unsupported order type %q", sig.Symbol, order.Type)
	}
	if order.ID == "" {
		order.ID = t.newID()
	}

	if t.sink != nil {
		t.sink.Push(*order)
	}
	return order, nil
}
