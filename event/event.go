// Package event defines the messages exchanged between the data feed,
// strategies, the portfolio and the execution handler.
package event

import (
	"fmt"
	"time"

	"github.com/rustyeddy/backtester/market"
)

type Kind int

const (
	KindMarket Kind = iota
	KindSignal
	KindOrder
	KindFill
)

func (k Kind) String() string {
	switch k {
	case KindMarket:
		return "MARKET"
	case KindSignal:
		return "SIGNAL"
	case KindOrder:
		return "ORDER"
	case KindFill:
		return "FILL"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is anything that travels through a dispatcher queue.
type Event interface {
	Kind() Kind
}

// Direction is the side of an order or fill.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Sign is +1 for BUY, -1 for SELL and 0 for anything else.
func (d Direction) Sign() int64 {
	switch d {
	case Buy:
		return 1
	case Sell:
		return -1
	default:
		return 0
	}
}

func (d Direction) Valid() bool { return d.Sign() != 0 }

// SignalType is the intent carried by a strategy signal.
type SignalType string

const (
	Long  SignalType = "LONG"
	Short SignalType = "SHORT"
	Exit  SignalType = "EXIT"
)

func (s SignalType) Valid() bool {
	switch s {
	case Long, Short, Exit:
		return true
	}
	return false
}

// OrderType is the execution style of an order. Only market orders exist.
type OrderType string

const Market OrderType = "MKT"

// MarketEvent announces that a new cycle of bars has been published.
type MarketEvent struct {
	Time time.Time
}

func (MarketEvent) Kind() Kind { return KindMarket }

// Signal is a strategy's trading intent for one symbol.
type Signal struct {
	StrategyID string
	Symbol     market.Symbol
	Time       time.Time
	Type       SignalType
	Strength   float64 // [0,1]
}

func (Signal) Kind() Kind { return KindSignal }

// Order is a request sent to the execution handler.
type Order struct {
	ID        string
	Symbol    market.Symbol
	Time      time.Time
	Type      OrderType
	Quantity  int64
	Direction Direction
}

func (Order) Kind() Kind { return KindOrder }

func (o Order) String() string {
	return fmt.Sprintf("%s %s %d %s", o.Type, o.Direction, o.Quantity, o.Symbol)
}

// Fill confirms that an order executed. FillPrice is what the execution
// handler reports; the portfolio values fills at the latest bar close.
type Fill struct {
	OrderID    string
	Symbol     market.Symbol
	Time       time.Time
	Exchange   string
	Quantity   int64
	Direction  Direction
	FillPrice  float64
	Commission float64
}

func (Fill) Kind() Kind { return KindFill }
