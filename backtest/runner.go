// Package backtest drives the event loop: market data in, signals, orders
// and fills through the portfolio, holdings history out.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/internal/id"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/performance"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategies"
)

// DataHandler publishes bars one cycle at a time. After Next returns true
// the latest bar of every symbol is stamped Time().
type DataHandler interface {
	market.BarProvider
	Next() bool
	Time() time.Time
	First() time.Time
	Symbols() []market.Symbol
}

// Executor turns an order into a fill.
type Executor interface {
	Execute(o event.Order) (event.Fill, error)
}

// RunnerOptions controls how the runner sets up the portfolio.
type RunnerOptions struct {
	RunID          string // empty means a new ULID
	Dataset        string
	Config         []byte
	InitialCapital float64
	Start          time.Time // zero means one day before the first bar
	Policy         portfolio.SizingPolicy
	Periods        int // cycles per year for the Sharpe ratio
}

// Runner drives a portfolio forward using a feed, a strategy and an
// executor.
type Runner struct {
	Feed     DataHandler
	Strategy strategies.Strategy
	Executor Executor
	Journal  journal.Journal
	Log      zerolog.Logger
	Options  RunnerOptions
}

// Run executes the backtest loop. For every cycle of the feed:
//  1. a market event asks the strategy for signals and advances the
//     portfolio time index
//  2. each signal is translated into at most one order
//  3. each order is executed and its fill applied to the portfolio
//
// Fills land in live state and show up in the next cycle's snapshot.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Feed == nil {
		return Result{}, fmt.Errorf("backtest: Feed is required")
	}
	if r.Strategy == nil {
		return Result{}, fmt.Errorf("backtest: Strategy is required")
	}
	if r.Executor == nil {
		return Result{}, fmt.Errorf("backtest: Executor is required")
	}
	j := r.Journal
	if j == nil {
		j = journal.Discard{}
	}

	runID := r.Options.RunID
	if runID == "" {
		runID = id.New()
	}
	log := r.Log.With().Str("component", "backtest").Str("run_id", runID).Logger()

	start := r.Options.Start
	if start.IsZero() {
		start = r.Feed.First().AddDate(0, 0, -1)
	}

	orders := &event.Queue[event.Order]{}
	pf, err := portfolio.New(portfolio.Config{
		Symbols:        r.Feed.Symbols(),
		Start:          start,
		InitialCapital: r.Options.InitialCapital,
		Policy:         r.Options.Policy,
	}, r.Feed, orders)
	if err != nil {
		return Result{}, fmt.Errorf("backtest: %w", err)
	}

	l := pf.Ledger()
	if err := j.RecordHoldings(runID, l.Latest()); err != nil {
		return Result{}, fmt.Errorf("journal holdings: %w", err)
	}
	if err := j.RecordPositions(runID, l.LatestPositions()); err != nil {
		return Result{}, fmt.Errorf("journal positions: %w", err)
	}

	log.Info().
		Str("strategy", r.Strategy.Name()).
		Int("symbols", len(l.Symbols())).
		Time("start", start).
		Float64("capital", r.Options.InitialCapital).
		Msg("backtest started")

	res := Result{
		RunID:    runID,
		Strategy: r.Strategy.Name(),
		Symbols:  l.Symbols(),
		Start:    start,
	}

	events := &event.Queue[event.Event]{}
	for r.Feed.Next() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		// Bars up to the start date stay visible to the strategy as
		// history but are not traded.
		if !r.Feed.Time().After(start) {
			res.Warmup++
			continue
		}
		events.Push(event.MarketEvent{Time: r.Feed.Time()})

		for {
			ev, ok := events.Pop()
			if !ok {
				break
			}
			if err := r.dispatch(ev, pf, events, orders, j, runID, &res); err != nil {
				log.Error().Err(err).Time("cycle", r.Feed.Time()).Msg("backtest aborted")
				return Result{}, err
			}
		}
	}

	if l.Len() == 1 {
		return Result{}, fmt.Errorf("backtest: no bars after start %s", start.Format(time.DateOnly))
	}

	res.End = l.Latest().Time
	res.History = l.Holdings()
	res.Positions = l.Positions()
	res.Final = l.Live()
	res.Summary = performance.Summarize(res.History, r.Options.Periods)
	res.Skipped = skipped(r.Feed)

	run := res.JournalRun(time.Now().UTC(), r.Options.Dataset, r.Options.Config)
	if err := j.RecordRun(run); err != nil {
		return Result{}, fmt.Errorf("journal run: %w", err)
	}

	log.Info().
		Int("cycles", res.Summary.Cycles).
		Int("orders", res.Orders).
		Int("fills", res.Fills).
		Float64("final_equity", res.Summary.FinalEquity).
		Float64("total_return", res.Summary.TotalReturn).
		Float64("sharpe", res.Summary.Sharpe).
		Float64("max_drawdown", res.Summary.MaxDrawdown).
		Msg("backtest finished")

	return res, nil
}

func (r *Runner) dispatch(ev event.Event, pf *portfolio.Portfolio, events *event.Queue[event.Event],
	orders *event.Queue[event.Order], j journal.Journal, runID string, res *Result) error {

	switch e := ev.(type) {
	case event.MarketEvent:
		sigs, err := r.Strategy.CalculateSignals(e, r.Feed)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", r.Strategy.Name(), err)
		}
		for _, s := range sigs {
			events.Push(s)
		}
		snap, err := pf.OnMarket(e)
		if err != nil {
			return fmt.Errorf("advance %s: %w", e.Time.Format(time.RFC3339), err)
		}
		if err := j.RecordHoldings(runID, snap); err != nil {
			return fmt.Errorf("journal holdings: %w", err)
		}
		if err := j.RecordPositions(runID, pf.Ledger().LatestPositions()); err != nil {
			return fmt.Errorf("journal positions: %w", err)
		}

	case event.Signal:
		res.Signals++
		if _, err := pf.OnSignal(e); err != nil {
			return fmt.Errorf("signal %s %s: %w", e.Type, e.Symbol, err)
		}
		for {
			o, ok := orders.Pop()
			if !ok {
				break
			}
			events.Push(o)
		}

	case event.Order:
		res.Orders++
		if err := j.RecordOrder(runID, e); err != nil {
			return fmt.Errorf("journal order: %w", err)
		}
		f, err := r.Executor.Execute(e)
		if err != nil {
			return err
		}
		events.Push(f)

	case event.Fill:
		res.Fills++
		if err := pf.OnFill(e); err != nil {
			return fmt.Errorf("fill %s: %w", e.OrderID, err)
		}
		res.FillLog = append(res.FillLog, e)
		if err := j.RecordFill(runID, e); err != nil {
			return fmt.Errorf("journal fill: %w", err)
		}
		r.Log.Debug().
			Str("order_id", e.OrderID).
			Str("symbol", string(e.Symbol)).
			Str("direction", string(e.Direction)).
			Int64("quantity", e.Quantity).
			Float64("price", e.FillPrice).
			Float64("commission", e.Commission).
			Msg("fill applied")

	default:
		return errors.New("backtest: unknown event " + ev.Kind().String())
	}
	return nil
}

func skipped(f DataHandler) int {
	if s, ok := f.(interface{ Skipped() int }); ok {
		return s.Skipped()
	}
	return 0
}
