package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/performance"
	"github.com/rustyeddy/backtester/portfolio"
)

// Result is everything a run produced.
type Result struct {
	RunID    string
	Strategy string
	Symbols  []market.Symbol

	Start time.Time
	End   time.Time

	History   []portfolio.HoldingsSnapshot
	Positions []portfolio.PositionsEntry
	Final     portfolio.LiveState
	Summary   performance.Summary

	FillLog []event.Fill

	Signals int
	Orders  int
	Fills   int
	Skipped int // timestamps dropped because not every symbol had a bar
	Warmup  int // cycles on or before Start, used as history only
}

// JournalRun converts the result into a journal run record.
func (r Result) JournalRun(created time.Time, dataset string, cfg []byte) journal.Run {
	return journal.Run{
		RunID:            r.RunID,
		Created:          created,
		Strategy:         r.Strategy,
		Symbols:          r.Symbols,
		Dataset:          dataset,
		Config:           cfg,
		Start:            r.Start,
		End:              r.End,
		InitialCapital:   r.Summary.InitialEquity,
		FinalEquity:      r.Summary.FinalEquity,
		TotalReturn:      r.Summary.TotalReturn,
		Sharpe:           r.Summary.Sharpe,
		MaxDrawdown:      r.Summary.MaxDrawdown,
		DrawdownDuration: r.Summary.DrawdownDuration,
		Commission:       r.Final.Commission,
		Cycles:           r.Summary.Cycles,
		Orders:           r.Orders,
		Fills:            r.Fills,
	}
}

func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Symbols:       %v\n", r.Symbols)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Cycles:        %d\n", r.Summary.Cycles)
	if r.Warmup > 0 {
		fmt.Fprintf(w, "Warmup:        %d\n", r.Warmup)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:       %d\n", r.Skipped)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Activity")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Signals:       %d\n", r.Signals)
	fmt.Fprintf(w, "Orders:        %d\n", r.Orders)
	fmt.Fprintf(w, "Fills:         %d\n", r.Fills)
	fmt.Fprintf(w, "Commission:    %.2f\n", r.Final.Commission)

	header := false
	for _, sym := range r.Symbols {
		q := r.Final.Positions[sym]
		if q == 0 {
			continue
		}
		if !header {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Open Positions")
			fmt.Fprintln(w, "--------------------------------------------------")
			header = true
		}
		fmt.Fprintf(w, "%-14s %d\n", string(sym)+":", q)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Equity:  %.2f\n", r.Summary.InitialEquity)
	fmt.Fprintf(w, "End Equity:    %.2f\n", r.Summary.FinalEquity)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.Summary.FinalEquity-r.Summary.InitialEquity)
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.Summary.TotalReturn*100)
	fmt.Fprintf(w, "Sharpe:        %.2f\n", r.Summary.Sharpe)
	if r.Summary.MaxDrawdown > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%% (%d cycles)\n", r.Summary.MaxDrawdown*100, r.Summary.DrawdownDuration)
	}

	fmt.Fprintln(w)
}
