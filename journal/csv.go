package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
)

// CSV writes one file per record kind into a directory. Holdings and
// positions get one column per symbol, in universe order.
type CSV struct {
	symbols []market.Symbol

	runs      *csvFile
	holdings  *csvFile
	positions *csvFile
	orders    *csvFile
	fills     *csvFile
}

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func createCSV(path string, header []string) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	cf := &csvFile{f: f, w: csv.NewWriter(f)}
	if err := cf.write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	return cf, nil
}

func (c *csvFile) write(rec []string) error {
	if err := c.w.Write(rec); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvFile) close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		_ = c.f.Close()
		return err
	}
	return c.f.Close()
}

func NewCSV(dir string, symbols []market.Symbol) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	syms := make([]string, len(symbols))
	for i, s := range symbols {
		syms[i] = string(s)
	}

	j := &CSV{symbols: append([]market.Symbol(nil), symbols...)}
	files := []struct {
		dst    **csvFile
		name   string
		header []string
	}{
		{&j.runs, "runs.csv", []string{"run_id", "created", "strategy", "symbols", "dataset", "start", "end",
			"initial_capital", "final_equity", "total_return", "sharpe", "max_drawdown", "drawdown_duration",
			"commission", "cycles", "orders", "fills"}},
		{&j.holdings, "holdings.csv", concat([]string{"run_id", "time"}, syms,
			[]string{"cash", "commission", "total", "returns", "equity_curve"})},
		{&j.positions, "positions.csv", concat([]string{"run_id", "time"}, syms)},
		{&j.orders, "orders.csv", []string{"run_id", "order_id", "symbol", "time", "type", "quantity", "direction"}},
		{&j.fills, "fills.csv", []string{"run_id", "order_id", "symbol", "time", "exchange", "quantity",
			"direction", "fill_price", "commission"}},
	}
	for _, file := range files {
		cf, err := createCSV(filepath.Join(dir, file.name), file.header)
		if err != nil {
			_ = j.Close()
			return nil, fmt.Errorf("create %s: %w", file.name, err)
		}
		*file.dst = cf
	}
	return j, nil
}

func (j *CSV) RecordRun(r Run) error {
	return j.runs.write([]string{
		r.RunID,
		ts(r.Created),
		r.Strategy,
		joinSymbols(r.Symbols),
		r.Dataset,
		ts(r.Start),
		ts(r.End),
		f(r.InitialCapital),
		f(r.FinalEquity),
		f(r.TotalReturn),
		f(r.Sharpe),
		f(r.MaxDrawdown),
		strconv.Itoa(r.DrawdownDuration),
		f(r.Commission),
		strconv.Itoa(r.Cycles),
		strconv.Itoa(r.Orders),
		strconv.Itoa(r.Fills),
	})
}

func (j *CSV) RecordHoldings(runID string, h portfolio.HoldingsSnapshot) error {
	rec := []string{runID, ts(h.Time)}
	for _, s := range j.symbols {
		rec = append(rec, f(h.Values[s]))
	}
	rec = append(rec, f(h.HeldCash), f(h.Commission), f(h.TotalHoldings), f(h.Returns), f(h.EquityCurve))
	return j.holdings.write(rec)
}

func (j *CSV) RecordPositions(runID string, p portfolio.PositionsEntry) error {
	rec := []string{runID, ts(p.Time)}
	for _, s := range j.symbols {
		rec = append(rec, strconv.FormatInt(p.Positions[s], 10))
	}
	return j.positions.write(rec)
}

func (j *CSV) RecordOrder(runID string, o event.Order) error {
	return j.orders.write([]string{
		runID,
		o.ID,
		string(o.Symbol),
		ts(o.Time),
		string(o.Type),
		strconv.FormatInt(o.Quantity, 10),
		string(o.Direction),
	})
}

func (j *CSV) RecordFill(runID string, fl event.Fill) error {
	return j.fills.write([]string{
		runID,
		fl.OrderID,
		string(fl.Symbol),
		ts(fl.Time),
		fl.Exchange,
		strconv.FormatInt(fl.Quantity, 10),
		string(fl.Direction),
		f(fl.FillPrice),
		f(fl.Commission),
	})
}

func (j *CSV) Close() error {
	var errs []error
	for _, cf := range []*csvFile{j.runs, j.holdings, j.positions, j.orders, j.fills} {
		if cf == nil {
			continue
		}
		errs = append(errs, cf.close())
	}
	return errors.Join(errs...)
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
