package backtest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/execution"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategies"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func newFeed(t *testing.T, closes map[market.Symbol][]float64) *market.Feed {
	t.Helper()
	bars := make(map[market.Symbol][]market.Bar)
	var syms []market.Symbol
	for _, sym := range []market.Symbol{"AAPL", "MSFT"} {
		cs, ok := closes[sym]
		if !ok {
			continue
		}
		syms = append(syms, sym)
		for i, c := range cs {
			bars[sym] = append(bars[sym], market.Bar{Symbol: sym, Time: t0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c})
		}
	}
	f, err := market.NewFeed(bars, syms, zerolog.Nop())
	require.NoError(t, err)
	return f
}

func newRunner(t *testing.T, feed *market.Feed, strat strategies.Strategy, commission execution.CommissionModel) *Runner {
	t.Helper()
	return &Runner{
		Feed:     feed,
		Strategy: strat,
		Executor: execution.NewSimulated(feed, commission, 0),
		Log:      zerolog.Nop(),
		Options: RunnerOptions{
			RunID:          "RUN1",
			InitialCapital: 100000,
		},
	}
}

// recordingJournal keeps everything in memory.
type recordingJournal struct {
	runs      []journal.Run
	holdings  []portfolio.HoldingsSnapshot
	positions []portfolio.PositionsEntry
	orders    []event.Order
	fills     []event.Fill
	closed    bool
}

func (j *recordingJournal) RecordRun(r journal.Run) error {
	j.runs = append(j.runs, r)
	return nil
}
func (j *recordingJournal) RecordHoldings(_ string, h portfolio.HoldingsSnapshot) error {
	j.holdings = append(j.holdings, h)
	return nil
}
func (j *recordingJournal) RecordPositions(_ string, p portfolio.PositionsEntry) error {
	j.positions = append(j.positions, p)
	return nil
}
func (j *recordingJournal) RecordOrder(_ string, o event.Order) error {
	j.orders = append(j.orders, o)
	return nil
}
func (j *recordingJournal) RecordFill(_ string, f event.Fill) error {
	j.fills = append(j.fills, f)
	return nil
}
func (j *recordingJournal) Close() error {
	j.closed = true
	return nil
}

// failingStrategy returns an error on the first call.
type failingStrategy struct{}

func (failingStrategy) Name() string { return "failing" }
func (failingStrategy) Reset()       {}
func (failingStrategy) CalculateSignals(event.MarketEvent, market.BarProvider) ([]event.Signal, error) {
	return nil, errors.New("strategy error")
}

func TestRunnerValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	feed := newFeed(t, map[market.Symbol][]float64{"AAPL": {50}})

	tests := []struct {
		name   string
		runner *Runner
		errMsg string
	}{
		{"missing feed", &Runner{Strategy: strategies.Noop{}, Executor: execution.NewSimulated(feed, nil, 0)}, "Feed is required"},
		{"missing strategy", &Runner{Feed: feed, Executor: execution.NewSimulated(feed, nil, 0)}, "Strategy is required"},
		{"missing executor", &Runner{Feed: feed, Strategy: strategies.Noop{}}, "Executor is required"},
		{"no capital", &Runner{Feed: feed, Strategy: strategies.Noop{}, Executor: execution.NewSimulated(feed, nil, 0)}, "capital"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.runner.Run(ctx)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRunnerBuyAndHold(t *testing.T) {
	t.Parallel()

	feed := newFeed(t, map[market.Symbol][]float64{"AAPL": {50, 51, 52}})
	r := newRunner(t, feed, strategies.NewBuyAndHold([]market.Symbol{"AAPL"}), nil)
	j := &recordingJournal{}
	r.Journal = j

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "RUN1", res.RunID)
	assert.Equal(t, t0.AddDate(0, 0, -1), res.Start)
	assert.Equal(t, t0.AddDate(0, 0, 2), res.End)
	assert.Equal(t, 1, res.Signals)
	assert.Equal(t, 1, res.Orders)
	assert.Equal(t, 1, res.Fills)
	require.Len(t, res.FillLog, 1)
	assert.Equal(t, 50.0, res.FillLog[0].FillPrice)

	// initial entry plus one per cycle; the fill lands after the first
	// cycle's snapshot
	require.Len(t, res.History, 4)
	assert.Equal(t, 100000.0, res.History[1].TotalHoldings)
	assert.Equal(t, 100100.0, res.History[2].TotalHoldings)
	assert.Equal(t, 100200.0, res.History[3].TotalHoldings)
	assert.Equal(t, 5200.0, res.History[3].Values["AAPL"])
	assert.Equal(t, int64(100), res.Final.Positions["AAPL"])
	assert.Equal(t, int64(100), res.Positions[3].Positions["AAPL"])

	assert.Equal(t, 4, res.Summary.Cycles)
	assert.InDelta(t, 0.002, res.Summary.TotalReturn, 1e-9)

	assert.Len(t, j.holdings, 4)
	assert.Len(t, j.positions, 4)
	assert.Len(t, j.orders, 1)
	assert.Len(t, j.fills, 1)
	require.Len(t, j.runs, 1)
	assert.Equal(t, "RUN1", j.runs[0].RunID)
	assert.Equal(t, 1, j.runs[0].Fills)
	assert.False(t, j.closed)
}

// zeroStrength goes long with strength 0 on every bar.
type zeroStrength struct{}

func (zeroStrength) Name() string { return "zero-strength" }
func (zeroStrength) Reset()       {}
func (zeroStrength) CalculateSignals(ev event.MarketEvent, _ market.BarProvider) ([]event.Signal, error) {
	return []event.Signal{{Symbol: "AAPL", Time: ev.Time, Type: event.Long, Strength: 0}}, nil
}

func TestRunnerZeroQuantityOrders(t *testing.T) {
	t.Parallel()

	feed := newFeed(t, map[market.Symbol][]float64{"AAPL": {50, 51}})
	r := newRunner(t, feed, zeroStrength{}, execution.IB())

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Orders)
	assert.Equal(t, 2, res.Fills)
	for _, f := range res.FillLog {
		assert.Equal(t, int64(0), f.Quantity)
		assert.Equal(t, 0.0, f.Commission)
	}
	assert.Equal(t, int64(0), res.Final.Positions["AAPL"])
	assert.Equal(t, 100000.0, res.History[len(res.History)-1].TotalHoldings)
}

func TestRunnerCashReconciles(t *testing.T) {
	t.Parallel()

	feed := newFeed(t, map[market.Symbol][]float64{
		"AAPL": {10, 9, 8, 9, 11, 13, 12, 10, 8, 7, 9, 12, 14, 15, 13, 11},
		"MSFT": {20, 21, 22, 21, 20, 18, 17, 18, 20, 22, 23, 22, 20, 19, 20, 21},
	})
	strat, err := strategies.NewMACross(strategies.MACrossConfig{Symbols: []market.Symbol{"AAPL", "MSFT"}, Fast: 2, Slow: 3})
	require.NoError(t, err)
	r := newRunner(t, feed, strat, execution.IB())

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Greater(t, res.Fills, 0)

	live := res.Final
	sum := 0.0
	for _, v := range live.Holdings {
		sum += v
	}
	assert.InDelta(t, r.Options.InitialCapital, live.HeldCash+sum+live.Commission, 1e-6)
	assert.InDelta(t, live.HeldCash, live.TotalHoldings, 1e-6)

	for _, h := range res.History {
		v := 0.0
		for _, x := range h.Values {
			v += x
		}
		assert.InDelta(t, h.HeldCash+v, h.TotalHoldings, 1e-6)
	}
}

func TestRunnerDeterministic(t *testing.T) {
	t.Parallel()

	closes := map[market.Symbol][]float64{"AAPL": {10, 9, 8, 9, 11, 13, 12, 10, 8, 7, 9, 12}}
	run := func() Result {
		feed := newFeed(t, closes)
		strat, err := strategies.NewMACross(strategies.MACrossConfig{Symbols: []market.Symbol{"AAPL"}, Fast: 2, Slow: 3})
		require.NoError(t, err)
		res, err := newRunner(t, feed, strat, execution.PerOrder(1)).Run(context.Background())
		require.NoError(t, err)
		return res
	}

	a, b := run(), run()
	assert.Equal(t, a.History, b.History)
	assert.Equal(t, a.Positions, b.Positions)
	assert.Equal(t, a.Summary, b.Summary)
}

func TestRunnerStrategyError(t *testing.T) {
	t.Parallel()

	feed := newFeed(t, map[market.Symbol][]float64{"AAPL": {50, 51}})
	_, err := newRunner(t, feed, failingStrategy{}, nil).Run(context.Background())
	assert.ErrorContains(t, err, "strategy error")
}

func TestRunnerStartInsideData(t *testing.T) {
	t.Parallel()

	feed := newFeed(t, map[market.Symbol][]float64{"AAPL": {50, 51, 52, 53}})
	r := newRunner(t, feed, strategies.NewBuyAndHold([]market.Symbol{"AAPL"}), nil)
	r.Options.Start = t0.AddDate(0, 0, 1)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Warmup)
	require.Len(t, res.History, 3)
	assert.Equal(t, t0.AddDate(0, 0, 1), res.History[0].Time)
	assert.Equal(t, t0.AddDate(0, 0, 2), res.History[1].Time)
	require.Len(t, res.FillLog, 1)
	assert.Equal(t, 52.0, res.FillLog[0].FillPrice)
	assert.Equal(t, 100100.0, res.History[2].TotalHoldings)
}

func TestRunnerStartAfterData(t *testing.T) {
	t.Parallel()

	feed := newFeed(t, map[market.Symbol][]float64{"AAPL": {50, 51}})
	r := newRunner(t, feed, strategies.Noop{}, nil)
	r.Options.Start = t0.AddDate(0, 0, 1)
	_, err := r.Run(context.Background())
	assert.ErrorContains(t, err, "no bars after start")
}

func TestRunnerCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed := newFeed(t, map[market.Symbol][]float64{"AAPL": {50, 51}})
	_, err := newRunner(t, feed, strategies.Noop{}, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrintResult(t *testing.T) {
	t.Parallel()

	feed := newFeed(t, map[market.Symbol][]float64{"AAPL": {50, 51, 52}})
	res, err := newRunner(t, feed, strategies.NewBuyAndHold([]market.Symbol{"AAPL"}), nil).Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintResult(&buf, res)
	out := buf.String()
	assert.Contains(t, out, "Run ID:        RUN1")
	assert.Contains(t, out, "Strategy:      buy-and-hold")
	assert.Contains(t, out, "Open Positions")
	assert.Contains(t, out, "AAPL:          100")
	assert.Contains(t, out, "End Equity:    100200.00")
	assert.Contains(t, out, "Return:        0.20%")
}

func writeBars(t *testing.T, dir string, sym string, closes ...float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("time,open,high,low,close,volume\n")
	for i, c := range closes {
		d := t0.AddDate(0, 0, i).Format("2006-01-02")
		b.WriteString(d)
		for k := 0; k < 4; k++ {
			b.WriteString(",")
			b.WriteString(strconvF(c))
		}
		b.WriteString(",1000\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, sym+".csv"), []byte(b.String()), 0644))
}

func TestRunConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	writeBars(t, dataDir, "AAPL", 50, 51, 52, 53)
	writeBars(t, dataDir, "MSFT", 100, 99, 101, 102)

	cfg := config.Default()
	cfg.Data = config.DataConfig{Dir: dataDir, Symbols: []string{"AAPL", "MSFT"}}
	cfg.Journal = config.JournalConfig{Driver: "sqlite", Path: filepath.Join(dir, "runs.db"), OrgDir: filepath.Join(dir, "org")}

	res, err := RunConfig(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fills)
	assert.Equal(t, 5, res.Summary.Cycles)

	j, err := journal.NewSQLite(cfg.Journal.Path)
	require.NoError(t, err)
	defer j.Close()

	run, err := j.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, "buy-and-hold", run.Strategy)
	assert.Equal(t, []market.Symbol{"AAPL", "MSFT"}, run.Symbols)
	assert.Contains(t, string(run.Config), "initial_capital: 100000")

	holdings, err := j.ListHoldings(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Len(t, holdings, 5)

	org, err := os.ReadFile(filepath.Join(cfg.Journal.OrgDir, res.RunID+".org"))
	require.NoError(t, err)
	assert.Contains(t, string(org), ":RUN_ID:      "+res.RunID)
	assert.Contains(t, string(org), "** Fills")
}

func TestRunConfigMissingData(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Data.Dir = t.TempDir()
	cfg.Journal = config.JournalConfig{Driver: "none"}
	_, err := RunConfig(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "load data")
}

func strconvF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
