package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
)

var ErrRunNotFound = errors.New("run not found")

const runColumns = `run_id, created, strategy, symbols, dataset, config, start_time, end_time,
	initial_capital, final_equity, total_return, sharpe, max_drawdown, drawdown_duration,
	commission, cycles, orders, fills`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r       Run
		symbols string
	)
	err := s.Scan(
		&r.RunID, &r.Created, &r.Strategy, &symbols, &r.Dataset, &r.Config, &r.Start, &r.End,
		&r.InitialCapital, &r.FinalEquity, &r.TotalReturn, &r.Sharpe, &r.MaxDrawdown, &r.DrawdownDuration,
		&r.Commission, &r.Cycles, &r.Orders, &r.Fills,
	)
	r.Symbols = splitSymbols(symbols)
	return r, err
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListHoldings returns the holdings history of a run in time order, with
// the per-symbol values filled in.
func (j *SQLite) ListHoldings(ctx context.Context, runID string) ([]portfolio.HoldingsSnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, cash, commission, total, returns, equity_curve
		FROM holdings
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []portfolio.HoldingsSnapshot
	for rows.Next() {
		h := portfolio.HoldingsSnapshot{Values: map[market.Symbol]float64{}}
		if err := rows.Scan(&h.Time, &h.HeldCash, &h.Commission, &h.TotalHoldings, &h.Returns, &h.EquityCurve); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	vrows, err := j.db.QueryContext(ctx, `
		SELECT time, symbol, value
		FROM holding_values
		WHERE run_id = ?
		ORDER BY time ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()

	i := 0
	for vrows.Next() {
		var (
			h   portfolio.HoldingsSnapshot
			sym string
			v   float64
		)
		if err := vrows.Scan(&h.Time, &sym, &v); err != nil {
			return nil, err
		}
		for i < len(out) && out[i].Time.Before(h.Time) {
			i++
		}
		if i < len(out) && out[i].Time.Equal(h.Time) {
			out[i].Values[market.Symbol(sym)] = v
		}
	}
	if err := vrows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFills returns the fills of a run in time order.
func (j *SQLite) ListFills(ctx context.Context, runID string) ([]event.Fill, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT order_id, symbol, time, exchange, quantity, direction, fill_price, commission
		FROM fills
		WHERE run_id = ?
		ORDER BY time ASC, rowid ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Fill
	for rows.Next() {
		var (
			f        event.Fill
			sym, dir string
		)
		if err := rows.Scan(&f.OrderID, &sym, &f.Time, &f.Exchange, &f.Quantity, &dir, &f.FillPrice, &f.Commission); err != nil {
			return nil, err
		}
		f.Symbol = market.Symbol(sym)
		f.Direction = event.Direction(dir)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
