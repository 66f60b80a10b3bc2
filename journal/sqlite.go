package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/backtester/event"
	"github.com/rustyeddy/backtester/portfolio"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// RecordRun inserts r, replacing any earlier row with the same RunID.
func (j *SQLite) RecordRun(r Run) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, strategy, symbols, dataset, config, start_time, end_time,
		 initial_capital, final_equity, total_return, sharpe, max_drawdown, drawdown_duration,
		 commission, cycles, orders, fills)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, joinSymbols(r.Symbols), r.Dataset, r.Config, r.Start, r.End,
		r.InitialCapital, r.FinalEquity, r.TotalReturn, r.Sharpe, r.MaxDrawdown, r.DrawdownDuration,
		r.Commission, r.Cycles, r.Orders, r.Fills,
	)
	return err
}

// RecordHoldings stores the snapshot and its per-symbol values in one
// transaction.
func (j *SQLite) RecordHoldings(runID string, h portfolio.HoldingsSnapshot) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO holdings
		(run_id, time, cash, commission, total, returns, equity_curve)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, h.Time, h.HeldCash, h.Commission, h.TotalHoldings, h.Returns, h.EquityCurve,
	); err != nil {
		return err
	}
	for sym, v := range h.Values {
		if _, err := tx.Exec(`
			INSERT INTO holding_values (run_id, time, symbol, value)
			VALUES (?, ?, ?, ?)`,
			runID, h.Time, string(sym), v,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (j *SQLite) RecordPositions(runID string, p portfolio.PositionsEntry) error {
	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for sym, q := range p.Positions {
		if _, err := tx.Exec(`
			INSERT INTO positions (run_id, time, symbol, quantity)
			VALUES (?, ?, ?, ?)`,
			runID, p.Time, string(sym), q,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (j *SQLite) RecordOrder(runID string, o event.Order) error {
	_, err := j.db.Exec(`
		INSERT INTO orders
		(run_id, order_id, symbol, time, type, quantity, direction)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, o.ID, string(o.Symbol), o.Time, string(o.Type), o.Quantity, string(o.Direction),
	)
	return err
}

func (j *SQLite) RecordFill(runID string, f event.Fill) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(run_id, order_id, symbol, time, exchange, quantity, direction, fill_price, commission)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, f.OrderID, string(f.Symbol), f.Time, f.Exchange, f.Quantity, string(f.Direction),
		f.FillPrice, f.Commission,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
