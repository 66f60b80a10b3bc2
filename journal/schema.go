package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	strategy TEXT NOT NULL,
	symbols TEXT NOT NULL,
	dataset TEXT NOT NULL,
	config BLOB,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	initial_capital REAL NOT NULL,
	final_equity REAL NOT NULL,
	total_return REAL NOT NULL,
	sharpe REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	drawdown_duration INTEGER NOT NULL,
	commission REAL NOT NULL,
	cycles INTEGER NOT NULL,
	orders INTEGER NOT NULL,
	fills INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	cash REAL NOT NULL,
	commission REAL NOT NULL,
	total REAL NOT NULL,
	returns REAL NOT NULL,
	equity_curve REAL NOT NULL,
	PRIMARY KEY (run_id, time)
);

CREATE TABLE IF NOT EXISTS holding_values (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY (run_id, time, symbol)
);

CREATE TABLE IF NOT EXISTS positions (
	run_id TEXT NOT NULL,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	PRIMARY KEY (run_id, time, symbol)
);

CREATE TABLE IF NOT EXISTS orders (
	run_id TEXT NOT NULL,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	type TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	direction TEXT NOT NULL,
	PRIMARY KEY (run_id, order_id)
);

CREATE TABLE IF NOT EXISTS fills (
	run_id TEXT NOT NULL,
	order_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	time DATETIME NOT NULL,
	exchange TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	direction TEXT NOT NULL,
	fill_price REAL NOT NULL,
	commission REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_run_time ON fills(run_id, time);
`
