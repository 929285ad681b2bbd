package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	session_id TEXT NOT NULL,
	ticket TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	direction TEXT NOT NULL,
	volume REAL NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	open_time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	session_id TEXT NOT NULL,
	ticket TEXT NOT NULL,
	type TEXT NOT NULL,
	time DATETIME NOT NULL,
	profit_pips REAL NOT NULL,
	price REAL NOT NULL,
	detail TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_ticket ON events(ticket);
CREATE INDEX IF NOT EXISTS idx_events_time ON events(time);
`
