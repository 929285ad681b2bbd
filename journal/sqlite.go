package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(session_id, ticket, instrument, direction, volume, entry_price, stop_loss, take_profit, open_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.SessionID, t.Ticket, t.Instrument, t.Direction,
		t.Volume, t.EntryPrice, t.StopLoss, t.TakeProfit, t.OpenTime,
	)
	return err
}

func (j *SQLiteJournal) RecordEvent(e Event) error {
	_, err := j.db.Exec(`
		INSERT INTO events
		(session_id, ticket, type, time, profit_pips, price, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.Ticket, e.Type, e.Time, e.ProfitPips, e.Price, e.Detail,
	)
	return err
}

// Trades returns all recorded trades for a session, oldest first.
func (j *SQLiteJournal) Trades(sessionID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT session_id, ticket, instrument, direction, volume, entry_price, stop_loss, take_profit, open_time
		FROM trades WHERE session_id = ? ORDER BY open_time`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.SessionID, &t.Ticket, &t.Instrument, &t.Direction,
			&t.Volume, &t.EntryPrice, &t.StopLoss, &t.TakeProfit, &t.OpenTime); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Events returns all events for a ticket, oldest first.
func (j *SQLiteJournal) Events(ticket string) ([]Event, error) {
	rows, err := j.db.Query(`
		SELECT session_id, ticket, type, time, profit_pips, price, detail
		FROM events WHERE ticket = ? ORDER BY time`, ticket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.SessionID, &e.Ticket, &e.Type, &e.Time,
			&e.ProfitPips, &e.Price, &e.Detail); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
