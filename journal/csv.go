package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	trades *csv.Writer
	events *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, eventsPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(eventsPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write([]string{"session_id", "ticket", "instrument", "direction", "volume", "entry_price", "stop_loss", "take_profit", "open_time"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"session_id", "ticket", "type", "time", "profit_pips", "price", "detail"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{tw, ew, tf, ef}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.SessionID,
		t.Ticket,
		t.Instrument,
		t.Direction,
		f(t.Volume),
		f(t.EntryPrice),
		f(t.StopLoss),
		f(t.TakeProfit),
		t.OpenTime.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSVJournal) RecordEvent(e Event) error {
	err := j.events.Write([]string{
		e.SessionID,
		e.Ticket,
		e.Type,
		e.Time.Format(time.RFC3339),
		f(e.ProfitPips),
		f(e.Price),
		e.Detail,
	})
	if err != nil {
		return err
	}
	j.events.Flush()
	return j.events.Error()
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.events.Flush()
	if err := j.events.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
