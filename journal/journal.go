package journal

import "time"

// TradeRecord captures one confirmed fill, keyed by the venue ticket and the
// session that opened it.
type TradeRecord struct {
	SessionID  string
	Ticket     string
	Instrument string
	Direction  string
	Volume     float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
}

// Event types recorded over a position's lifetime.
const (
	EventTrailActivated = "trail_activated"
	EventStopMoved      = "stop_moved"
	EventForcedClose    = "forced_close"
	EventReconciled     = "reconciled" // position vanished from the venue list
)

// Event is one position-lifecycle occurrence.
type Event struct {
	SessionID  string
	Ticket     string
	Type       string
	Time       time.Time
	ProfitPips float64
	Price      float64
	Detail     string
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEvent(Event) error
	Close() error
}

// Nop discards everything. Used when journaling is disabled.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) RecordEvent(Event) error       { return nil }
func (Nop) Close() error                  { return nil }
