package sim

import (
	"time"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
)

// Trade is one simulated venue-side trade.
type Trade struct {
	Ticket     string
	Instrument string
	Direction  broker.Direction
	Volume     float64
	EntryPrice float64
	OpenTime   time.Time
	StrategyID int64

	StopLoss   float64 // 0 = unset
	TakeProfit float64 // 0 = unset

	Open        bool
	ClosePrice  float64
	CloseTime   time.Time
	CloseReason string
	RealizedPL  float64
}

// hitStopLoss checks the closing-side price against the stop.
func (t *Trade) hitStopLoss(closingPrice float64) bool {
	if t.StopLoss == 0 {
		return false
	}
	if t.Direction == broker.Long {
		return closingPrice <= t.StopLoss
	}
	return closingPrice >= t.StopLoss
}

func (t *Trade) hitTakeProfit(closingPrice float64) bool {
	if t.TakeProfit == 0 {
		return false
	}
	if t.Direction == broker.Long {
		return closingPrice >= t.TakeProfit
	}
	return closingPrice <= t.TakeProfit
}
