package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

// Broker is the execution venue the strategy trades against. Every call
// returns a definite result within the cycle; there is no asynchronous
// order state to poll.
type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	GetTick(ctx context.Context, instrument string) (market.Tick, error)

	// GetCandles returns up to count closed candles, most-recent-first.
	GetCandles(ctx context.Context, instrument, granularity string, count int) ([]market.Candle, error)

	// SubmitOrder places a market order. A fill is returned only when the
	// venue confirms it; rejections surface as *RejectError.
	SubmitOrder(ctx context.Context, req TradeRequest) (OrderFill, error)

	// ModifyTrade replaces the stop-loss and take-profit levels of an open
	// trade. A zero level leaves that side unset.
	ModifyTrade(ctx context.Context, ticket string, stopLoss, takeProfit float64) error

	// CloseTrade closes an open trade at market for its full volume.
	CloseTrade(ctx context.Context, ticket string) error

	// OpenTrades lists the venue's open trades filtered to the given
	// instrument and strategy identifier.
	OpenTrades(ctx context.Context, instrument string, strategyID int64) ([]Position, error)
}

type Account struct {
	ID         string
	Currency   string
	Balance    float64
	Equity     float64
	MarginUsed float64
	FreeMargin float64
}

// Direction is the side of a trade.
type Direction int

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	if d == Short {
		return "SELL"
	}
	return "BUY"
}

// Sign returns +1 for long and -1 for short, used to sign-adjust profit.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Opposite returns the closing direction for this side.
func (d Direction) Opposite() Direction {
	if d == Short {
		return Long
	}
	return Short
}

// TradeRequest is a market order with protective levels attached. StrategyID
// tags the order so the venue-wide trade list can later be filtered back to
// this strategy.
type TradeRequest struct {
	Instrument string
	Direction  Direction
	Volume     float64
	StopLoss   float64
	TakeProfit float64
	StrategyID int64
	Comment    string
}

type OrderFill struct {
	Ticket     string
	Instrument string
	Price      float64
	Time       time.Time
}

// Position is the venue's view of one open trade.
type Position struct {
	Ticket     string
	Instrument string
	Direction  Direction
	Volume     float64
	OpenPrice  float64
	OpenTime   time.Time
	StopLoss   float64 // 0 means no stop set
	TakeProfit float64 // 0 means no target set
	StrategyID int64
}

// RejectError is a venue-side order rejection. It is terminal for the cycle:
// the caller logs it and re-evaluates from scratch at the next check.
type RejectError struct {
	Code    string
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("order rejected [%s]: %s", e.Code, e.Message)
}
