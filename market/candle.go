package market

import (
	"context"
	"time"
)

// Candle represents OHLC (Open, High, Low, Close) candlestick data for one
// fixed-duration interval. Candles are immutable once produced by the feed.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	time.Time
}

// CandleSource supplies historical candles for an instrument.
//
// Implementations return up to count candles ordered most-recent-first
// (index 0 is the latest closed candle). Fewer than count may be returned
// near session start, including zero; callers must handle an empty slice.
type CandleSource interface {
	GetCandles(ctx context.Context, instrument, granularity string, count int) ([]Candle, error)
}
