// Package indicators provides moving-average computation and the polled
// indicator-provider protocol the strategy consumes.
package indicators

import (
	"fmt"

	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

// Method selects the moving-average smoothing algorithm.
type Method int

const (
	SMA Method = iota // simple
	EMA               // exponential
	SMMA              // smoothed
	LWMA              // linear-weighted
)

func (m Method) String() string {
	switch m {
	case EMA:
		return "EMA"
	case SMMA:
		return "SMMA"
	case LWMA:
		return "LWMA"
	default:
		return "SMA"
	}
}

// ParseMethod maps a config string to a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "sma", "SMA", "simple":
		return SMA, nil
	case "ema", "EMA", "exponential":
		return EMA, nil
	case "smma", "SMMA", "smoothed":
		return SMMA, nil
	case "lwma", "LWMA", "linear":
		return LWMA, nil
	}
	return SMA, fmt.Errorf("unknown MA method: %q", s)
}

// MovingAverage computes one moving-average value over candle closes.
//
// Candles are ordered most-recent-first; shift selects which bar the value is
// anchored at (shift 0 = latest closed bar). The recursive methods (EMA,
// SMMA) seed from an SMA of the oldest available window and run forward over
// the whole history given, so longer inputs converge to the conventional
// values.
func MovingAverage(candles []market.Candle, period, shift int, method Method) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if shift < 0 {
		return 0, fmt.Errorf("shift must be non-negative, got %d", shift)
	}
	if len(candles) < period+shift {
		return 0, fmt.Errorf("not enough candles: need %d, got %d", period+shift, len(candles))
	}

	// Window anchored at shift, still most-recent-first.
	window := candles[shift:]

	switch method {
	case EMA:
		return emaRecent(window, period), nil
	case SMMA:
		return smmaRecent(window, period), nil
	case LWMA:
		return lwmaRecent(window, period), nil
	default:
		return smaRecent(window, period), nil
	}
}

func smaRecent(candles []market.Candle, period int) float64 {
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += candles[i].Close
	}
	return sum / float64(period)
}

func emaRecent(candles []market.Candle, period int) float64 {
	multiplier := 2.0 / float64(period+1)

	// Seed with SMA over the oldest period bars, then walk toward the
	// most recent bar.
	start := len(candles) - 1
	seedEnd := len(candles) - period
	sum := 0.0
	for i := start; i >= seedEnd; i-- {
		sum += candles[i].Close
	}
	ema := sum / float64(period)

	for i := seedEnd - 1; i >= 0; i-- {
		ema = (candles[i].Close-ema)*multiplier + ema
	}
	return ema
}

func smmaRecent(candles []market.Candle, period int) float64 {
	start := len(candles) - 1
	seedEnd := len(candles) - period
	sum := 0.0
	for i := start; i >= seedEnd; i-- {
		sum += candles[i].Close
	}
	smma := sum / float64(period)

	for i := seedEnd - 1; i >= 0; i-- {
		smma = (smma*float64(period-1) + candles[i].Close) / float64(period)
	}
	return smma
}

func lwmaRecent(candles []market.Candle, period int) float64 {
	var sum, weights float64
	for i := 0; i < period; i++ {
		w := float64(period - i)
		sum += candles[i].Close * w
		weights += w
	}
	return sum / weights
}
