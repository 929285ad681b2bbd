package strategy

import (
	"math"

	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

// minExtremeAgeBars is how many bars old a range extreme must be before the
// range counts as formed. A fresher extreme means the move is still in
// progress and the window must not be traded.
const minExtremeAgeBars = 3

// Window is the result of one volatility analysis. The high/low/age/boundary
// fields are diagnostics for logging; Accepted is the only control output.
type Window struct {
	High    float64
	HighAge int // bars since the high formed, 0 = most recent bar
	Low     float64
	LowAge  int

	RangePips float64
	Lower     float64 // entry-zone lower boundary
	Upper     float64 // entry-zone upper boundary

	Accepted bool
	Reason   string
}

// Analyzer detects low-volatility ranging conditions over a rolling window
// of one-minute candles.
type Analyzer struct {
	meta market.InstrumentMeta
	cfg  config.VolatilityConfig
}

func NewAnalyzer(meta market.InstrumentMeta, cfg config.VolatilityConfig) Analyzer {
	return Analyzer{meta: meta, cfg: cfg}
}

// Analyze scans candles (most-recent-first) for the window extremes and
// decides whether the current bid sits inside an aged, narrow range.
//
// Zero-volume candles are inactive padding and are skipped, so leading or
// trailing padding never changes the decision. Equal extremes do not update
// the tracked value: the first occurrence scanned wins.
func (a Analyzer) Analyze(candles []market.Candle, bid float64) Window {
	w := Window{High: 0, Low: math.Inf(1)}

	age := 0
	for _, c := range candles {
		if c.Volume == 0 {
			continue
		}
		if c.High > w.High {
			w.High = c.High
			w.HighAge = age
		}
		if c.Low < w.Low {
			w.Low = c.Low
			w.LowAge = age
		}
		age++
	}

	if age == 0 {
		w.Reason = "no bars"
		return w
	}

	width := w.High - w.Low
	if width <= 0 || math.IsInf(w.Low, 1) {
		w.Reason = "degenerate range"
		return w
	}

	if w.HighAge < minExtremeAgeBars || w.LowAge < minExtremeAgeBars {
		w.Reason = "extreme too recent"
		return w
	}

	w.RangePips = a.meta.PriceToPips(width)
	if w.RangePips > a.cfg.RangeThresholdPips {
		w.Reason = "range too wide"
		return w
	}

	w.Lower = w.Low + width*a.cfg.MarginFraction
	w.Upper = w.High - width*a.cfg.MarginFraction
	if bid < w.Lower || bid > w.Upper {
		w.Reason = "price outside entry zone"
		return w
	}

	w.Accepted = true
	w.Reason = "low volatility"
	return w
}
