package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

// flatBars builds n most-recent-first bars inside [low, high] with extremes
// nowhere, so tests can plant their own extremes at chosen indices.
func flatBars(n int, high, low float64) []market.Candle {
	bars := make([]market.Candle, n)
	base := time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = market.Candle{
			Open: low, High: high, Low: low, Close: low,
			Volume: 1,
			Time:   base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return bars
}

func newTestAnalyzer(thresholdPips, margin float64) Analyzer {
	return NewAnalyzer(market.Instruments["EUR_USD"], config.VolatilityConfig{
		Enabled:            true,
		PeriodMinutes:      60,
		RangeThresholdPips: thresholdPips,
		MarginFraction:     margin,
	})
}

func TestAnalyze_ScenarioA_WideRangeRejected(t *testing.T) {
	t.Parallel()

	// High 1.1050 at index 5, low 1.1000 at index 2: a 50-pip window on a
	// 5-digit instrument against a 15-pip threshold must never pass.
	bars := flatBars(20, 1.1040, 1.1010)
	bars[5].High = 1.1050
	bars[2].Low = 1.1000

	w := newTestAnalyzer(15, 0.2).Analyze(bars, 1.1025)
	assert.False(t, w.Accepted)
}

func TestAnalyze_RangeTooWideReason(t *testing.T) {
	t.Parallel()

	// Same 50-pip width with both extremes aged past the minimum, so the
	// rejection is attributable to the threshold itself.
	bars := flatBars(20, 1.1040, 1.1010)
	bars[5].High = 1.1050
	bars[7].Low = 1.1000

	w := newTestAnalyzer(15, 0.2).Analyze(bars, 1.1025)
	assert.False(t, w.Accepted)
	assert.Equal(t, "range too wide", w.Reason)
	assert.InDelta(t, 50.0, w.RangePips, 1e-9)
}

func TestAnalyze_ScenarioB_Accept(t *testing.T) {
	t.Parallel()

	// High 1.1015 at index 10, low 1.1000 at index 8, threshold 15 pips,
	// margin 0.2, bid 1.1008 inside [1.1003, 1.1012].
	bars := flatBars(20, 1.1010, 1.1005)
	bars[10].High = 1.1015
	bars[8].Low = 1.1000

	w := newTestAnalyzer(15, 0.2).Analyze(bars, 1.1008)
	require.True(t, w.Accepted, "reason: %s", w.Reason)
	assert.InDelta(t, 15.0, w.RangePips, 1e-9)
	assert.InDelta(t, 1.1003, w.Lower, 1e-9)
	assert.InDelta(t, 1.1012, w.Upper, 1e-9)
	assert.Equal(t, 10, w.HighAge)
	assert.Equal(t, 8, w.LowAge)
}

func TestAnalyze_ScenarioC_ExtremeTooRecent(t *testing.T) {
	t.Parallel()

	bars := flatBars(20, 1.1010, 1.1005)
	bars[1].High = 1.1015 // fresher than the 3-bar minimum age
	bars[8].Low = 1.1000

	w := newTestAnalyzer(15, 0.2).Analyze(bars, 1.1008)
	assert.False(t, w.Accepted)
	assert.Equal(t, "extreme too recent", w.Reason)
}

func TestAnalyze_BidOutsideZone(t *testing.T) {
	t.Parallel()

	bars := flatBars(20, 1.1010, 1.1005)
	bars[10].High = 1.1015
	bars[8].Low = 1.1000

	a := newTestAnalyzer(15, 0.2)

	w := a.Analyze(bars, 1.1002) // below lower boundary 1.1003
	assert.False(t, w.Accepted)
	assert.Equal(t, "price outside entry zone", w.Reason)

	w = a.Analyze(bars, 1.1014) // above upper boundary 1.1012
	assert.False(t, w.Accepted)

	// Boundaries are inclusive.
	w = a.Analyze(bars, 1.1003)
	assert.True(t, w.Accepted)
}

func TestAnalyze_EmptyWindowRejected(t *testing.T) {
	t.Parallel()

	w := newTestAnalyzer(15, 0.2).Analyze(nil, 1.1008)
	assert.False(t, w.Accepted)
	assert.Equal(t, "no bars", w.Reason)
}

func TestAnalyze_DegenerateRangeRejected(t *testing.T) {
	t.Parallel()

	// All bars identical: zero-width range must not pass.
	bars := flatBars(20, 1.1005, 1.1005)
	w := newTestAnalyzer(15, 0.2).Analyze(bars, 1.1005)
	assert.False(t, w.Accepted)
	assert.Equal(t, "degenerate range", w.Reason)
}

func TestAnalyze_ZeroVolumePaddingInvariance(t *testing.T) {
	t.Parallel()

	bars := flatBars(20, 1.1010, 1.1005)
	bars[10].High = 1.1015
	bars[8].Low = 1.1000

	a := newTestAnalyzer(15, 0.2)
	base := a.Analyze(bars, 1.1008)
	require.True(t, base.Accepted)

	pad := market.Candle{Volume: 0} // inactive minute
	padded := append([]market.Candle{pad, pad}, bars...)
	padded = append(padded, pad, pad, pad)

	got := a.Analyze(padded, 1.1008)
	assert.Equal(t, base.Accepted, got.Accepted)
	assert.Equal(t, base.HighAge, got.HighAge)
	assert.Equal(t, base.LowAge, got.LowAge)
	assert.InDelta(t, base.RangePips, got.RangePips, 1e-9)
}

func TestAnalyze_FirstOccurrenceWinsOnTies(t *testing.T) {
	t.Parallel()

	bars := flatBars(20, 1.1010, 1.1005)
	bars[6].High = 1.1015
	bars[12].High = 1.1015 // equal high further back must not displace index 6
	bars[8].Low = 1.1000

	w := newTestAnalyzer(15, 0.2).Analyze(bars, 1.1008)
	assert.Equal(t, 6, w.HighAge)
}

func TestAnalyze_BoundariesWithinRange(t *testing.T) {
	t.Parallel()

	bars := flatBars(30, 1.1010, 1.1005)
	bars[5].High = 1.1014
	bars[9].Low = 1.1001

	w := newTestAnalyzer(20, 0.24).Analyze(bars, 1.1007)
	require.True(t, w.Accepted, "reason: %s", w.Reason)
	assert.LessOrEqual(t, w.Lower, w.Upper)
	assert.GreaterOrEqual(t, w.Lower, w.Low)
	assert.LessOrEqual(t, w.Upper, w.High)
}

func TestAnalyze_JPYPipNormalization(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer(market.Instruments["USD_JPY"], config.VolatilityConfig{
		RangeThresholdPips: 15,
		MarginFraction:     0.2,
	})

	// 3-digit instrument: 0.15 price range = 15 pips.
	bars := flatBars(20, 150.10, 150.05)
	bars[10].High = 150.15
	bars[8].Low = 150.00

	w := a.Analyze(bars, 150.07)
	require.True(t, w.Accepted, "reason: %s", w.Reason)
	assert.InDelta(t, 15.0, w.RangePips, 1e-6)
}
