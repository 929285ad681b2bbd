package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InstrumentMeta carries the venue metadata the strategy needs to convert
// between raw prices, points and pips and to size and validate orders.
type InstrumentMeta struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string

	// Digits is the quote precision (decimal places). Point is the smallest
	// quotable increment, i.e. 10^-Digits.
	Digits int
	Point  float64

	// MinStopPoints is the broker-enforced minimum distance, in points,
	// between the current price and any stop or target level.
	MinStopPoints float64

	// PipValue is the account-currency value of one pip per full lot.
	PipValue float64

	VolumeMin  float64
	VolumeMax  float64
	VolumeStep float64

	MarginRate float64
}

// PipSize returns the price increment of one conventional pip. For 5- and
// 3-digit instruments a pip is ten points; elsewhere a pip equals a point.
func (m InstrumentMeta) PipSize() float64 {
	if m.Digits == 5 || m.Digits == 3 {
		return m.Point * 10
	}
	return m.Point
}

// PriceToPips converts a price delta to conventional pips.
func (m InstrumentMeta) PriceToPips(delta float64) float64 {
	return delta / m.PipSize()
}

// RoundPrice rounds a price to the instrument's quote precision.
func (m InstrumentMeta) RoundPrice(p float64) float64 {
	r, _ := decimal.NewFromFloat(p).Round(int32(m.Digits)).Float64()
	return r
}

// QuantizeVolume floors a raw volume to the instrument's volume step and
// clamps the result to [VolumeMin, VolumeMax].
func (m InstrumentMeta) QuantizeVolume(v float64) float64 {
	if m.VolumeStep > 0 {
		step := decimal.NewFromFloat(m.VolumeStep)
		q := decimal.NewFromFloat(v).Div(step).Floor().Mul(step)
		v, _ = q.Float64()
	}
	if v < m.VolumeMin {
		v = m.VolumeMin
	}
	if v > m.VolumeMax {
		v = m.VolumeMax
	}
	return v
}

var Instruments = map[string]InstrumentMeta{
	"EUR_USD": {
		Name:          "EUR_USD",
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
		Digits:        5,
		Point:         0.00001,
		MinStopPoints: 50,
		PipValue:      10.0,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
		MarginRate:    0.02,
	},
	"GBP_USD": {
		Name:          "GBP_USD",
		BaseCurrency:  "GBP",
		QuoteCurrency: "USD",
		Digits:        5,
		Point:         0.00001,
		MinStopPoints: 50,
		PipValue:      10.0,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
		MarginRate:    0.03,
	},
	"USD_JPY": {
		Name:          "USD_JPY",
		BaseCurrency:  "USD",
		QuoteCurrency: "JPY",
		Digits:        3,
		Point:         0.001,
		MinStopPoints: 50,
		PipValue:      9.1,
		VolumeMin:     0.01,
		VolumeMax:     100,
		VolumeStep:    0.01,
		MarginRate:    0.02,
	},
	"BTC_USD": {
		Name:          "BTC_USD",
		BaseCurrency:  "BTC",
		QuoteCurrency: "USD",
		Digits:        2,
		Point:         0.01,
		MinStopPoints: 500,
		PipValue:      0.01,
		VolumeMin:     0.001,
		VolumeMax:     10,
		VolumeStep:    0.001,
		MarginRate:    0.5,
	},
}

// Lookup returns the metadata for a known instrument.
func Lookup(name string) (InstrumentMeta, error) {
	m, ok := Instruments[name]
	if !ok {
		return InstrumentMeta{}, fmt.Errorf("unknown instrument: %s", name)
	}
	return m, nil
}
