package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		digits int
		point  float64
		want   float64
	}{
		{"five digit fx", 5, 0.00001, 0.0001},
		{"three digit jpy", 3, 0.001, 0.01},
		{"two digit crypto", 2, 0.01, 0.01},
		{"four digit fx", 4, 0.0001, 0.0001},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := InstrumentMeta{Digits: tt.digits, Point: tt.point}
			assert.InDelta(t, tt.want, m.PipSize(), 1e-12)
		})
	}
}

func TestPriceToPips(t *testing.T) {
	t.Parallel()

	m := Instruments["EUR_USD"]
	assert.InDelta(t, 50.0, m.PriceToPips(1.1050-1.1000), 1e-6)
	assert.InDelta(t, 15.0, m.PriceToPips(1.1015-1.1000), 1e-6)
}

func TestRoundPrice(t *testing.T) {
	t.Parallel()

	m := Instruments["EUR_USD"]
	assert.InDelta(t, 1.10057, m.RoundPrice(1.1005650001), 1e-9)

	jpy := Instruments["USD_JPY"]
	assert.InDelta(t, 150.123, jpy.RoundPrice(150.12349), 1e-9)
}

func TestQuantizeVolume(t *testing.T) {
	t.Parallel()

	m := Instruments["EUR_USD"]

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"floors to step", 0.1234, 0.12},
		{"clamps to min", 0.001, 0.01},
		{"clamps to max", 250, 100},
		{"exact step kept", 0.05, 0.05},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, m.QuantizeVolume(tt.in), 1e-9)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	m, err := Lookup("EUR_USD")
	require.NoError(t, err)
	assert.Equal(t, "EUR_USD", m.Name)

	_, err = Lookup("XXX_YYY")
	assert.Error(t, err)
}

func TestTickMidSpread(t *testing.T) {
	t.Parallel()

	tick := Tick{Bid: 1.1000, Ask: 1.1002}
	assert.InDelta(t, 1.1001, tick.Mid(), 1e-9)
	assert.InDelta(t, 0.0002, tick.Spread(), 1e-9)
}

func TestTickStore(t *testing.T) {
	t.Parallel()

	ps := NewTickStore()
	_, err := ps.Get("EUR_USD")
	assert.Error(t, err)

	ps.Set(Tick{Instrument: "EUR_USD", Bid: 1.1, Ask: 1.1002})
	got, err := ps.Get("EUR_USD")
	require.NoError(t, err)
	assert.InDelta(t, 1.1, got.Bid, 1e-9)
}
