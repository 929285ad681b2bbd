package indicators

import (
	"context"
	"errors"
	"fmt"

	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

// ErrNotReady is returned by Values while the provider's computation has not
// yet accumulated enough data. Callers are expected to poll Ready.
var ErrNotReady = errors.New("indicator not ready")

// Handle identifies one created indicator instance.
type Handle struct {
	id int
}

// Valid reports whether the handle refers to a created indicator.
func (h Handle) Valid() bool { return h.id > 0 }

// Provider is the external moving-average computation the strategy polls.
// Create may succeed while the underlying data is still warming up; Ready
// must be polled until true before Values yields meaningful numbers.
type Provider interface {
	Create(ctx context.Context, instrument, granularity string, period int, method Method) (Handle, error)
	Ready(ctx context.Context, h Handle) (bool, error)
	Values(ctx context.Context, h Handle, count int) ([]float64, error)
	Release(h Handle)
}

type maInstance struct {
	instrument  string
	granularity string
	period      int
	method      Method
}

// CandleProvider computes moving averages from a candle source. It becomes
// ready only once the source can supply a full warmup window, which models
// venue-side indicator computation that lags session start.
type CandleProvider struct {
	src    market.CandleSource
	nextID int
	open   map[int]maInstance

	// warmupFactor controls how much history beyond the period is fetched
	// so the recursive methods converge. 3 is plenty for intraday periods.
	warmupFactor int
}

func NewCandleProvider(src market.CandleSource) *CandleProvider {
	return &CandleProvider{
		src:          src,
		open:         make(map[int]maInstance),
		warmupFactor: 3,
	}
}

func (p *CandleProvider) Create(ctx context.Context, instrument, granularity string, period int, method Method) (Handle, error) {
	if period <= 0 {
		return Handle{}, fmt.Errorf("create indicator: period must be positive, got %d", period)
	}
	p.nextID++
	p.open[p.nextID] = maInstance{
		instrument:  instrument,
		granularity: granularity,
		period:      period,
		method:      method,
	}
	return Handle{id: p.nextID}, nil
}

func (p *CandleProvider) Ready(ctx context.Context, h Handle) (bool, error) {
	inst, ok := p.open[h.id]
	if !ok {
		return false, fmt.Errorf("indicator handle %d not found", h.id)
	}
	need := inst.period * p.warmupFactor
	candles, err := p.src.GetCandles(ctx, inst.instrument, inst.granularity, need)
	if err != nil {
		return false, fmt.Errorf("indicator readiness: %w", err)
	}
	return len(candles) >= inst.period, nil
}

// Values returns count moving-average values, most-recent-first. A short
// read (fewer than count values) occurs when history covers the period but
// not every requested shift.
func (p *CandleProvider) Values(ctx context.Context, h Handle, count int) ([]float64, error) {
	inst, ok := p.open[h.id]
	if !ok {
		return nil, fmt.Errorf("indicator handle %d not found", h.id)
	}
	need := inst.period*p.warmupFactor + count
	candles, err := p.src.GetCandles(ctx, inst.instrument, inst.granularity, need)
	if err != nil {
		return nil, fmt.Errorf("indicator values: %w", err)
	}
	if len(candles) < inst.period {
		return nil, ErrNotReady
	}

	var out []float64
	for shift := 0; shift < count; shift++ {
		v, err := MovingAverage(candles, inst.period, shift, inst.method)
		if err != nil {
			break // short read
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, ErrNotReady
	}
	return out, nil
}

func (p *CandleProvider) Release(h Handle) {
	delete(p.open, h.id)
}
