package strategy

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/indicators"
)

// Mode selects the decision source for entry direction.
type Mode int

const (
	ModeRandom Mode = iota
	ModeTrend
	ModeHybrid
)

func ParseMode(s string) (Mode, error) {
	switch s {
	case "random":
		return ModeRandom, nil
	case "trend":
		return ModeTrend, nil
	case "hybrid":
		return ModeHybrid, nil
	}
	return ModeRandom, fmt.Errorf("unknown signal mode: %q", s)
}

// Generator resolves exactly one directional decision per qualified cycle.
// Trend mode polls the external moving-average provider with a bounded retry
// budget; hybrid mode falls back to a random draw when the trend source
// yields nothing, so a qualified cycle still produces a direction.
type Generator struct {
	mode       Mode
	cfg        config.SignalConfig
	instrument string

	provider indicators.Provider
	handle   indicators.Handle
	method   indicators.Method

	rng   *rand.Rand
	clock Clock
	log   zerolog.Logger
}

func NewGenerator(cfg config.SignalConfig, instrument string, provider indicators.Provider, rng *rand.Rand, clock Clock, log zerolog.Logger) (*Generator, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	method, err := indicators.ParseMethod(cfg.MAMethod)
	if err != nil {
		return nil, err
	}
	return &Generator{
		mode:       mode,
		cfg:        cfg,
		instrument: instrument,
		provider:   provider,
		method:     method,
		rng:        rng,
		clock:      clock,
		log:        log.With().Str("component", "signal").Logger(),
	}, nil
}

// Direction produces the entry decision. ok is false only when trend mode is
// configured without fallback and the indicator yields no usable signal.
func (g *Generator) Direction(ctx context.Context, bid float64) (broker.Direction, bool) {
	switch g.mode {
	case ModeRandom:
		return g.random(), true
	case ModeTrend:
		return g.trend(ctx, bid)
	default: // hybrid
		if dir, ok := g.trend(ctx, bid); ok {
			return dir, true
		}
		dir := g.random()
		g.log.Debug().Str("direction", dir.String()).Msg("trend unavailable, random fallback")
		return dir, true
	}
}

func (g *Generator) random() broker.Direction {
	if g.rng.Intn(2) == 0 {
		return broker.Long
	}
	return broker.Short
}

func (g *Generator) trend(ctx context.Context, bid float64) (broker.Direction, bool) {
	if !g.handle.Valid() {
		h, err := g.provider.Create(ctx, g.instrument, g.cfg.MATimeframe, g.cfg.MAPeriod, g.method)
		if err != nil {
			g.log.Warn().Err(err).Msg("indicator create failed")
			return broker.Long, false
		}
		g.handle = h
	}

	ma, err := indicators.PollValue(ctx, g.provider, g.handle, indicators.PollConfig{
		Attempts:   g.cfg.PollAttempts,
		BackoffMin: time.Duration(g.cfg.PollBackoffMinMS) * time.Millisecond,
		BackoffMax: time.Duration(g.cfg.PollBackoffMaxMS) * time.Millisecond,
		Sleep:      g.clock.Sleep,
		Rand:       g.rng,
	})
	if err != nil {
		g.log.Warn().Err(err).Int("attempts", g.cfg.PollAttempts).Msg("indicator poll exhausted")
		return broker.Long, false
	}
	if ma <= 0 {
		g.log.Warn().Float64("ma", ma).Msg("indicator value invalid")
		return broker.Long, false
	}

	switch {
	case bid > ma:
		return broker.Long, true
	case bid < ma:
		return broker.Short, true
	default:
		return broker.Long, false // price sitting on the MA carries no signal
	}
}

// Close releases the indicator handle, if one was created.
func (g *Generator) Close() {
	if g.handle.Valid() {
		g.provider.Release(g.handle)
		g.handle = indicators.Handle{}
	}
}
