package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/journal"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
	"github.com/akshayinamdar/LowVolatilityScalper/metrics"
)

// Trailer is the trailing-stop state machine. Per position it is Dormant
// until unrealized profit first reaches the activation threshold, then
// Active for the rest of the position's life.
//
// The new stop is placed at a distance from the current price equal to a
// percentage of accrued profit (the distance-from-current-price formula),
// and the stop only ever tightens: a long stop never moves down, a short
// stop never moves up.
type Trailer struct {
	meta market.InstrumentMeta
	cfg  config.TrailingConfig

	venue     broker.Broker
	journal   journal.Journal
	sessionID string
	stats     *Stats
	log       zerolog.Logger
}

func NewTrailer(meta market.InstrumentMeta, cfg config.TrailingConfig, venue broker.Broker, j journal.Journal, sessionID string, stats *Stats, log zerolog.Logger) *Trailer {
	return &Trailer{
		meta:      meta,
		cfg:       cfg,
		venue:     venue,
		journal:   j,
		sessionID: sessionID,
		stats:     stats,
		log:       log.With().Str("component", "trailing").Logger(),
	}
}

// profitPips is the sign-adjusted unrealized profit in pips, marked at the
// price the position would close at (bid for longs, ask for shorts).
func profitPips(meta market.InstrumentMeta, pos broker.Position, tick market.Tick) float64 {
	if pos.Direction == broker.Short {
		return meta.PriceToPips(pos.OpenPrice - tick.Ask)
	}
	return meta.PriceToPips(tick.Bid - pos.OpenPrice)
}

func closePrice(pos broker.Position, tick market.Tick) float64 {
	if pos.Direction == broker.Short {
		return tick.Ask
	}
	return tick.Bid
}

// Manage runs one trailing evaluation for one tracked position. It activates
// the trail at most once, then recomputes and, when the tighten-only rule
// allows, pushes a new stop to the venue carrying the unchanged take-profit.
func (t *Trailer) Manage(ctx context.Context, pos broker.Position, rec *TrackingRecord, tick market.Tick) error {
	profit := profitPips(t.meta, pos, tick)

	if !rec.TrailActivated {
		if profit < t.cfg.ActivationPips {
			return nil
		}
		rec.TrailActivated = true
		rec.TrailActivatedAt = tick.Time
		rec.ActivationProfitPips = profit
		t.stats.recordActivation(pos.Ticket, tick.Time, profit)
		t.log.Info().
			Str("ticket", pos.Ticket).
			Float64("profit_pips", profit).
			Msg("trailing activated")
		if err := t.journal.RecordEvent(journal.Event{
			SessionID:  t.sessionID,
			Ticket:     pos.Ticket,
			Type:       journal.EventTrailActivated,
			Time:       tick.Time,
			ProfitPips: profit,
			Price:      closePrice(pos, tick),
		}); err != nil {
			t.log.Warn().Err(err).Msg("journal event failed")
		}
	}

	distPips := profit * t.cfg.Percent / 100
	if distPips < t.cfg.MinDistancePips {
		distPips = t.cfg.MinDistancePips
	}
	dist := distPips * t.meta.PipSize()

	current := closePrice(pos, tick)
	var newStop float64
	if pos.Direction == broker.Long {
		newStop = t.meta.RoundPrice(current - dist)
	} else {
		newStop = t.meta.RoundPrice(current + dist)
	}

	if !tightens(pos, newStop) {
		return nil
	}

	if err := t.venue.ModifyTrade(ctx, pos.Ticket, newStop, pos.TakeProfit); err != nil {
		return fmt.Errorf("trailing stop update for %s: %w", pos.Ticket, err)
	}
	t.stats.StopMoves++
	metrics.StopMoves.Inc()
	t.log.Info().
		Str("ticket", pos.Ticket).
		Float64("old_stop", pos.StopLoss).
		Float64("new_stop", newStop).
		Float64("profit_pips", profit).
		Msg("stop tightened")
	if err := t.journal.RecordEvent(journal.Event{
		SessionID:  t.sessionID,
		Ticket:     pos.Ticket,
		Type:       journal.EventStopMoved,
		Time:       tick.Time,
		ProfitPips: profit,
		Price:      newStop,
	}); err != nil {
		t.log.Warn().Err(err).Msg("journal event failed")
	}
	return nil
}

// tightens enforces the monotonic stop contract. A position with no stop set
// accepts any trail-derived stop.
func tightens(pos broker.Position, newStop float64) bool {
	if pos.StopLoss == 0 {
		return true
	}
	if pos.Direction == broker.Long {
		return newStop > pos.StopLoss
	}
	return newStop < pos.StopLoss
}
