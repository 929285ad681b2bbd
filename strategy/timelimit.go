package strategy

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/journal"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
	"github.com/akshayinamdar/LowVolatilityScalper/metrics"
)

// LossLimiter force-closes a losing position once it has been open past the
// configured time budget. The attempt happens at most once per position: the
// guard latches even when the close call fails, so a flaky venue cannot
// trigger a storm of repeated close orders.
type LossLimiter struct {
	meta market.InstrumentMeta
	cfg  config.TimeLimitConfig

	venue     broker.Broker
	journal   journal.Journal
	sessionID string
	stats     *Stats
	log       zerolog.Logger
}

func NewLossLimiter(meta market.InstrumentMeta, cfg config.TimeLimitConfig, venue broker.Broker, j journal.Journal, sessionID string, stats *Stats, log zerolog.Logger) *LossLimiter {
	return &LossLimiter{
		meta:      meta,
		cfg:       cfg,
		venue:     venue,
		journal:   j,
		sessionID: sessionID,
		stats:     stats,
		log:       log.With().Str("component", "time_limit").Logger(),
	}
}

// Manage runs one time-limit evaluation for one tracked position.
func (l *LossLimiter) Manage(ctx context.Context, pos broker.Position, rec *TrackingRecord, tick market.Tick, now time.Time) {
	if rec.LossTimeChecked {
		return
	}

	profit := profitPips(l.meta, pos, tick)
	if profit >= 0 {
		return
	}

	budget := time.Duration(l.cfg.MaxLossSeconds) * time.Second
	elapsed := now.Sub(rec.OpenTime)
	if elapsed < budget {
		return
	}

	// Latch before the close attempt: never re-attempt, even on failure.
	rec.LossTimeChecked = true

	err := l.venue.CloseTrade(ctx, pos.Ticket)
	if err != nil {
		l.log.Error().
			Err(err).
			Str("ticket", pos.Ticket).
			Dur("elapsed", elapsed).
			Msg("forced close failed, not retrying")
		return
	}

	l.stats.recordForcedClose(pos.Ticket, now, -profit)
	metrics.ForcedCloses.Inc()
	l.log.Info().
		Str("ticket", pos.Ticket).
		Float64("loss_pips", -profit).
		Dur("elapsed", elapsed).
		Msg("losing position closed on time limit")
	if jerr := l.journal.RecordEvent(journal.Event{
		SessionID:  l.sessionID,
		Ticket:     pos.Ticket,
		Type:       journal.EventForcedClose,
		Time:       now,
		ProfitPips: profit,
		Price:      closePrice(pos, tick),
		Detail:     "loss time limit exceeded",
	}); jerr != nil {
		l.log.Warn().Err(jerr).Msg("journal event failed")
	}
}
