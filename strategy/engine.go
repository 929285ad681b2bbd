package strategy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/indicators"
	"github.com/akshayinamdar/LowVolatilityScalper/journal"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
	"github.com/akshayinamdar/LowVolatilityScalper/metrics"
	"github.com/akshayinamdar/LowVolatilityScalper/pkg/id"
)

// Engine owns all mutable strategy state and runs the cycle: reconcile the
// tracker against the venue, manage every open position, and, when a check
// is due and the gates pass, decide and place a new trade. One cycle runs to
// completion before the next starts; nothing here is safe for concurrent
// use.
type Engine struct {
	cfg  *config.Config
	meta market.InstrumentMeta

	venue    broker.Broker
	provider indicators.Provider
	journal  journal.Journal
	log      zerolog.Logger
	clock    Clock
	rng      *rand.Rand

	sched    *Scheduler
	analyzer Analyzer
	signals  *Generator
	sizer    Sizer
	tracker  *Tracker
	trailer  *Trailer
	limiter  *LossLimiter

	sessionID string
	stats     *Stats
}

// Option overrides an engine dependency, mainly for tests.
type Option func(*Engine)

func WithClock(c Clock) Option                        { return func(e *Engine) { e.clock = c } }
func WithJournal(j journal.Journal) Option            { return func(e *Engine) { e.journal = j } }
func WithProvider(p indicators.Provider) Option       { return func(e *Engine) { e.provider = p } }
func WithLogger(log zerolog.Logger) Option            { return func(e *Engine) { e.log = log } }

func New(cfg *config.Config, venue broker.Broker, opts ...Option) (*Engine, error) {
	meta, err := market.Lookup(cfg.Session.Instrument)
	if err != nil {
		return nil, err
	}

	seed := cfg.Session.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		cfg:       cfg,
		meta:      meta,
		venue:     venue,
		journal:   journal.Nop{},
		log:       zerolog.Nop(),
		clock:     RealClock(),
		rng:       rand.New(rand.NewSource(seed)),
		sessionID: id.New(),
		stats:     &Stats{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With().Str("session", e.sessionID).Str("instrument", meta.Name).Logger()

	if e.provider == nil {
		e.provider = indicators.NewCandleProvider(venue)
	}

	e.sched = NewScheduler(cfg.Schedule, e.rng)
	e.analyzer = NewAnalyzer(meta, cfg.Volatility)
	e.signals, err = NewGenerator(cfg.Signal, meta.Name, e.provider, e.rng, e.clock, e.log)
	if err != nil {
		return nil, err
	}
	e.sizer = NewSizer(meta, cfg.Orders, cfg.Session.StrategyID)
	e.tracker = NewTracker()
	e.trailer = NewTrailer(meta, cfg.Trailing, venue, e.journal, e.sessionID, e.stats, e.log)
	e.limiter = NewLossLimiter(meta, cfg.TimeLimit, venue, e.journal, e.sessionID, e.stats, e.log)

	return e, nil
}

func (e *Engine) SessionID() string { return e.sessionID }
func (e *Engine) Stats() *Stats     { return e.stats }
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Run drives cycles at the given cadence until the context is cancelled.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	e.log.Info().
		Str("mode", e.cfg.Signal.Mode).
		Int64("strategy_id", e.cfg.Session.StrategyID).
		Msg("engine started")
	defer e.signals.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Str("stats", e.stats.Summary()).Msg("engine stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := e.Cycle(ctx); err != nil {
				e.log.Error().Err(err).Msg("cycle failed")
			}
		}
	}
}

// Cycle runs one complete tick: day rollover, ledger reconciliation,
// position management, and (when due) the entry decision. A returned error
// means the cycle was abandoned; the next one re-evaluates from scratch.
func (e *Engine) Cycle(ctx context.Context) error {
	now := e.clock.Now()
	e.stats.Cycles++
	metrics.Cycles.Inc()

	if e.sched.IsNewDay(now) {
		e.sched.ResetDay(now)
		e.log.Info().Time("day", e.sched.Counters().Day).Msg("daily counters reset")
	}

	open, err := e.venue.OpenTrades(ctx, e.meta.Name, e.cfg.Session.StrategyID)
	if err != nil {
		return fmt.Errorf("list open trades: %w", err)
	}

	for _, ticket := range e.tracker.Reconcile(open) {
		metrics.PositionsReconciled.Inc()
		e.log.Info().Str("ticket", ticket).Msg("position closed at venue, record dropped")
		if jerr := e.journal.RecordEvent(journal.Event{
			SessionID: e.sessionID,
			Ticket:    ticket,
			Type:      journal.EventReconciled,
			Time:      now,
		}); jerr != nil {
			e.log.Warn().Err(jerr).Msg("journal event failed")
		}
	}

	tick, err := e.venue.GetTick(ctx, e.meta.Name)
	if err != nil {
		return fmt.Errorf("get tick: %w", err)
	}

	e.managePositions(ctx, open, tick, now)

	if !e.sched.IsDue(now) {
		return nil
	}
	next := e.sched.ScheduleNext(now)
	e.stats.ChecksRun++
	metrics.Checks.Inc()
	e.log.Debug().Time("next_check", next).Msg("entry check running")

	if !e.gatesPass(now, len(open)) {
		return nil
	}

	if e.cfg.Volatility.Enabled {
		candles, err := e.venue.GetCandles(ctx, e.meta.Name, "M1", e.cfg.Volatility.PeriodMinutes)
		if err != nil {
			return fmt.Errorf("get candles: %w", err)
		}
		w := e.analyzer.Analyze(candles, tick.Bid)
		e.log.Debug().
			Float64("high", w.High).Int("high_age", w.HighAge).
			Float64("low", w.Low).Int("low_age", w.LowAge).
			Float64("range_pips", w.RangePips).
			Float64("lower", w.Lower).Float64("upper", w.Upper).
			Bool("accepted", w.Accepted).Str("reason", w.Reason).
			Msg("volatility window")
		if !w.Accepted {
			return nil
		}
	}

	dir, ok := e.signals.Direction(ctx, tick.Bid)
	if !ok {
		e.log.Debug().Msg("no directional signal")
		return nil
	}

	return e.place(ctx, dir, tick, now)
}

// managePositions runs trailing and time-limit management for every tracked
// open position. It runs every cycle regardless of whether a check is due.
func (e *Engine) managePositions(ctx context.Context, open []broker.Position, tick market.Tick, now time.Time) {
	for _, pos := range open {
		rec, ok := e.tracker.Get(pos.Ticket)
		if !ok {
			// Position predates this session or was opened manually with
			// our strategy tag; adopt it so it gets managed.
			rec = e.tracker.Add(pos.Ticket, pos.OpenTime)
		}

		if e.cfg.Trailing.Enabled {
			if err := e.trailer.Manage(ctx, pos, rec, tick); err != nil {
				e.log.Warn().Err(err).Str("ticket", pos.Ticket).Msg("trailing update failed")
			}
		}
		if e.cfg.TimeLimit.Enabled {
			e.limiter.Manage(ctx, pos, rec, tick, now)
		}
	}
}

func (e *Engine) gatesPass(now time.Time, openCount int) bool {
	if !e.withinTradingHours(now) {
		e.log.Debug().Msg("outside trading hours")
		return false
	}
	if e.sched.DailyTrades() >= e.cfg.Session.MaxDailyTrades {
		e.log.Debug().Int("daily_trades", e.sched.DailyTrades()).Msg("daily trade cap reached")
		return false
	}
	if openCount >= e.cfg.Session.MaxOpenTrades {
		e.log.Debug().Int("open", openCount).Msg("concurrent position cap reached")
		return false
	}
	return true
}

func (e *Engine) withinTradingHours(now time.Time) bool {
	start, _ := config.ParseHHMM(e.cfg.Session.TradeStart)
	end, _ := config.ParseHHMM(e.cfg.Session.TradeEnd)
	minute := now.UTC().Hour()*60 + now.UTC().Minute()

	if start <= end {
		return minute >= start && minute < end
	}
	// Overnight window, e.g. 22:00-06:00.
	return minute >= start || minute < end
}

func (e *Engine) place(ctx context.Context, dir broker.Direction, tick market.Tick, now time.Time) error {
	acct, err := e.venue.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	req, err := e.sizer.Build(dir, tick, acct)
	if err != nil {
		e.log.Warn().Err(err).
			Str("direction", dir.String()).
			Float64("bid", tick.Bid).Float64("ask", tick.Ask).
			Msg("order build rejected")
		return nil
	}

	metrics.OrdersSubmitted.Inc()
	fill, err := e.venue.SubmitOrder(ctx, req)
	if err != nil {
		metrics.OrdersRejected.Inc()
		var rej *broker.RejectError
		if errors.As(err, &rej) {
			e.log.Warn().
				Str("code", rej.Code).Str("message", rej.Message).
				Str("direction", dir.String()).
				Float64("stop", req.StopLoss).Float64("target", req.TakeProfit).
				Msg("order rejected by venue")
			return nil
		}
		// Transport failure: identical handling, no state committed.
		e.log.Warn().Err(err).Msg("order submission failed")
		return nil
	}

	e.sched.RecordTrade()
	e.stats.TradesOpened++
	openTime := fill.Time
	if openTime.IsZero() {
		openTime = now
	}
	e.tracker.Add(fill.Ticket, openTime)

	e.log.Info().
		Str("ticket", fill.Ticket).
		Str("direction", dir.String()).
		Float64("volume", req.Volume).
		Float64("fill", fill.Price).
		Float64("stop", req.StopLoss).
		Float64("target", req.TakeProfit).
		Int("daily_trades", e.sched.DailyTrades()).
		Msg("trade opened")

	if err := e.journal.RecordTrade(journal.TradeRecord{
		SessionID:  e.sessionID,
		Ticket:     fill.Ticket,
		Instrument: req.Instrument,
		Direction:  dir.String(),
		Volume:     req.Volume,
		EntryPrice: fill.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OpenTime:   openTime,
	}); err != nil {
		e.log.Warn().Err(err).Msg("journal trade failed")
	}
	return nil
}
