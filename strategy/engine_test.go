package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/config"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
	"github.com/akshayinamdar/LowVolatilityScalper/sim"
)

var cycleStart = time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

func engineConfig() *config.Config {
	cfg := config.Default()
	cfg.Session.Seed = 7
	cfg.Session.TradeStart = "00:00"
	cfg.Session.TradeEnd = "23:59"
	cfg.Session.MaxDailyTrades = 5
	cfg.Session.MaxOpenTrades = 3
	cfg.Schedule.Randomized = false
	cfg.Schedule.ChecksPerHour = 60
	cfg.Signal.Mode = "random"
	cfg.Volatility.PeriodMinutes = 20
	return cfg
}

// acceptingCandles returns a window the analyzer accepts with bid 1.1008
// (high 1.1015 aged 10, low 1.1000 aged 8, 15-pip range, zone
// [1.1003, 1.1012]).
func acceptingCandles() []market.Candle {
	bars := flatBars(20, 1.1010, 1.1005)
	bars[10].High = 1.1015
	bars[8].Low = 1.1000
	return bars
}

func newCycleFixture(t *testing.T, cfg *config.Config) (*Engine, *sim.Engine, *fakeClock) {
	t.Helper()

	venue := sim.NewEngine(broker.Account{ID: "SIM", Currency: "USD", Balance: 10000, Equity: 10000})
	venue.SetCandles("EUR_USD", acceptingCandles())
	venue.SetTick(market.Tick{Instrument: "EUR_USD", Time: cycleStart, Bid: 1.1008, Ask: 1.1009})

	clock := &fakeClock{now: cycleStart}
	eng, err := New(cfg, venue, WithClock(clock))
	require.NoError(t, err)
	return eng, venue, clock
}

// runDueCycle advances the clock past the next scheduled check and runs one
// cycle.
func runDueCycle(t *testing.T, eng *Engine, clock *fakeClock) {
	t.Helper()
	clock.now = clock.now.Add(time.Minute)
	require.NoError(t, eng.Cycle(context.Background()))
}

func TestCycle_OpensTradeWhenQualified(t *testing.T) {
	t.Parallel()

	eng, venue, clock := newCycleFixture(t, engineConfig())

	// First cycle of the day establishes the schedule; no check runs yet.
	require.NoError(t, eng.Cycle(context.Background()))
	assert.Equal(t, 0, eng.Stats().TradesOpened)

	runDueCycle(t, eng, clock)

	assert.Equal(t, 1, eng.Stats().TradesOpened)
	assert.Equal(t, 1, eng.Tracker().Len())

	open, err := venue.OpenTrades(context.Background(), "EUR_USD", eng.cfg.Session.StrategyID)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Greater(t, open[0].StopLoss, 0.0)
	assert.Greater(t, open[0].TakeProfit, 0.0)
}

func TestCycle_DailyCapBlocksFurtherTrades(t *testing.T) {
	t.Parallel()

	cfg := engineConfig()
	cfg.Session.MaxDailyTrades = 1
	eng, _, clock := newCycleFixture(t, cfg)

	require.NoError(t, eng.Cycle(context.Background()))
	runDueCycle(t, eng, clock)
	require.Equal(t, 1, eng.Stats().TradesOpened)

	runDueCycle(t, eng, clock)
	runDueCycle(t, eng, clock)
	assert.Equal(t, 1, eng.Stats().TradesOpened, "daily cap holds")
}

func TestCycle_DayRolloverResetsDailyCount(t *testing.T) {
	t.Parallel()

	cfg := engineConfig()
	cfg.Session.MaxDailyTrades = 1
	eng, _, clock := newCycleFixture(t, cfg)

	require.NoError(t, eng.Cycle(context.Background()))
	runDueCycle(t, eng, clock)
	require.Equal(t, 1, eng.Stats().TradesOpened)

	// Cross midnight: counters reset, a new schedule is derived, and the
	// next due check may trade again.
	clock.now = time.Date(2024, 4, 3, 0, 0, 30, 0, time.UTC)
	require.NoError(t, eng.Cycle(context.Background()))
	assert.Equal(t, 0, eng.sched.DailyTrades())

	runDueCycle(t, eng, clock)
	assert.Equal(t, 2, eng.Stats().TradesOpened)
}

func TestCycle_ConcurrentCapBlocksEntry(t *testing.T) {
	t.Parallel()

	cfg := engineConfig()
	cfg.Session.MaxOpenTrades = 1
	eng, _, clock := newCycleFixture(t, cfg)

	require.NoError(t, eng.Cycle(context.Background()))
	runDueCycle(t, eng, clock)
	require.Equal(t, 1, eng.Tracker().Len())

	runDueCycle(t, eng, clock)
	assert.Equal(t, 1, eng.Stats().TradesOpened, "existing open position blocks new entries")
}

func TestCycle_OutsideTradingHours(t *testing.T) {
	t.Parallel()

	cfg := engineConfig()
	cfg.Session.TradeStart = "10:00"
	cfg.Session.TradeEnd = "11:00"
	eng, _, clock := newCycleFixture(t, cfg) // clock at 09:00

	require.NoError(t, eng.Cycle(context.Background()))
	runDueCycle(t, eng, clock)
	assert.Equal(t, 0, eng.Stats().TradesOpened)
}

func TestCycle_VolatilityRejectionSkipsEntry(t *testing.T) {
	t.Parallel()

	eng, venue, clock := newCycleFixture(t, engineConfig())
	// Replace history with a degenerate flat window.
	venue.SetCandles("EUR_USD", flatBars(20, 1.1008, 1.1008))

	require.NoError(t, eng.Cycle(context.Background()))
	runDueCycle(t, eng, clock)
	assert.Equal(t, 0, eng.Stats().TradesOpened)
}

func TestCycle_TransportFailureCommitsNothing(t *testing.T) {
	t.Parallel()

	eng, venue, clock := newCycleFixture(t, engineConfig())
	require.NoError(t, eng.Cycle(context.Background()))

	venue.FailNextOrder(errors.New("connection reset"))
	runDueCycle(t, eng, clock)

	assert.Equal(t, 0, eng.Stats().TradesOpened)
	assert.Equal(t, 0, eng.Tracker().Len())
	assert.Equal(t, 0, eng.sched.DailyTrades())

	// Next scheduled check re-evaluates from scratch and succeeds.
	runDueCycle(t, eng, clock)
	assert.Equal(t, 1, eng.Stats().TradesOpened)
}

func TestCycle_VenueRejectionCommitsNothing(t *testing.T) {
	t.Parallel()

	eng, venue, clock := newCycleFixture(t, engineConfig())
	require.NoError(t, eng.Cycle(context.Background()))

	venue.RejectNextOrder("INSUFFICIENT_MARGIN", "not enough margin")
	runDueCycle(t, eng, clock)

	assert.Equal(t, 0, eng.Stats().TradesOpened)
	assert.Equal(t, 0, eng.sched.DailyTrades())
}

func TestCycle_ReconcilesVenueClosedPositions(t *testing.T) {
	t.Parallel()

	eng, venue, clock := newCycleFixture(t, engineConfig())
	require.NoError(t, eng.Cycle(context.Background()))
	runDueCycle(t, eng, clock)
	require.Equal(t, 1, eng.Tracker().Len())

	open, _ := venue.OpenTrades(context.Background(), "EUR_USD", eng.cfg.Session.StrategyID)
	require.Len(t, open, 1)

	// Knock the position out through its stop at the venue.
	if open[0].Direction == broker.Long {
		venue.SetTick(market.Tick{Instrument: "EUR_USD", Time: clock.now, Bid: open[0].StopLoss - 0.0001, Ask: open[0].StopLoss + 0.0001})
	} else {
		venue.SetTick(market.Tick{Instrument: "EUR_USD", Time: clock.now, Bid: open[0].StopLoss - 0.0003, Ask: open[0].StopLoss + 0.0001})
	}

	require.NoError(t, eng.Cycle(context.Background()))
	assert.Equal(t, 0, eng.Tracker().Len(), "closure is inferred by absence")
}

func TestCycle_DeterministicGivenSeedAndData(t *testing.T) {
	t.Parallel()

	run := func() []broker.Direction {
		eng, venue, clock := newCycleFixture(t, engineConfig())
		require.NoError(t, eng.Cycle(context.Background()))
		for i := 0; i < 3; i++ {
			runDueCycle(t, eng, clock)
		}
		open, err := venue.OpenTrades(context.Background(), "EUR_USD", eng.cfg.Session.StrategyID)
		require.NoError(t, err)
		dirs := make([]broker.Direction, len(open))
		for i, p := range open {
			dirs[i] = p.Direction
		}
		return dirs
	}

	first := run()
	second := run()
	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "identical seeds and data reproduce identical decisions")
}

func TestWithinTradingHours_OvernightWindow(t *testing.T) {
	t.Parallel()

	cfg := engineConfig()
	cfg.Session.TradeStart = "22:00"
	cfg.Session.TradeEnd = "06:00"
	eng, _, _ := newCycleFixture(t, cfg)

	assert.True(t, eng.withinTradingHours(time.Date(2024, 4, 2, 23, 0, 0, 0, time.UTC)))
	assert.True(t, eng.withinTradingHours(time.Date(2024, 4, 2, 3, 0, 0, 0, time.UTC)))
	assert.False(t, eng.withinTradingHours(time.Date(2024, 4, 2, 12, 0, 0, 0, time.UTC)))
}
