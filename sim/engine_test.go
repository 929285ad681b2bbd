package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

func newTestEngine() *Engine {
	return NewEngine(broker.Account{ID: "SIM-001", Currency: "USD", Balance: 10000, Equity: 10000})
}

func tick(bid, ask float64, at time.Time) market.Tick {
	return market.Tick{Instrument: "EUR_USD", Time: at, Bid: bid, Ask: ask}
}

var t0 = time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)

func TestSubmitOrder_FillsAtQuote(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	e.SetTick(tick(1.1000, 1.1002, t0))

	fill, err := e.SubmitOrder(context.Background(), broker.TradeRequest{
		Instrument: "EUR_USD",
		Direction:  broker.Long,
		Volume:     0.1,
		StopLoss:   1.0990,
		TakeProfit: 1.1012,
		StrategyID: 42,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.1002, fill.Price, 1e-9) // long fills at ask

	open, err := e.OpenTrades(context.Background(), "EUR_USD", 42)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, fill.Ticket, open[0].Ticket)
	assert.InDelta(t, 1.0990, open[0].StopLoss, 1e-9)
}

func TestOpenTrades_FiltersByStrategyID(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	e.SetTick(tick(1.1000, 1.1002, t0))

	_, err := e.SubmitOrder(context.Background(), broker.TradeRequest{
		Instrument: "EUR_USD", Direction: broker.Long, Volume: 0.1, StrategyID: 1,
	})
	require.NoError(t, err)
	_, err = e.SubmitOrder(context.Background(), broker.TradeRequest{
		Instrument: "EUR_USD", Direction: broker.Short, Volume: 0.1, StrategyID: 2,
	})
	require.NoError(t, err)

	open, err := e.OpenTrades(context.Background(), "EUR_USD", 1)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestStopLossTrigger_Long(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	e.SetTick(tick(1.1000, 1.1002, t0))

	fill, err := e.SubmitOrder(context.Background(), broker.TradeRequest{
		Instrument: "EUR_USD", Direction: broker.Long, Volume: 0.1,
		StopLoss: 1.0990, StrategyID: 42,
	})
	require.NoError(t, err)

	// Bid falls through the stop.
	e.SetTick(tick(1.0989, 1.0991, t0.Add(time.Minute)))

	open, err := e.OpenTrades(context.Background(), "EUR_USD", 42)
	require.NoError(t, err)
	assert.Empty(t, open)

	tr, ok := e.Trade(fill.Ticket)
	require.True(t, ok)
	assert.False(t, tr.Open)
	assert.Equal(t, "stop_loss", tr.CloseReason)
	assert.InDelta(t, 1.0990, tr.ClosePrice, 1e-9)
	assert.Less(t, tr.RealizedPL, 0.0)
}

func TestTakeProfitTrigger_Short(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	e.SetTick(tick(1.1000, 1.1002, t0))

	fill, err := e.SubmitOrder(context.Background(), broker.TradeRequest{
		Instrument: "EUR_USD", Direction: broker.Short, Volume: 0.1,
		TakeProfit: 1.0990, StrategyID: 42,
	})
	require.NoError(t, err)

	// Ask falls to the target.
	e.SetTick(tick(1.0986, 1.0989, t0.Add(time.Minute)))

	tr, ok := e.Trade(fill.Ticket)
	require.True(t, ok)
	assert.False(t, tr.Open)
	assert.Equal(t, "take_profit", tr.CloseReason)
	assert.Greater(t, tr.RealizedPL, 0.0)
}

func TestModifyTrade(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	e.SetTick(tick(1.1000, 1.1002, t0))

	fill, err := e.SubmitOrder(context.Background(), broker.TradeRequest{
		Instrument: "EUR_USD", Direction: broker.Long, Volume: 0.1,
		StopLoss: 1.0990, TakeProfit: 1.1012, StrategyID: 42,
	})
	require.NoError(t, err)

	require.NoError(t, e.ModifyTrade(context.Background(), fill.Ticket, 1.0995, 1.1012))
	tr, _ := e.Trade(fill.Ticket)
	assert.InDelta(t, 1.0995, tr.StopLoss, 1e-9)
	assert.InDelta(t, 1.1012, tr.TakeProfit, 1e-9)

	assert.Error(t, e.ModifyTrade(context.Background(), "NOPE", 1, 1))
}

func TestCloseTrade(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	e.SetTick(tick(1.1000, 1.1002, t0))

	fill, err := e.SubmitOrder(context.Background(), broker.TradeRequest{
		Instrument: "EUR_USD", Direction: broker.Long, Volume: 0.1, StrategyID: 42,
	})
	require.NoError(t, err)

	e.SetTick(tick(1.0995, 1.0997, t0.Add(time.Minute)))
	require.NoError(t, e.CloseTrade(context.Background(), fill.Ticket))

	tr, _ := e.Trade(fill.Ticket)
	assert.False(t, tr.Open)
	assert.Equal(t, "market_close", tr.CloseReason)
	assert.InDelta(t, 1.0995, tr.ClosePrice, 1e-9) // long closes on bid

	assert.Error(t, e.CloseTrade(context.Background(), fill.Ticket))
}

func TestFailureInjection(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	e.SetTick(tick(1.1000, 1.1002, t0))

	e.RejectNextOrder("MARKET_HALTED", "trading halted")
	_, err := e.SubmitOrder(context.Background(), broker.TradeRequest{
		Instrument: "EUR_USD", Direction: broker.Long, Volume: 0.1,
	})
	var rej *broker.RejectError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "MARKET_HALTED", rej.Code)

	// Injection is one-shot.
	_, err = e.SubmitOrder(context.Background(), broker.TradeRequest{
		Instrument: "EUR_USD", Direction: broker.Long, Volume: 0.1,
	})
	assert.NoError(t, err)
}

func TestGetCandles_Truncates(t *testing.T) {
	t.Parallel()

	e := newTestEngine()
	candles := []market.Candle{
		{Close: 1.3, Volume: 1}, {Close: 1.2, Volume: 1}, {Close: 1.1, Volume: 1},
	}
	e.SetCandles("EUR_USD", candles)

	got, err := e.GetCandles(context.Background(), "EUR_USD", "M1", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.InDelta(t, 1.3, got[0].Close, 1e-9)

	got, err = e.GetCandles(context.Background(), "EUR_USD", "M1", 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = e.GetCandles(context.Background(), "GBP_USD", "M1", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
