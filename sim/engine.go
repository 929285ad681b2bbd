// Package sim provides an in-memory execution venue used by tests and the
// sim command. It fills market orders at the current quote, evaluates
// stop-loss and take-profit triggers on every tick update, and keeps closed
// trades around so closure shows up as absence from the open-trade list.
package sim

import (
	"context"
	"fmt"
	"sort"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

type Engine struct {
	acct    broker.Account
	ticks   *market.TickStore
	candles map[string][]market.Candle
	trades  map[string]*Trade
	nextID  int

	// Failure injection for tests.
	rejectNext    *broker.RejectError
	failNextOrder error
	failNextClose error
}

func NewEngine(acct broker.Account) *Engine {
	return &Engine{
		acct:    acct,
		ticks:   market.NewTickStore(),
		candles: make(map[string][]market.Candle),
		trades:  make(map[string]*Trade),
	}
}

// SetCandles installs the candle history served by GetCandles,
// most-recent-first.
func (e *Engine) SetCandles(instrument string, candles []market.Candle) {
	e.candles[instrument] = candles
}

// SetTick updates the current quote and evaluates protective triggers for
// every open trade on that instrument.
func (e *Engine) SetTick(t market.Tick) {
	e.ticks.Set(t)

	for _, tr := range e.sortedTrades() {
		if !tr.Open || tr.Instrument != t.Instrument {
			continue
		}
		closing := t.Bid
		if tr.Direction == broker.Short {
			closing = t.Ask
		}
		switch {
		case tr.hitStopLoss(closing):
			e.closeTrade(tr, tr.StopLoss, t, "stop_loss")
		case tr.hitTakeProfit(closing):
			e.closeTrade(tr, tr.TakeProfit, t, "take_profit")
		}
	}
}

// RejectNextOrder makes the next SubmitOrder fail with a venue rejection.
func (e *Engine) RejectNextOrder(code, msg string) {
	e.rejectNext = &broker.RejectError{Code: code, Message: msg}
}

// FailNextOrder makes the next SubmitOrder fail with a transport error.
func (e *Engine) FailNextOrder(err error) { e.failNextOrder = err }

// FailNextClose makes the next CloseTrade fail with a transport error.
func (e *Engine) FailNextClose(err error) { e.failNextClose = err }

// Trade exposes the simulated trade for assertions.
func (e *Engine) Trade(ticket string) (*Trade, bool) {
	t, ok := e.trades[ticket]
	return t, ok
}

func (e *Engine) GetAccount(ctx context.Context) (broker.Account, error) {
	return e.acct, nil
}

func (e *Engine) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	return e.ticks.Get(instrument)
}

func (e *Engine) GetCandles(ctx context.Context, instrument, granularity string, count int) ([]market.Candle, error) {
	hist := e.candles[instrument]
	if count < len(hist) {
		return hist[:count], nil
	}
	return hist, nil
}

func (e *Engine) SubmitOrder(ctx context.Context, req broker.TradeRequest) (broker.OrderFill, error) {
	if err := e.failNextOrder; err != nil {
		e.failNextOrder = nil
		return broker.OrderFill{}, err
	}
	if rej := e.rejectNext; rej != nil {
		e.rejectNext = nil
		return broker.OrderFill{}, rej
	}

	t, err := e.ticks.Get(req.Instrument)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("submit order: %w", err)
	}
	if req.Volume <= 0 {
		return broker.OrderFill{}, &broker.RejectError{Code: "INVALID_VOLUME", Message: "volume must be positive"}
	}

	fillPrice := t.Ask
	if req.Direction == broker.Short {
		fillPrice = t.Bid
	}

	e.nextID++
	ticket := fmt.Sprintf("SIM-%d", e.nextID)
	e.trades[ticket] = &Trade{
		Ticket:     ticket,
		Instrument: req.Instrument,
		Direction:  req.Direction,
		Volume:     req.Volume,
		EntryPrice: fillPrice,
		OpenTime:   t.Time,
		StrategyID: req.StrategyID,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Open:       true,
	}

	return broker.OrderFill{
		Ticket:     ticket,
		Instrument: req.Instrument,
		Price:      fillPrice,
		Time:       t.Time,
	}, nil
}

func (e *Engine) ModifyTrade(ctx context.Context, ticket string, stopLoss, takeProfit float64) error {
	tr, ok := e.trades[ticket]
	if !ok || !tr.Open {
		return fmt.Errorf("modify trade: trade %q not open", ticket)
	}
	tr.StopLoss = stopLoss
	tr.TakeProfit = takeProfit
	return nil
}

func (e *Engine) CloseTrade(ctx context.Context, ticket string) error {
	if err := e.failNextClose; err != nil {
		e.failNextClose = nil
		return err
	}

	tr, ok := e.trades[ticket]
	if !ok || !tr.Open {
		return fmt.Errorf("close trade: trade %q not open", ticket)
	}
	t, err := e.ticks.Get(tr.Instrument)
	if err != nil {
		return fmt.Errorf("close trade: %w", err)
	}

	price := t.Bid
	if tr.Direction == broker.Short {
		price = t.Ask
	}
	e.closeTrade(tr, price, t, "market_close")
	return nil
}

func (e *Engine) OpenTrades(ctx context.Context, instrument string, strategyID int64) ([]broker.Position, error) {
	var out []broker.Position
	for _, tr := range e.sortedTrades() {
		if !tr.Open || tr.Instrument != instrument || tr.StrategyID != strategyID {
			continue
		}
		out = append(out, broker.Position{
			Ticket:     tr.Ticket,
			Instrument: tr.Instrument,
			Direction:  tr.Direction,
			Volume:     tr.Volume,
			OpenPrice:  tr.EntryPrice,
			OpenTime:   tr.OpenTime,
			StopLoss:   tr.StopLoss,
			TakeProfit: tr.TakeProfit,
			StrategyID: tr.StrategyID,
		})
	}
	return out, nil
}

func (e *Engine) closeTrade(tr *Trade, price float64, t market.Tick, reason string) {
	meta, err := market.Lookup(tr.Instrument)
	if err != nil {
		meta = market.InstrumentMeta{Point: 0.00001, Digits: 5, PipValue: 10}
	}

	pips := meta.PriceToPips(price-tr.EntryPrice) * tr.Direction.Sign()
	tr.Open = false
	tr.ClosePrice = price
	tr.CloseTime = t.Time
	tr.CloseReason = reason
	tr.RealizedPL = pips * meta.PipValue * tr.Volume

	e.acct.Balance += tr.RealizedPL
	e.acct.Equity = e.acct.Balance
}

// sortedTrades returns trades in ticket order so trigger evaluation and
// listings are deterministic.
func (e *Engine) sortedTrades() []*Trade {
	keys := make([]string, 0, len(e.trades))
	for k := range e.trades {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Trade, len(keys))
	for i, k := range keys {
		out[i] = e.trades[k]
	}
	return out
}
