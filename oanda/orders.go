package oanda

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

// unitsPerLot converts lot volume to OANDA units for a standard FX lot.
const unitsPerLot = 100000

// strategyTag formats the strategy identifier for clientExtensions, so
// positions can be filtered back out by owner.
func strategyTag(strategyID int64) string {
	return strconv.FormatInt(strategyID, 10)
}

func formatPrice(instrument string, price float64) string {
	digits := 5
	if meta, err := market.Lookup(instrument); err == nil {
		digits = meta.Digits
	}
	return strconv.FormatFloat(price, 'f', digits, 64)
}

type clientExtensions struct {
	Tag     string `json:"tag,omitempty"`
	Comment string `json:"comment,omitempty"`
}

type stopLossDetails struct {
	Price string `json:"price"`
}

type takeProfitDetails struct {
	Price string `json:"price"`
}

type marketOrderRequest struct {
	Type             string             `json:"type"`
	Instrument       string             `json:"instrument"`
	Units            string             `json:"units"`
	TimeInForce      string             `json:"timeInForce"`
	PositionFill     string             `json:"positionFill"`
	StopLossOnFill   *stopLossDetails   `json:"stopLossOnFill,omitempty"`
	TakeProfitOnFill *takeProfitDetails `json:"takeProfitOnFill,omitempty"`
	TradeExtensions  *clientExtensions  `json:"tradeClientExtensions,omitempty"`
}

// SubmitOrder places a market order with stop loss and take profit attached
// on fill. A cancelled order (no fill transaction) surfaces as
// *broker.RejectError carrying OANDA's cancellation reason.
func (c *Client) SubmitOrder(ctx context.Context, req broker.TradeRequest) (broker.OrderFill, error) {
	units := int64(math.Round(req.Volume * unitsPerLot))
	if req.Direction == broker.Short {
		units = -units
	}

	order := marketOrderRequest{
		Type:         "MARKET",
		Instrument:   req.Instrument,
		Units:        strconv.FormatInt(units, 10),
		TimeInForce:  "FOK",
		PositionFill: "DEFAULT",
		TradeExtensions: &clientExtensions{
			Tag:     strategyTag(req.StrategyID),
			Comment: req.Comment,
		},
	}
	if req.StopLoss > 0 {
		order.StopLossOnFill = &stopLossDetails{Price: formatPrice(req.Instrument, req.StopLoss)}
	}
	if req.TakeProfit > 0 {
		order.TakeProfitOnFill = &takeProfitDetails{Price: formatPrice(req.Instrument, req.TakeProfit)}
	}

	var resp struct {
		OrderFillTransaction *struct {
			Price       string `json:"price"`
			Time        string `json:"time"`
			TradeOpened *struct {
				TradeID string `json:"tradeID"`
			} `json:"tradeOpened"`
		} `json:"orderFillTransaction"`
		OrderCancelTransaction *struct {
			Reason string `json:"reason"`
		} `json:"orderCancelTransaction"`
	}

	path := fmt.Sprintf("/v3/accounts/%s/orders", c.accountID)
	body := struct {
		Order marketOrderRequest `json:"order"`
	}{Order: order}
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return broker.OrderFill{}, err
	}

	if resp.OrderFillTransaction == nil || resp.OrderFillTransaction.TradeOpened == nil {
		reason := "order not filled"
		if resp.OrderCancelTransaction != nil {
			reason = resp.OrderCancelTransaction.Reason
		}
		return broker.OrderFill{}, &broker.RejectError{Code: "ORDER_CANCELLED", Message: reason}
	}

	fillPrice, err := parseFloat(resp.OrderFillTransaction.Price)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("parse fill price: %w", err)
	}
	fillTime, err := time.Parse(time.RFC3339Nano, resp.OrderFillTransaction.Time)
	if err != nil {
		return broker.OrderFill{}, fmt.Errorf("parse fill time: %w", err)
	}

	return broker.OrderFill{
		Ticket:     resp.OrderFillTransaction.TradeOpened.TradeID,
		Instrument: req.Instrument,
		Price:      fillPrice,
		Time:       fillTime,
	}, nil
}

// ModifyTrade replaces the stop loss and take profit on an open trade.
// Passing 0 for either level leaves that side unset.
func (c *Client) ModifyTrade(ctx context.Context, ticket string, stopLoss, takeProfit float64) error {
	pos, err := c.findTrade(ctx, ticket)
	if err != nil {
		return err
	}

	body := struct {
		StopLoss   *stopLossDetails   `json:"stopLoss,omitempty"`
		TakeProfit *takeProfitDetails `json:"takeProfit,omitempty"`
	}{}
	if stopLoss > 0 {
		body.StopLoss = &stopLossDetails{Price: formatPrice(pos.Instrument, stopLoss)}
	}
	if takeProfit > 0 {
		body.TakeProfit = &takeProfitDetails{Price: formatPrice(pos.Instrument, takeProfit)}
	}

	path := fmt.Sprintf("/v3/accounts/%s/trades/%s/orders", c.accountID, ticket)
	return c.do(ctx, http.MethodPut, path, body, nil)
}

// CloseTrade fully closes an open trade at market.
func (c *Client) CloseTrade(ctx context.Context, ticket string) error {
	body := struct {
		Units string `json:"units"`
	}{Units: "ALL"}
	path := fmt.Sprintf("/v3/accounts/%s/trades/%s/close", c.accountID, ticket)
	return c.do(ctx, http.MethodPut, path, body, nil)
}

type apiTrade struct {
	ID           string `json:"id"`
	Instrument   string `json:"instrument"`
	Price        string `json:"price"`
	OpenTime     string `json:"openTime"`
	CurrentUnits string `json:"currentUnits"`
	StopLossOrder *struct {
		Price string `json:"price"`
	} `json:"stopLossOrder,omitempty"`
	TakeProfitOrder *struct {
		Price string `json:"price"`
	} `json:"takeProfitOrder,omitempty"`
	ClientExtensions *clientExtensions `json:"clientExtensions,omitempty"`
}

// OpenTrades lists open trades for the instrument that carry this strategy's
// client tag. Trades opened by other strategies on the same account are
// invisible here.
func (c *Client) OpenTrades(ctx context.Context, instrument string, strategyID int64) ([]broker.Position, error) {
	var resp struct {
		Trades []apiTrade `json:"trades"`
	}
	path := fmt.Sprintf("/v3/accounts/%s/openTrades", c.accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	tag := strategyTag(strategyID)
	positions := make([]broker.Position, 0, len(resp.Trades))
	for _, tr := range resp.Trades {
		if tr.Instrument != instrument {
			continue
		}
		if tr.ClientExtensions == nil || tr.ClientExtensions.Tag != tag {
			continue
		}
		pos, err := tr.toPosition(strategyID)
		if err != nil {
			return nil, fmt.Errorf("trade %s: %w", tr.ID, err)
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

func (c *Client) findTrade(ctx context.Context, ticket string) (broker.Position, error) {
	var resp struct {
		Trade apiTrade `json:"trade"`
	}
	path := fmt.Sprintf("/v3/accounts/%s/trades/%s", c.accountID, ticket)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return broker.Position{}, err
	}
	return resp.Trade.toPosition(0)
}

func (t apiTrade) toPosition(strategyID int64) (broker.Position, error) {
	units, err := parseFloat(t.CurrentUnits)
	if err != nil {
		return broker.Position{}, fmt.Errorf("parse units: %w", err)
	}
	price, err := parseFloat(t.Price)
	if err != nil {
		return broker.Position{}, fmt.Errorf("parse price: %w", err)
	}
	openTime, err := time.Parse(time.RFC3339Nano, t.OpenTime)
	if err != nil {
		return broker.Position{}, fmt.Errorf("parse open time: %w", err)
	}

	dir := broker.Long
	if units < 0 {
		dir = broker.Short
	}

	pos := broker.Position{
		Ticket:     t.ID,
		Instrument: t.Instrument,
		Direction:  dir,
		Volume:     math.Abs(units) / unitsPerLot,
		OpenPrice:  price,
		OpenTime:   openTime,
		StrategyID: strategyID,
	}
	if t.StopLossOrder != nil {
		if pos.StopLoss, err = parseFloat(t.StopLossOrder.Price); err != nil {
			return broker.Position{}, fmt.Errorf("parse stop loss: %w", err)
		}
	}
	if t.TakeProfitOrder != nil {
		if pos.TakeProfit, err = parseFloat(t.TakeProfitOrder.Price); err != nil {
			return broker.Position{}, fmt.Errorf("parse take profit: %w", err)
		}
	}
	return pos, nil
}
