package oanda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/akshayinamdar/LowVolatilityScalper/broker"
	"github.com/akshayinamdar/LowVolatilityScalper/market"
)

const (
	// PracticeURL is the URL for OANDA's practice/demo environment
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is the URL for OANDA's live trading environment
	LiveURL = "https://api-fxtrade.oanda.com"
)

// Granularity represents the time frame for candles
type Granularity string

const (
	S5  Granularity = "S5"  // 5 seconds
	S10 Granularity = "S10" // 10 seconds
	S15 Granularity = "S15" // 15 seconds
	S30 Granularity = "S30" // 30 seconds
	M1  Granularity = "M1"  // 1 minute
	M2  Granularity = "M2"  // 2 minutes
	M5  Granularity = "M5"  // 5 minutes
	M15 Granularity = "M15" // 15 minutes
	M30 Granularity = "M30" // 30 minutes
	H1  Granularity = "H1"  // 1 hour
	H4  Granularity = "H4"  // 4 hours
	D   Granularity = "D"   // 1 day
)

// Client implements broker.Broker against OANDA's v20 REST API.
type Client struct {
	baseURL    string
	token      string
	accountID  string
	httpClient *http.Client
}

// NewClient creates a new OANDA API client bound to one account.
func NewClient(token, accountID string, practice bool) *Client {
	baseURL := LiveURL
	if practice {
		baseURL = PracticeURL
	}

	return &Client{
		baseURL:   baseURL,
		token:     token,
		accountID: accountID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do executes an authenticated request and decodes the JSON response into
// out. Non-2xx order responses carry a rejection payload; those map to
// *broker.RejectError so callers can tell a venue rejection from a
// transport failure.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		var rej struct {
			ErrorCode    string `json:"errorCode"`
			ErrorMessage string `json:"errorMessage"`
		}
		if jerr := json.Unmarshal(raw, &rej); jerr == nil && rej.ErrorMessage != "" {
			code := rej.ErrorCode
			if code == "" {
				code = strconv.Itoa(resp.StatusCode)
			}
			return &broker.RejectError{Code: code, Message: rej.ErrorMessage}
		}
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// GetAccount fetches the account summary.
func (c *Client) GetAccount(ctx context.Context) (broker.Account, error) {
	var resp struct {
		Account struct {
			ID       string `json:"id"`
			Currency string `json:"currency"`
			Balance  string `json:"balance"`
			NAV      string `json:"NAV"`
		} `json:"account"`
	}
	path := fmt.Sprintf("/v3/accounts/%s/summary", c.accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return broker.Account{}, err
	}

	balance, err := parseFloat(resp.Account.Balance)
	if err != nil {
		return broker.Account{}, fmt.Errorf("parse balance: %w", err)
	}
	equity, err := parseFloat(resp.Account.NAV)
	if err != nil {
		return broker.Account{}, fmt.Errorf("parse NAV: %w", err)
	}

	return broker.Account{
		ID:       resp.Account.ID,
		Currency: resp.Account.Currency,
		Balance:  balance,
		Equity:   equity,
	}, nil
}

// GetTick fetches the current bid/ask for one instrument.
func (c *Client) GetTick(ctx context.Context, instrument string) (market.Tick, error) {
	var resp struct {
		Prices []struct {
			Instrument string `json:"instrument"`
			Time       string `json:"time"`
			Bids       []struct {
				Price string `json:"price"`
			} `json:"bids"`
			Asks []struct {
				Price string `json:"price"`
			} `json:"asks"`
		} `json:"prices"`
	}
	path := fmt.Sprintf("/v3/accounts/%s/pricing?instruments=%s", c.accountID, url.QueryEscape(instrument))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return market.Tick{}, err
	}
	if len(resp.Prices) == 0 {
		return market.Tick{}, fmt.Errorf("no pricing for %s", instrument)
	}

	p := resp.Prices[0]
	if len(p.Bids) == 0 || len(p.Asks) == 0 {
		return market.Tick{}, fmt.Errorf("pricing for %s has no tradeable quotes", instrument)
	}
	bid, err := parseFloat(p.Bids[0].Price)
	if err != nil {
		return market.Tick{}, fmt.Errorf("parse bid: %w", err)
	}
	ask, err := parseFloat(p.Asks[0].Price)
	if err != nil {
		return market.Tick{}, fmt.Errorf("parse ask: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, p.Time)
	if err != nil {
		return market.Tick{}, fmt.Errorf("parse time %s: %w", p.Time, err)
	}

	return market.Tick{
		Instrument: p.Instrument,
		Time:       t,
		Bid:        bid,
		Ask:        ask,
	}, nil
}

// candleData represents the OHLC data in the API response
type candleData struct {
	O string `json:"o"` // Open price
	H string `json:"h"` // High price
	L string `json:"l"` // Low price
	C string `json:"c"` // Close price
}

// apiCandle represents a single candle in the API response
type apiCandle struct {
	Complete bool       `json:"complete"`
	Volume   int        `json:"volume"`
	Time     string     `json:"time"`
	Mid      candleData `json:"mid,omitempty"`
}

// candlesResponse represents the API response for candles
type candlesResponse struct {
	Instrument  string      `json:"instrument"`
	Granularity string      `json:"granularity"`
	Candles     []apiCandle `json:"candles"`
}

// GetCandles fetches the most recent completed mid-price candles. The API
// returns oldest-first; the result is reversed so index 0 is the most
// recently completed bar.
func (c *Client) GetCandles(ctx context.Context, instrument, granularity string, count int) ([]market.Candle, error) {
	if instrument == "" {
		return nil, fmt.Errorf("instrument is required")
	}
	if count <= 0 || count > 5000 {
		return nil, fmt.Errorf("count must be in 1..5000, got %d", count)
	}

	params := url.Values{}
	params.Set("price", "M")
	params.Set("granularity", granularity)
	// Ask for one extra: the newest candle is usually still forming and
	// gets dropped as incomplete.
	params.Set("count", strconv.Itoa(count+1))

	path := fmt.Sprintf("/v3/instruments/%s/candles?%s", instrument, params.Encode())

	var apiResp candlesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &apiResp); err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(apiResp.Candles))
	for _, ac := range apiResp.Candles {
		if !ac.Complete {
			continue
		}

		t, err := time.Parse(time.RFC3339Nano, ac.Time)
		if err != nil {
			return nil, fmt.Errorf("parse time %s: %w", ac.Time, err)
		}

		open, err := parseFloat(ac.Mid.O)
		if err != nil {
			return nil, fmt.Errorf("parse open price: %w", err)
		}
		high, err := parseFloat(ac.Mid.H)
		if err != nil {
			return nil, fmt.Errorf("parse high price: %w", err)
		}
		low, err := parseFloat(ac.Mid.L)
		if err != nil {
			return nil, fmt.Errorf("parse low price: %w", err)
		}
		closePrice, err := parseFloat(ac.Mid.C)
		if err != nil {
			return nil, fmt.Errorf("parse close price: %w", err)
		}

		candles = append(candles, market.Candle{
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Time:   t,
			Volume: float64(ac.Volume),
		})
	}

	// Most-recent-first, trimmed to the requested count.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	if len(candles) > count {
		candles = candles[:count]
	}
	return candles, nil
}

// parseFloat parses a string to float64
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
