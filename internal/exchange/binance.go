package exchange

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fvgbot/internal/market"
)

const (
	DefaultBaseURL = "https://api.binance.com"
	SandboxBaseURL = "https://testnet.binance.vision"

	retryAttempts = 3
	backoffBase   = 1 * time.Second
	recvWindow    = 5000
)

// Client is a Binance spot REST gateway. Every call runs through a bounded
// retry with exponential backoff; rate limits and transport faults are
// retryable, anything else is terminal.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client

	attempts int
	backoff  time.Duration
	sleep    func(time.Duration)
}

func NewClient(baseURL, apiKey, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		attempts:   retryAttempts,
		backoff:    backoffBase,
		sleep:      time.Sleep,
	}
}

func (c *Client) FetchCandles(symbol string, timeframe market.Timeframe, limit int) ([]market.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", timeframe.String())
	params.Set("limit", strconv.Itoa(limit))

	var rows [][]any
	err := c.withRetries("fetch_candles", symbol, func() error {
		return c.call(http.MethodGet, "/api/v3/klines", params, false, &rows)
	})
	if err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := parseKline(row)
		if err != nil {
			return nil, &Error{Op: "fetch_candles", Symbol: symbol, Err: err}
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func (c *Client) FetchLastPrice(symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp struct {
		Price string `json:"price"`
	}
	err := c.withRetries("fetch_last_price", symbol, func() error {
		return c.call(http.MethodGet, "/api/v3/ticker/price", params, false, &resp)
	})
	if err != nil {
		return 0, err
	}

	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, &Error{Op: "fetch_last_price", Symbol: symbol, Err: fmt.Errorf("parse price %q: %w", resp.Price, err)}
	}
	return price, nil
}

func (c *Client) FetchBalance() (float64, error) {
	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	err := c.withRetries("fetch_balance", "", func() error {
		return c.call(http.MethodGet, "/api/v3/account", url.Values{}, true, &resp)
	})
	if err != nil {
		return 0, err
	}

	for _, b := range resp.Balances {
		if b.Asset == "USDT" || b.Asset == "USD" {
			free, err := strconv.ParseFloat(b.Free, 64)
			if err != nil {
				return 0, &Error{Op: "fetch_balance", Err: fmt.Errorf("parse balance %q: %w", b.Free, err)}
			}
			return free, nil
		}
	}
	return 0, nil
}

func (c *Client) PlaceMarketOrder(symbol, side string, amount float64) (Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", strings.ToUpper(side))
	params.Set("type", "MARKET")
	params.Set("quantity", formatQty(amount))

	var resp orderResponse
	err := c.withRetries("place_market_order", symbol, func() error {
		return c.call(http.MethodPost, "/api/v3/order", params, true, &resp)
	})
	if err != nil {
		return Order{}, err
	}

	price := resp.fillPrice()
	if price == 0 {
		// Market responses without fills carry no price; fall back to the ticker.
		if last, err := c.FetchLastPrice(symbol); err == nil {
			price = last
		}
	}

	order := Order{
		ID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Price:  price,
		Status: strings.ToLower(resp.Status),
	}
	log.Info().
		Str("id", order.ID).
		Str("symbol", symbol).
		Str("side", side).
		Float64("amount", amount).
		Msg("market order sent")
	return order, nil
}

func (c *Client) PlaceStopOrder(symbol, side string, amount, stopPrice float64) (Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", strings.ToUpper(side))
	params.Set("type", "STOP_LOSS")
	params.Set("quantity", formatQty(amount))
	params.Set("stopPrice", formatQty(stopPrice))

	var resp orderResponse
	err := c.withRetries("place_stop_order", symbol, func() error {
		return c.call(http.MethodPost, "/api/v3/order", params, true, &resp)
	})
	if err != nil {
		return Order{}, err
	}

	log.Info().Int64("id", resp.OrderID).Float64("stop", stopPrice).Msg("stop order sent")
	return Order{
		ID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Price:  stopPrice,
		Status: strings.ToLower(resp.Status),
	}, nil
}

func (c *Client) PlaceLimitOrder(symbol, side string, amount, price float64) (Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", strings.ToUpper(side))
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", formatQty(amount))
	params.Set("price", formatQty(price))

	var resp orderResponse
	err := c.withRetries("place_limit_order", symbol, func() error {
		return c.call(http.MethodPost, "/api/v3/order", params, true, &resp)
	})
	if err != nil {
		return Order{}, err
	}

	log.Info().Int64("id", resp.OrderID).Float64("price", price).Msg("limit order sent")
	return Order{
		ID:     strconv.FormatInt(resp.OrderID, 10),
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Price:  price,
		Status: strings.ToLower(resp.Status),
	}, nil
}

func (c *Client) MinOrderSize(symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var resp struct {
		Symbols []struct {
			Filters []struct {
				FilterType string `json:"filterType"`
				MinQty     string `json:"minQty"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	err := c.withRetries("min_order_size", symbol, func() error {
		return c.call(http.MethodGet, "/api/v3/exchangeInfo", params, false, &resp)
	})
	if err != nil {
		return 0, err
	}

	for _, s := range resp.Symbols {
		for _, f := range s.Filters {
			if f.FilterType == "LOT_SIZE" {
				minQty, err := strconv.ParseFloat(f.MinQty, 64)
				if err != nil {
					return 0, nil
				}
				return minQty, nil
			}
		}
	}
	return 0, nil
}

// withRetries runs fn with bounded exponential backoff. Terminal errors
// abort immediately; an exhausted retry budget surfaces a terminal error.
func (c *Client) withRetries(op, symbol string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return &Error{Op: op, Symbol: symbol, Err: err}
		}
		lastErr = err

		delay := c.backoff << attempt
		log.Warn().
			Str("op", op).
			Str("symbol", symbol).
			Dur("delay", delay).
			Err(err).
			Msg("transient exchange failure, backing off")
		c.sleep(delay)
	}
	return &Error{Op: op, Symbol: symbol, Err: fmt.Errorf("max retries exceeded: %w", lastErr)}
}

func (c *Client) call(method, path string, params url.Values, signed bool, out any) error {
	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		params.Set("recvWindow", strconv.Itoa(recvWindow))
		params.Set("signature", c.sign(params.Encode()))
	}

	req, err := http.NewRequest(method, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: path, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		retryable := resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == 418 || // Binance IP ban code, still transient
			resp.StatusCode >= 500
		return &Error{Op: path, Retryable: retryable, Err: err}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

type orderResponse struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
	Fills   []struct {
		Price string `json:"price"`
		Qty   string `json:"qty"`
	} `json:"fills"`
}

// fillPrice returns the quantity-weighted average fill price, or 0 when the
// response carries no fills.
func (r orderResponse) fillPrice() float64 {
	var notional, qty float64
	for _, f := range r.Fills {
		p, err1 := strconv.ParseFloat(f.Price, 64)
		q, err2 := strconv.ParseFloat(f.Qty, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		notional += p * q
		qty += q
	}
	if qty == 0 {
		return 0
	}
	return notional / qty
}

// parseKline converts a raw Binance kline row:
// [openTime, open, high, low, close, volume, closeTime, ...]
func parseKline(row []any) (market.Candle, error) {
	if len(row) < 6 {
		return market.Candle{}, fmt.Errorf("kline row too short: %d fields", len(row))
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return market.Candle{}, fmt.Errorf("kline open time is not a number: %v", row[0])
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := row[i].(string)
		if !ok {
			return market.Candle{}, fmt.Errorf("kline field %d is not a string: %v", i, row[i])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("parse kline field %d %q: %w", i, s, err)
		}
		vals[i-1] = v
	}

	return market.Candle{
		Timestamp: time.UnixMilli(int64(openTime)).UTC(),
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
