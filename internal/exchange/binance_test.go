package exchange

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgbot/internal/market"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "test-key", "test-secret")
	c.sleep = func(time.Duration) {}
	return c
}

func TestFetchCandles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		assert.Equal(t, "BTCUSDT", r.URL.Query().Get("symbol"))
		assert.Equal(t, "4h", r.URL.Query().Get("interval"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		fmt.Fprint(w, `[
			[1704067200000, "100.0", "101.5", "99.5", "101.0", "1234.5", 1704081599999, "0", 0, "0", "0", "0"],
			[1704081600000, "101.0", "102.0", "100.0", "101.5", "987.1", 1704095999999, "0", 0, "0", "0", "0"]
		]`)
	})

	candles, err := c.FetchCandles("BTCUSDT", market.H4, 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	first := candles[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, 100.0, first.Open)
	assert.Equal(t, 101.5, first.High)
	assert.Equal(t, 99.5, first.Low)
	assert.Equal(t, 101.0, first.Close)
	assert.Equal(t, 1234.5, first.Volume)
}

func TestFetchCandles_MalformedRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[1704067200000, "not-a-number", "1", "1", "1", "1"]]`)
	})

	_, err := c.FetchCandles("BTCUSDT", market.H4, 1)
	require.Error(t, err)
	assert.False(t, IsRetryable(err))
}

func TestFetchLastPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/ticker/price", r.URL.Path)
		fmt.Fprint(w, `{"symbol":"BTCUSDT","price":"42000.50"}`)
	})

	price, err := c.FetchLastPrice("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 42000.50, price)
}

func TestWithRetries_RateLimitThenSuccess(t *testing.T) {
	var calls int
	var delays []time.Duration

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"symbol":"BTCUSDT","price":"100"}`)
	})
	c.sleep = func(d time.Duration) { delays = append(delays, d) }

	price, err := c.FetchLastPrice("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 100.0, price)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{backoffBase}, delays, "first retry waits the base backoff")
}

func TestWithRetries_TerminalErrorNoRetry(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
	})

	_, err := c.FetchLastPrice("NOPEUSDT")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "a 400 must not be retried")
	assert.False(t, IsRetryable(err))

	var ee *Error
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "fetch_last_price", ee.Op)
	assert.Equal(t, "NOPEUSDT", ee.Symbol)
}

func TestWithRetries_ExhaustedBudgetIsTerminal(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.FetchLastPrice("BTCUSDT")
	require.Error(t, err)
	assert.Equal(t, retryAttempts, calls)
	assert.False(t, IsRetryable(err), "an exhausted retry budget surfaces as terminal")
	assert.ErrorContains(t, err, "max retries exceeded")
}

func TestPlaceMarketOrder_SignedAndFilled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/order", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-MBX-APIKEY"))

		q := r.URL.Query()
		assert.Equal(t, "BUY", q.Get("side"))
		assert.Equal(t, "MARKET", q.Get("type"))
		assert.Equal(t, "0.5", q.Get("quantity"))
		assert.NotEmpty(t, q.Get("timestamp"))
		assert.NotEmpty(t, q.Get("signature"))

		fmt.Fprint(w, `{"orderId":12345,"status":"FILLED","fills":[
			{"price":"100.0","qty":"0.3"},
			{"price":"102.0","qty":"0.2"}
		]}`)
	})

	order, err := c.PlaceMarketOrder("BTCUSDT", "buy", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "12345", order.ID)
	assert.Equal(t, "filled", order.Status)
	assert.InDelta(t, 100.8, order.Price, 1e-9, "fill price is the quantity-weighted average")
}

func TestPlaceMarketOrder_NoFillsFallsBackToTicker(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/order":
			fmt.Fprint(w, `{"orderId":7,"status":"FILLED","fills":[]}`)
		case "/api/v3/ticker/price":
			fmt.Fprint(w, `{"symbol":"BTCUSDT","price":"250.5"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	order, err := c.PlaceMarketOrder("BTCUSDT", "buy", 1)
	require.NoError(t, err)
	assert.Equal(t, 250.5, order.Price)
}

func TestPlaceStopOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "STOP_LOSS", q.Get("type"))
		assert.Equal(t, "SELL", q.Get("side"))
		assert.Equal(t, "95.5", q.Get("stopPrice"))
		fmt.Fprint(w, `{"orderId":8,"status":"NEW"}`)
	})

	order, err := c.PlaceStopOrder("BTCUSDT", "sell", 1, 95.5)
	require.NoError(t, err)
	assert.Equal(t, "8", order.ID)
	assert.Equal(t, 95.5, order.Price)
	assert.Equal(t, "new", order.Status)
}

func TestPlaceLimitOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "LIMIT", q.Get("type"))
		assert.Equal(t, "GTC", q.Get("timeInForce"))
		assert.Equal(t, "120", q.Get("price"))
		fmt.Fprint(w, `{"orderId":9,"status":"NEW"}`)
	})

	order, err := c.PlaceLimitOrder("BTCUSDT", "sell", 1, 120)
	require.NoError(t, err)
	assert.Equal(t, "9", order.ID)
}

func TestMinOrderSize(t *testing.T) {
	t.Run("lot size filter present", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
			fmt.Fprint(w, `{"symbols":[{"filters":[
				{"filterType":"PRICE_FILTER","minQty":""},
				{"filterType":"LOT_SIZE","minQty":"0.0001"}
			]}]}`)
		})

		min, err := c.MinOrderSize("BTCUSDT")
		require.NoError(t, err)
		assert.Equal(t, 0.0001, min)
	})

	t.Run("no filter means no minimum", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"symbols":[{"filters":[]}]}`)
		})

		min, err := c.MinOrderSize("BTCUSDT")
		require.NoError(t, err)
		assert.Zero(t, min)
	})
}

func TestFetchBalance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/account", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("signature"))
		fmt.Fprint(w, `{"balances":[
			{"asset":"BTC","free":"0.5"},
			{"asset":"USDT","free":"1234.56"}
		]}`)
	})

	balance, err := c.FetchBalance()
	require.NoError(t, err)
	assert.Equal(t, 1234.56, balance)
}
