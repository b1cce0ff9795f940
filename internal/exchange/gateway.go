package exchange

import (
	"errors"
	"fmt"

	"fvgbot/internal/market"
)

// Order is the result of an order placement.
type Order struct {
	ID     string
	Symbol string
	Side   string
	Amount float64
	Price  float64
	Status string
}

// Gateway is the exchange capability consumed by the engine. All calls are
// synchronous; any waiting (network retries, backoff) happens inside the
// implementation. Errors are *exchange.Error values so callers can tell
// retryable from terminal failures.
type Gateway interface {
	FetchCandles(symbol string, timeframe market.Timeframe, limit int) ([]market.Candle, error)
	FetchLastPrice(symbol string) (float64, error)
	FetchBalance() (float64, error)
	PlaceMarketOrder(symbol, side string, amount float64) (Order, error)
	PlaceStopOrder(symbol, side string, amount, stopPrice float64) (Order, error)
	PlaceLimitOrder(symbol, side string, amount, price float64) (Order, error)
	// MinOrderSize returns 0 when the exchange does not publish a minimum.
	MinOrderSize(symbol string) (float64, error)
}

// Error classifies a gateway failure. Retryable errors (rate limits, network
// faults) are retried internally with backoff; an Error surfaced to the
// caller with Retryable still set means the retry budget is exhausted.
type Error struct {
	Op        string
	Symbol    string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("exchange: %s %s: %v", e.Op, e.Symbol, e.Err)
	}
	return fmt.Sprintf("exchange: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient gateway failure.
func IsRetryable(err error) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Retryable
}
