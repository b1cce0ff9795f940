package exchange

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"fvgbot/internal/market"
	"fvgbot/internal/position"
)

// Paper is a simulated-funds gateway. Market data and exchange metadata pass
// through to the inner gateway; fills are simulated at the live price and
// settle against the ledger, which is the sole owner of the paper balance.
type Paper struct {
	data   Gateway
	ledger *position.Ledger
	now    func() time.Time
}

func NewPaper(data Gateway, ledger *position.Ledger) *Paper {
	return &Paper{
		data:   data,
		ledger: ledger,
		now:    time.Now,
	}
}

func (p *Paper) FetchCandles(symbol string, timeframe market.Timeframe, limit int) ([]market.Candle, error) {
	return p.data.FetchCandles(symbol, timeframe, limit)
}

func (p *Paper) FetchLastPrice(symbol string) (float64, error) {
	return p.data.FetchLastPrice(symbol)
}

func (p *Paper) FetchBalance() (float64, error) {
	return p.ledger.PaperBalance(), nil
}

func (p *Paper) PlaceMarketOrder(symbol, side string, amount float64) (Order, error) {
	price, err := p.data.FetchLastPrice(symbol)
	if err != nil {
		return Order{}, &Error{Op: "paper_market_order", Symbol: symbol, Err: fmt.Errorf("price unavailable: %w", err)}
	}

	cost := price * amount
	if err := p.ledger.DebitPaper(cost); err != nil {
		return Order{}, &Error{Op: "paper_market_order", Symbol: symbol, Err: err}
	}

	order := Order{
		ID:     fmt.Sprintf("paper-%d", p.now().UnixMilli()),
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Price:  price,
		Status: "closed",
	}
	log.Info().
		Str("id", order.ID).
		Str("symbol", symbol).
		Str("side", side).
		Float64("amount", amount).
		Float64("price", price).
		Msg("paper market order executed")
	return order, nil
}

func (p *Paper) PlaceStopOrder(symbol, side string, amount, stopPrice float64) (Order, error) {
	order := Order{
		ID:     fmt.Sprintf("paper-sl-%d", p.now().UnixMilli()),
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Price:  stopPrice,
		Status: "open",
	}
	log.Info().Str("id", order.ID).Float64("stop", stopPrice).Msg("paper stop order recorded")
	return order, nil
}

func (p *Paper) PlaceLimitOrder(symbol, side string, amount, price float64) (Order, error) {
	order := Order{
		ID:     fmt.Sprintf("paper-tp-%d", p.now().UnixMilli()),
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Price:  price,
		Status: "open",
	}
	log.Info().Str("id", order.ID).Float64("price", price).Msg("paper take-profit order recorded")
	return order, nil
}

func (p *Paper) MinOrderSize(symbol string) (float64, error) {
	return p.data.MinOrderSize(symbol)
}
