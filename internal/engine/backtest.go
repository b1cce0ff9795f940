package engine

import (
	"time"

	"github.com/rs/zerolog/log"

	"fvgbot/internal/config"
	"fvgbot/internal/exchange"
	"fvgbot/internal/indicator"
	"fvgbot/internal/market"
	"fvgbot/internal/strategy"
)

// extraWarmupBars pads the history fetch so the indicator and detector have
// context before the first evaluated bar.
const extraWarmupBars = 50

// Trade is a simulated round trip produced by the backtest.
type Trade struct {
	Symbol     string
	Side       string
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Amount     float64
	StopLoss   float64
	TakeProfit float64
	PnL        float64
	ExitReason string
}

// BacktestResult is the outcome of replaying one symbol.
type BacktestResult struct {
	Symbol          string
	StartingBalance float64
	FinalEquity     float64
	Trades          []Trade

	stats *Statistics
}

// Backtest replays the detection, trigger and sizing logic bar-by-bar over
// historical data with a simulated single-position ledger per symbol.
// Partial fills, fees and slippage are not modeled.
type Backtest struct {
	cfg *config.Config
	gw  exchange.Gateway
}

func NewBacktest(cfg *config.Config, gw exchange.Gateway) *Backtest {
	return &Backtest{cfg: cfg, gw: gw}
}

// Run backtests every configured symbol and returns one result per symbol
// with fetched data. History depth is derived from backtest_days and the
// timeframe.
func (b *Backtest) Run() ([]BacktestResult, error) {
	duration, err := b.cfg.Timeframe.ToDuration()
	if err != nil {
		return nil, err
	}
	barsPerDay := int(24 * time.Hour / duration)
	if barsPerDay < 1 {
		barsPerDay = 1
	}
	limit := b.cfg.BacktestDays*barsPerDay + extraWarmupBars

	var results []BacktestResult
	for _, symbol := range b.cfg.Symbols {
		candles, err := b.gw.FetchCandles(symbol, b.cfg.Timeframe, limit)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("failed to fetch backtest history")
			continue
		}
		if len(candles) == 0 {
			log.Warn().Str("symbol", symbol).Msg("no backtest history")
			continue
		}

		series := market.NewSeries(symbol, candles)
		indicator.Apply(series, b.cfg.MACDFast, b.cfg.MACDSlow, b.cfg.MACDSignal)

		result := b.runSymbol(series)
		log.Info().
			Str("symbol", symbol).
			Int("trades", len(result.Trades)).
			Float64("equity", result.FinalEquity).
			Msg("backtest completed")
		results = append(results, result)
	}
	return results, nil
}

// runSymbol replays one symbol. Sizing uses the running equity, so risk
// compounds across trades. New signals are ignored while a position is open;
// when several signals survive one bar, the last wins.
func (b *Backtest) runSymbol(series *market.Series) BacktestResult {
	opts := strategy.TriggerOptions{
		RequireRecentCrossover: b.cfg.MACDRecentCrossover,
		CrossoverLookback:      b.cfg.CrossoverLookback,
	}

	equity := b.cfg.StartingBalance
	var active []strategy.Gap
	var open *Trade
	var trades []Trade

	for idx := 3; idx < series.Len(); idx++ {
		window := series.Prefix(idx + 1)
		active = strategy.DetectGaps(window, active)
		signals := strategy.CheckEntryTriggers(window, active, opts)

		bar := window.Last()
		if open != nil {
			if exited, reason := checkExit(open, bar.Close); exited {
				var pnl float64
				if open.Side == strategy.SideBuy {
					pnl = (bar.Close - open.EntryPrice) * open.Amount
				} else {
					pnl = (open.EntryPrice - bar.Close) * open.Amount
				}
				equity += pnl

				open.ExitPrice = bar.Close
				open.ExitTime = bar.Timestamp
				open.ExitReason = reason
				open.PnL = pnl
				trades = append(trades, *open)
				open = nil
			}
		}

		if open != nil || len(signals) == 0 {
			continue
		}

		sig := signals[len(signals)-1]
		amount := strategy.PositionSize(equity, b.cfg.RiskPerTrade, sig.EntryPrice, sig.StopLoss)
		if amount <= 0 {
			continue
		}
		open = &Trade{
			Symbol:     series.Symbol,
			Side:       sig.Side,
			EntryTime:  sig.TriggerTime,
			EntryPrice: sig.EntryPrice,
			Amount:     amount,
			StopLoss:   sig.StopLoss,
			TakeProfit: sig.TakeProfit,
		}
	}

	if open != nil {
		log.Debug().Str("symbol", series.Symbol).Msg("position still open at end of history, not counted")
	}

	return BacktestResult{
		Symbol:          series.Symbol,
		StartingBalance: b.cfg.StartingBalance,
		FinalEquity:     equity,
		Trades:          trades,
	}
}

// checkExit tests the bar close against the open trade's stop and target.
// Exits fill at the close, not at the stop or target level.
func checkExit(open *Trade, close float64) (bool, string) {
	if open.Side == strategy.SideBuy {
		if close <= open.StopLoss {
			return true, "stop_loss"
		}
		if close >= open.TakeProfit {
			return true, "take_profit"
		}
		return false, ""
	}
	if close >= open.StopLoss {
		return true, "stop_loss"
	}
	if close <= open.TakeProfit {
		return true, "take_profit"
	}
	return false, ""
}
