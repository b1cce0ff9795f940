package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"fvgbot/internal/config"
	"fvgbot/internal/exchange"
	"fvgbot/internal/indicator"
	"fvgbot/internal/market"
	"fvgbot/internal/position"
	"fvgbot/internal/strategy"
)

// closeBuffer delays the cycle past the candle close so the exchange has the
// completed candle available.
const closeBuffer = 30 * time.Second

// Live runs one synchronous polling pass per symbol per candle close.
// Symbols are processed strictly sequentially; a failure on one symbol never
// aborts the rest of the cycle.
type Live struct {
	cfg      *config.Config
	gw       exchange.Gateway
	ledger   *position.Ledger
	interval time.Duration

	now func() time.Time
}

func NewLive(cfg *config.Config, gw exchange.Gateway, ledger *position.Ledger) (*Live, error) {
	interval, err := cfg.Timeframe.ToDuration()
	if err != nil {
		return nil, err
	}
	return &Live{
		cfg:      cfg,
		gw:       gw,
		ledger:   ledger,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run loops forever, waking shortly after each candle close. Cancellation is
// honored between cycles only; a started cycle runs to completion.
func (l *Live) Run(ctx context.Context) error {
	log.Info().
		Str("timeframe", l.cfg.Timeframe.String()).
		Strs("symbols", l.cfg.Symbols).
		Bool("paper", l.cfg.PaperTrading).
		Msg("starting live loop")

	for {
		if err := l.waitForNextClose(ctx); err != nil {
			return err
		}
		l.Cycle()
	}
}

func (l *Live) waitForNextClose(ctx context.Context) error {
	now := l.now()
	next := now.Truncate(l.interval).Add(l.interval).Add(closeBuffer)

	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Cycle runs one full pass: manage open positions, evaluate each symbol,
// then persist state once for the whole cycle.
func (l *Live) Cycle() {
	l.managePositions()

	for _, symbol := range l.cfg.Symbols {
		if err := l.processSymbol(symbol); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("symbol processing failed")
		}
	}

	if err := l.ledger.SaveState(); err != nil {
		// Best-effort durability: keep trading on in-memory state.
		log.Error().Err(err).Msg("failed to persist state")
	}
}

// managePositions checks every open position against the last traded price
// and closes it when the stop or target is crossed.
func (l *Live) managePositions() {
	symbols := l.ledger.OpenSymbols()
	sort.Strings(symbols)

	for _, symbol := range symbols {
		pos, ok := l.ledger.Get(symbol)
		if !ok {
			continue
		}

		price, err := l.gw.FetchLastPrice(symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("failed to fetch price for open position")
			continue
		}

		if pos.Side == strategy.SideBuy {
			if price <= pos.StopLoss {
				l.ledger.Close(symbol, price, "stop_loss")
			} else if price >= pos.TakeProfit {
				l.ledger.Close(symbol, price, "take_profit")
			}
		} else {
			if price >= pos.StopLoss {
				l.ledger.Close(symbol, price, "stop_loss")
			} else if price <= pos.TakeProfit {
				l.ledger.Close(symbol, price, "take_profit")
			}
		}
	}
}

func (l *Live) processSymbol(symbol string) error {
	if l.ledger.TotalOpen() >= l.cfg.MaxConcurrentPositions {
		log.Warn().Str("symbol", symbol).Msg("max concurrent positions reached, skipping cycle")
		return nil
	}
	if l.ledger.HasOpen(symbol) {
		log.Info().Str("symbol", symbol).Msg("position already open, skipping new signals")
		return nil
	}

	candles, err := l.gw.FetchCandles(symbol, l.cfg.Timeframe, l.cfg.OHLCVLimit)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		log.Warn().Str("symbol", symbol).Msg("empty candle data")
		return nil
	}

	series := market.NewSeries(symbol, candles)
	indicator.Apply(series, l.cfg.MACDFast, l.cfg.MACDSlow, l.cfg.MACDSignal)

	active := strategy.DetectGaps(series, l.ledger.Gaps(symbol))
	l.ledger.SetGaps(symbol, active)

	for _, g := range active {
		log.Info().
			Str("symbol", symbol).
			Str("type", string(g.Kind)).
			Float64("top", g.Top).
			Float64("bottom", g.Bottom).
			Float64("mid", g.Mid).
			Int("expiry_index", g.ExpiryIndex).
			Msg("active gap")
	}

	signals := strategy.CheckEntryTriggers(series, active, strategy.TriggerOptions{
		RequireRecentCrossover: l.cfg.MACDRecentCrossover,
		CrossoverLookback:      l.cfg.CrossoverLookback,
	})
	if len(signals) == 0 {
		return nil
	}

	balance, err := l.gw.FetchBalance()
	if err != nil {
		return fmt.Errorf("fetch balance: %w", err)
	}
	if l.ledger.HitDailyLossLimit(balance) {
		log.Warn().Float64("balance", balance).Msg("daily loss limit reached, blocking new entries")
		return nil
	}

	for _, sig := range signals {
		amount := strategy.PositionSize(balance, l.cfg.RiskPerTrade, sig.EntryPrice, sig.StopLoss)
		if amount <= 0 {
			// Degenerate sizing is a valid "no trade" outcome.
			continue
		}

		minSize, err := l.gw.MinOrderSize(symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("failed to fetch minimum order size")
			minSize = 0
		}
		if minSize > 0 && amount < minSize {
			log.Warn().
				Str("symbol", symbol).
				Float64("amount", amount).
				Float64("min_size", minSize).
				Msg("position size below exchange minimum, trade skipped")
			continue
		}

		if err := l.executeTrade(sig, amount); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("trade execution failed")
		}
	}
	return nil
}

// executeTrade places the market entry and its bracket orders, then records
// the position. A failed entry records nothing; failed brackets are logged
// but the position is still recorded, since the entry order is live.
func (l *Live) executeTrade(sig strategy.Signal, amount float64) error {
	entry, err := l.gw.PlaceMarketOrder(sig.Symbol, sig.Side, amount)
	if err != nil {
		return fmt.Errorf("entry order: %w", err)
	}

	oppSide := strategy.SideSell
	if sig.Side == strategy.SideSell {
		oppSide = strategy.SideBuy
	}

	ids := position.OrderIDs{Entry: entry.ID}
	if slOrder, err := l.gw.PlaceStopOrder(sig.Symbol, oppSide, amount, sig.StopLoss); err != nil {
		log.Error().Err(err).Str("symbol", sig.Symbol).Msg("stop-loss order failed")
	} else {
		ids.StopLoss = slOrder.ID
	}
	if tpOrder, err := l.gw.PlaceLimitOrder(sig.Symbol, oppSide, amount, sig.TakeProfit); err != nil {
		log.Error().Err(err).Str("symbol", sig.Symbol).Msg("take-profit order failed")
	} else {
		ids.TakeProfit = tpOrder.ID
	}

	l.ledger.Open(sig.Symbol, &position.Position{
		Side:       sig.Side,
		Amount:     amount,
		EntryPrice: entry.Price,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		EntryTime:  l.now().UTC(),
		OrderIDs:   ids,
	})

	log.Info().
		Str("symbol", sig.Symbol).
		Str("direction", string(sig.Direction)).
		Float64("entry_price", entry.Price).
		Float64("sl", sig.StopLoss).
		Float64("tp", sig.TakeProfit).
		Float64("amount", amount).
		Float64("macd", sig.MACD).
		Float64("signal_line", sig.SignalLine).
		Msg("entry signal executed")
	return nil
}
