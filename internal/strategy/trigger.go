package strategy

import (
	"time"

	"fvgbot/internal/logging"
	"fvgbot/internal/market"
)

var triggerLog = logging.New("trigger")

// Signal is an ephemeral entry candidate. It is consumed once by the driver
// and never persisted.
type Signal struct {
	Symbol     string
	Direction  Direction
	Side       string
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Gap        Gap
	TriggerTime time.Time
	MACD        float64
	SignalLine  float64
}

// TriggerOptions control the entry evaluation.
type TriggerOptions struct {
	// RequireRecentCrossover rejects candidates without a momentum/signal
	// crossover within the lookback window.
	RequireRecentCrossover bool
	// CrossoverLookback is the number of bars scanned for a crossover; the
	// window covers lookback+1 samples.
	CrossoverLookback int
}

// rewardRiskRatio fixes take-profit at twice the stop distance.
const rewardRiskRatio = 2.0

// CheckEntryTriggers evaluates the last candle of the series against each
// active gap and returns one signal per surviving gap, in gap iteration
// order. The momentum columns must be populated.
func CheckEntryTriggers(s *market.Series, gaps []Gap, opts TriggerOptions) []Signal {
	var signals []Signal
	if s.Len() < 3 {
		return signals
	}

	triggerIdx := s.Len() - 1
	trigger := s.Candles[triggerIdx]
	macd := s.MACD[triggerIdx]
	signalLine := s.Signal[triggerIdx]

	for _, g := range gaps {
		if g.ExpiryIndex < triggerIdx {
			continue
		}

		touched := trigger.Low <= g.Mid && g.Mid <= trigger.High

		var macdOK bool
		var stop float64
		if g.Kind == Bullish {
			macdOK = macd > signalLine
			stop = g.Bottom
		} else {
			macdOK = macd < signalLine
			stop = g.Top
		}

		if !touched || !macdOK {
			continue
		}

		if opts.RequireRecentCrossover && !recentCrossover(s, opts.CrossoverLookback, g.Kind) {
			triggerLog.Debug().
				Str("symbol", s.Symbol).
				Str("direction", string(g.Kind)).
				Int("lookback", opts.CrossoverLookback).
				Msg("no recent crossover, candidate rejected")
			continue
		}

		entry := trigger.Close
		// Guard against a degenerate zero/negative-risk trade.
		if g.Kind == Bullish && stop >= entry {
			continue
		}
		if g.Kind == Bearish && stop <= entry {
			continue
		}

		risk := abs(entry - stop)
		var takeProfit float64
		var side string
		if g.Kind == Bullish {
			takeProfit = entry + rewardRiskRatio*risk
			side = SideBuy
		} else {
			takeProfit = entry - rewardRiskRatio*risk
			side = SideSell
		}

		signals = append(signals, Signal{
			Symbol:      s.Symbol,
			Direction:   g.Kind,
			Side:        side,
			EntryPrice:  entry,
			StopLoss:    stop,
			TakeProfit:  takeProfit,
			Gap:         g,
			TriggerTime: trigger.Timestamp,
			MACD:        macd,
			SignalLine:  signalLine,
		})
	}

	return signals
}

// recentCrossover scans the last lookback+1 momentum/signal pairs for a sign
// change of (macd - signal) matching the direction. A series shorter than
// lookback+1 does not block the entry.
func recentCrossover(s *market.Series, lookback int, dir Direction) bool {
	if s.Len() < lookback+1 {
		return true
	}

	start := s.Len() - lookback - 1
	for i := start + 1; i < s.Len(); i++ {
		prev := s.MACD[i-1] - s.Signal[i-1]
		cur := s.MACD[i] - s.Signal[i]
		if dir == Bullish && prev < 0 && cur > 0 {
			return true
		}
		if dir == Bearish && prev > 0 && cur < 0 {
			return true
		}
	}
	return false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
