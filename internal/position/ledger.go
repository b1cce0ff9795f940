package position

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"fvgbot/internal/strategy"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// OrderIDs references the entry order and its bracket orders.
type OrderIDs struct {
	Entry      string `json:"entry"`
	StopLoss   string `json:"sl"`
	TakeProfit string `json:"tp"`
}

// Position is the live record for a symbol. A symbol has at most one record;
// a fresh open replaces a prior closed one. Once closed, the exit fields and
// realized P&L are fixed permanently.
type Position struct {
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	Amount      float64   `json:"amount"`
	EntryPrice  float64   `json:"entry_price"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfit  float64   `json:"take_profit"`
	Status      string    `json:"status"`
	EntryTime   time.Time `json:"entry_time"`
	OrderIDs    OrderIDs  `json:"order_ids"`
	ExitPrice   float64   `json:"exit_price,omitempty"`
	ExitReason  string    `json:"exit_reason,omitempty"`
	ExitTime    time.Time `json:"exit_time"`
	RealizedPnL float64   `json:"pnl,omitempty"`
}

// DailyWindow tracks the balance at the start of the current UTC day, used
// to compute the daily loss threshold.
type DailyWindow struct {
	Date         string  `json:"date"`
	StartBalance float64 `json:"start_balance"`
}

// Ledger owns the position lifecycle, the per-symbol gap lists, the paper
// balance and the daily risk window. It is mutated by the single driver
// goroutine only; concurrent callers must serialize access themselves.
type Ledger struct {
	statePath      string
	paper          bool
	dailyLossLimit float64

	positions    map[string]*Position
	gaps         map[string][]strategy.Gap
	paperBalance float64
	daily        DailyWindow

	now func() time.Time
}

// NewLedger loads persisted state from statePath; a missing file means empty
// defaults, and an unreadable one is logged and ignored.
func NewLedger(statePath string, dailyLossLimit float64, paper bool) *Ledger {
	l := &Ledger{
		statePath:      statePath,
		paper:          paper,
		dailyLossLimit: dailyLossLimit,
		positions:      make(map[string]*Position),
		gaps:           make(map[string][]strategy.Gap),
		now:            time.Now,
	}
	if err := l.LoadState(); err != nil {
		log.Error().Err(err).Str("path", statePath).Msg("failed to load ledger state")
	}
	return l
}

func (l *Ledger) HasOpen(symbol string) bool {
	pos, ok := l.positions[symbol]
	return ok && pos.Status == StatusOpen
}

func (l *Ledger) TotalOpen() int {
	n := 0
	for _, pos := range l.positions {
		if pos.Status == StatusOpen {
			n++
		}
	}
	return n
}

// Get returns the position record for symbol, open or closed.
func (l *Ledger) Get(symbol string) (*Position, bool) {
	pos, ok := l.positions[symbol]
	return pos, ok
}

// OpenSymbols returns the symbols with an open position.
func (l *Ledger) OpenSymbols() []string {
	var symbols []string
	for symbol, pos := range l.positions {
		if pos.Status == StatusOpen {
			symbols = append(symbols, symbol)
		}
	}
	return symbols
}

// Open records a freshly executed position. The caller guarantees that no
// position for the symbol is currently open; this is not re-checked here.
func (l *Ledger) Open(symbol string, pos *Position) {
	pos.Symbol = symbol
	pos.Status = StatusOpen
	l.positions[symbol] = pos
	log.Info().
		Str("symbol", symbol).
		Str("side", pos.Side).
		Float64("amount", pos.Amount).
		Float64("entry_price", pos.EntryPrice).
		Float64("sl", pos.StopLoss).
		Float64("tp", pos.TakeProfit).
		Msg("position opened")
}

// Close transitions the symbol's position to closed, stamping the exit
// fields and realized P&L. It returns nil when no open position exists and
// in that case mutates nothing.
func (l *Ledger) Close(symbol string, exitPrice float64, reason string) *Position {
	pos, ok := l.positions[symbol]
	if !ok || pos.Status != StatusOpen {
		return nil
	}

	var pnlPerUnit float64
	if pos.Side == strategy.SideBuy {
		pnlPerUnit = exitPrice - pos.EntryPrice
	} else {
		pnlPerUnit = pos.EntryPrice - exitPrice
	}
	pnl := pnlPerUnit * pos.Amount

	pos.Status = StatusClosed
	pos.ExitPrice = exitPrice
	pos.ExitReason = reason
	pos.ExitTime = l.now().UTC()
	pos.RealizedPnL = pnl

	if l.paper {
		l.paperBalance += pnl
	}

	log.Info().
		Str("symbol", symbol).
		Str("reason", reason).
		Float64("exit_price", exitPrice).
		Float64("pnl", pnl).
		Msg("position closed")
	return pos
}

func (l *Ledger) Gaps(symbol string) []strategy.Gap {
	return l.gaps[symbol]
}

func (l *Ledger) SetGaps(symbol string, gaps []strategy.Gap) {
	l.gaps[symbol] = gaps
}

func (l *Ledger) PaperBalance() float64 {
	return l.paperBalance
}

// FundPaper seeds the paper balance with the configured starting balance,
// unless persisted state already carries one.
func (l *Ledger) FundPaper(startingBalance float64) {
	if l.paperBalance == 0 {
		l.paperBalance = startingBalance
	}
}

// DebitPaper withdraws the notional cost of a simulated fill. The ledger is
// the sole owner of the paper balance; the paper gateway must come through
// here rather than mutate a shared field.
func (l *Ledger) DebitPaper(cost float64) error {
	if cost > l.paperBalance {
		return fmt.Errorf("insufficient paper balance: need %.2f, have %.2f", cost, l.paperBalance)
	}
	l.paperBalance -= cost
	return nil
}

// HitDailyLossLimit reports whether the current balance breaches the daily
// loss threshold. The window resets on UTC date rollover, taking the current
// balance as the new start.
func (l *Ledger) HitDailyLossLimit(balance float64) bool {
	l.enforceDailyReset(balance)
	if l.daily.StartBalance <= 0 {
		return false
	}
	maxLoss := l.daily.StartBalance * l.dailyLossLimit
	return balance <= l.daily.StartBalance-maxLoss
}

func (l *Ledger) enforceDailyReset(balance float64) {
	today := l.now().UTC().Format(time.DateOnly)
	if l.daily.Date != today {
		l.daily = DailyWindow{Date: today, StartBalance: balance}
	}
}
