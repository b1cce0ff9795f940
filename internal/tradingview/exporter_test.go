package tradingview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fvgbot/internal/engine"
)

func TestGenerateTradePinescript(t *testing.T) {
	trades := []engine.Trade{
		{
			Symbol:     "BTCUSDT",
			Side:       "buy",
			EntryPrice: 23085.50,
			EntryTime:  time.Date(2025, 8, 4, 13, 45, 0, 0, time.UTC),
			ExitPrice:  23185.50,
			ExitTime:   time.Date(2025, 8, 4, 17, 0, 0, 0, time.UTC),
			PnL:        200.00,
			TakeProfit: 23185.50,
			StopLoss:   23085.50,
			ExitReason: "take_profit",
		},
	}

	pineCode := generateTradePinescript(trades)

	expected := `// ============================================
// TRADE VALIDATION MARKERS
// ============================================

t1_entry = time == timestamp("UTC", 2025, 8, 4, 13, 45)
plotshape(t1_entry, title="#1 BUY Entry", location=location.bottom, color=color.blue, style=shape.labelup, size=size.small, text="#1 BUY\nEntry: 23085.50000\nTP: 23185.50000\nSL: 23085.50000", textcolor=color.white)

t1_exit = time == timestamp("UTC", 2025, 8, 4, 17, 0)
plotshape(t1_exit, title="#1 EXIT", location=location.top, color=color.green, style=shape.labeldown, size=size.small, text="#1 EXIT\nExit: 23185.50000\ntake_profit", textcolor=color.white)

`

	assert.Equal(t, expected, pineCode)
}
