package tradingview

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"fvgbot/internal/engine"
)

func allowDump() bool {
	// Get OS Env for dump DEBUG_DUMP=1 etc
	debugDump := os.Getenv("DEBUG_DUMP")
	if debugDump == "1" {
		log.Info().Msg("DEBUG_DUMP=1, dumping Pine Script to stdout")
		return true
	}

	return false
}

func DumpPineScript(trades []engine.Trade) {
	if !allowDump() {
		return
	}

	pineCode := generateTradePinescript(trades)
	fmt.Println(pineCode)
}

// generateTradePinescript generates the Pine Script code for visualizing
// simulated trades on a chart: markers for entries and exits with prices,
// P&L and exit reasons.
func generateTradePinescript(trades []engine.Trade) string {
	var sb strings.Builder

	sb.WriteString("// ============================================\n")
	sb.WriteString("// TRADE VALIDATION MARKERS\n")
	sb.WriteString("// ============================================\n\n")

	for i, trade := range trades {
		id := i + 1
		side := strings.ToUpper(trade.Side)

		// Entry marker
		entryTimestamp := formatPineTimestamp(trade.EntryTime)
		entryText := fmt.Sprintf("#%d %s\\nEntry: %.5f\\nTP: %.5f\\nSL: %.5f",
			id, side, trade.EntryPrice, trade.TakeProfit, trade.StopLoss)

		sb.WriteString(fmt.Sprintf("t%d_entry = time == %s\n", id, entryTimestamp))
		sb.WriteString(fmt.Sprintf("plotshape(t%d_entry, title=\"#%d %s Entry\", location=location.bottom, color=color.blue, style=shape.labelup, size=size.small, text=\"%s\", textcolor=color.white)\n\n",
			id, id, side, entryText))

		// Exit marker
		exitTimestamp := formatPineTimestamp(trade.ExitTime)
		exitColor := "color.green"
		if trade.ExitReason == "stop_loss" {
			exitColor = "color.red"
		}
		exitText := fmt.Sprintf("#%d EXIT\\nExit: %.5f\\n%s",
			id, trade.ExitPrice, trade.ExitReason)

		sb.WriteString(fmt.Sprintf("t%d_exit = time == %s\n", id, exitTimestamp))
		sb.WriteString(fmt.Sprintf("plotshape(t%d_exit, title=\"#%d EXIT\", location=location.top, color=%s, style=shape.labeldown, size=size.small, text=\"%s\", textcolor=color.white)\n\n",
			id, id, exitColor, exitText))
	}

	return sb.String()
}

func formatPineTimestamp(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("timestamp(\"UTC\", %d, %d, %d, %d, %d)",
		utc.Year(), int(utc.Month()), utc.Day(), utc.Hour(), utc.Minute())
}
