package position

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fvgbot/internal/strategy"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := NewLedger(filepath.Join(t.TempDir(), "state.json"), 0.05, true)
	l.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return l
}

func openLong(l *Ledger, symbol string) {
	l.Open(symbol, &Position{
		Side:       strategy.SideBuy,
		Amount:     2,
		EntryPrice: 100,
		StopLoss:   95,
		TakeProfit: 110,
		EntryTime:  time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
		OrderIDs:   OrderIDs{Entry: "e1", StopLoss: "s1", TakeProfit: "t1"},
	})
}

func TestLedger_OpenAndClose_Long(t *testing.T) {
	l := newTestLedger(t)
	l.FundPaper(10000)
	openLong(l, "BTCUSDT")

	assert.True(t, l.HasOpen("BTCUSDT"))
	assert.Equal(t, 1, l.TotalOpen())
	assert.Equal(t, []string{"BTCUSDT"}, l.OpenSymbols())

	pos := l.Close("BTCUSDT", 110, "take_profit")
	require.NotNil(t, pos)
	assert.Equal(t, StatusClosed, pos.Status)
	assert.Equal(t, 110.0, pos.ExitPrice)
	assert.Equal(t, "take_profit", pos.ExitReason)
	assert.InDelta(t, 20.0, pos.RealizedPnL, 1e-12)
	assert.Equal(t, l.now().UTC(), pos.ExitTime)

	assert.False(t, l.HasOpen("BTCUSDT"))
	assert.InDelta(t, 10020.0, l.PaperBalance(), 1e-9, "realized pnl credited to the paper balance")
}

func TestLedger_Close_Short(t *testing.T) {
	l := newTestLedger(t)
	l.Open("ETHUSDT", &Position{
		Side:       strategy.SideSell,
		Amount:     3,
		EntryPrice: 200,
		StopLoss:   210,
		TakeProfit: 180,
	})

	pos := l.Close("ETHUSDT", 190, "take_profit")
	require.NotNil(t, pos)
	assert.InDelta(t, 30.0, pos.RealizedPnL, 1e-12, "short pnl is entry minus exit")
}

func TestLedger_Close_NoOpenPosition(t *testing.T) {
	l := newTestLedger(t)
	l.FundPaper(10000)

	assert.Nil(t, l.Close("BTCUSDT", 100, "stop_loss"))
	assert.Equal(t, 10000.0, l.PaperBalance(), "no-op close must not touch the balance")

	openLong(l, "BTCUSDT")
	l.Close("BTCUSDT", 110, "take_profit")
	assert.Nil(t, l.Close("BTCUSDT", 120, "take_profit"), "a closed position stays closed")
}

func TestLedger_OpenReplacesClosedRecord(t *testing.T) {
	l := newTestLedger(t)
	openLong(l, "BTCUSDT")
	l.Close("BTCUSDT", 90, "stop_loss")

	l.Open("BTCUSDT", &Position{Side: strategy.SideBuy, Amount: 1, EntryPrice: 105})

	pos, ok := l.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, StatusOpen, pos.Status)
	assert.Equal(t, 105.0, pos.EntryPrice)
	assert.Zero(t, pos.RealizedPnL, "the fresh record carries no stale exit data")
}

func TestLedger_FundPaper(t *testing.T) {
	l := newTestLedger(t)
	l.FundPaper(10000)
	assert.Equal(t, 10000.0, l.PaperBalance())

	// Re-funding is a no-op once a balance exists.
	l.FundPaper(5000)
	assert.Equal(t, 10000.0, l.PaperBalance())
}

func TestLedger_DebitPaper(t *testing.T) {
	l := newTestLedger(t)
	l.FundPaper(100)

	require.NoError(t, l.DebitPaper(60))
	assert.InDelta(t, 40.0, l.PaperBalance(), 1e-12)

	err := l.DebitPaper(50)
	require.Error(t, err)
	assert.InDelta(t, 40.0, l.PaperBalance(), 1e-12, "a rejected debit leaves the balance alone")
}

func TestLedger_DailyLossLimit(t *testing.T) {
	l := newTestLedger(t)

	// First call establishes the window: 10000 start, 5% limit -> floor 9500.
	assert.False(t, l.HitDailyLossLimit(10000))
	assert.False(t, l.HitDailyLossLimit(9501))
	assert.True(t, l.HitDailyLossLimit(9500), "the threshold itself counts as breached")
	assert.True(t, l.HitDailyLossLimit(9000))
}

func TestLedger_DailyWindowResetsOnRollover(t *testing.T) {
	l := newTestLedger(t)

	assert.False(t, l.HitDailyLossLimit(10000))
	assert.True(t, l.HitDailyLossLimit(9400))

	// Next UTC day: the depressed balance becomes the new start.
	l.now = func() time.Time {
		return time.Date(2024, 6, 2, 0, 5, 0, 0, time.UTC)
	}
	assert.False(t, l.HitDailyLossLimit(9400))
	assert.Equal(t, "2024-06-02", l.daily.Date)
	assert.Equal(t, 9400.0, l.daily.StartBalance)
}

func TestLedger_StateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	l := NewLedger(path, 0.05, true)
	l.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	l.FundPaper(10000)
	openLong(l, "BTCUSDT")
	l.SetGaps("BTCUSDT", []strategy.Gap{{
		Kind: strategy.Bullish, Top: 1.2, Bottom: 1.0, Mid: 1.1,
		FormationIndex: 10, DetectionIndex: 12, ExpiryIndex: 32,
		DetectedAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}})
	l.HitDailyLossLimit(10000)
	require.NoError(t, l.SaveState())

	restored := NewLedger(path, 0.05, true)
	assert.True(t, restored.HasOpen("BTCUSDT"))
	pos, ok := restored.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, 100.0, pos.EntryPrice)
	assert.Equal(t, OrderIDs{Entry: "e1", StopLoss: "s1", TakeProfit: "t1"}, pos.OrderIDs)
	assert.Equal(t, l.Gaps("BTCUSDT"), restored.Gaps("BTCUSDT"))
	assert.Equal(t, 10000.0, restored.PaperBalance())
	assert.Equal(t, l.daily, restored.daily)
}

func TestLedger_LoadState_MissingFile(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "absent.json"), 0.05, true)

	assert.Zero(t, l.PaperBalance())
	assert.Equal(t, 0, l.TotalOpen())
	assert.Empty(t, l.Gaps("BTCUSDT"))
}
