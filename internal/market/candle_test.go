package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSeries(n int) *Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, n)
	for i := range candles {
		c := 100 + float64(i)
		candles[i] = Candle{
			Timestamp: start.Add(time.Duration(i) * 4 * time.Hour),
			Open:      c, High: c + 1, Low: c - 1, Close: c,
			Volume: 10,
		}
	}
	return NewSeries("BTCUSDT", candles)
}

func TestSeries_Closes(t *testing.T) {
	s := sampleSeries(3)
	assert.Equal(t, []float64{100, 101, 102}, s.Closes())
}

func TestSeries_Last(t *testing.T) {
	s := sampleSeries(3)
	assert.Equal(t, 102.0, s.Last().Close)
}

func TestSeries_Prefix(t *testing.T) {
	s := sampleSeries(5)
	s.MACD = []float64{0, 1, 2, 3, 4}
	s.Signal = []float64{0, 1, 2, 3, 4}
	s.Hist = []float64{0, 0, 0, 0, 0}
	s.EMAFast = []float64{0, 1, 2, 3, 4}
	s.EMASlow = []float64{0, 0, 0, 0, 0}

	p := s.Prefix(3)
	assert.Equal(t, 3, p.Len())
	assert.Equal(t, "BTCUSDT", p.Symbol)
	assert.Equal(t, 102.0, p.Last().Close)
	require.Len(t, p.MACD, 3)
	assert.Equal(t, 2.0, p.MACD[2])

	// Clamped, never out of range.
	assert.Equal(t, 5, s.Prefix(10).Len())
}

func TestSeries_PrefixWithoutIndicator(t *testing.T) {
	p := sampleSeries(5).Prefix(2)
	assert.Equal(t, 2, p.Len())
	assert.Nil(t, p.MACD)
}

func TestTimeframe_ToDuration(t *testing.T) {
	d, err := H4.ToDuration()
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, d)

	d, err = D1.ToDuration()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, d)

	_, err = Timeframe("7h").ToDuration()
	assert.Error(t, err)
}
