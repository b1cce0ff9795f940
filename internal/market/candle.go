package market

import "time"

type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Series is an ordered candle sequence plus the derived momentum columns.
// All derived slices are aligned by index with Candles; they are nil until
// the indicator has been applied.
type Series struct {
	Symbol  string
	Candles []Candle

	EMAFast []float64
	EMASlow []float64
	MACD    []float64
	Signal  []float64
	Hist    []float64
}

func NewSeries(symbol string, candles []Candle) *Series {
	return &Series{
		Symbol:  symbol,
		Candles: candles,
	}
}

func (s *Series) Len() int {
	return len(s.Candles)
}

// Last returns the most recent candle. Callers must check Len() > 0 first.
func (s *Series) Last() Candle {
	return s.Candles[len(s.Candles)-1]
}

func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		closes[i] = c.Close
	}
	return closes
}

// Prefix returns a view over the first n candles and their derived columns.
// The underlying slices are shared, not copied.
func (s *Series) Prefix(n int) *Series {
	if n > s.Len() {
		n = s.Len()
	}
	p := &Series{
		Symbol:  s.Symbol,
		Candles: s.Candles[:n],
	}
	if s.MACD != nil {
		p.EMAFast = s.EMAFast[:n]
		p.EMASlow = s.EMASlow[:n]
		p.MACD = s.MACD[:n]
		p.Signal = s.Signal[:n]
		p.Hist = s.Hist[:n]
	}
	return p
}
