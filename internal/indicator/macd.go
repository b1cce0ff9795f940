package indicator

import "fvgbot/internal/market"

// Result holds the derived momentum columns for a candle series. Every slice
// has the same length as the input closes.
type Result struct {
	EMAFast []float64
	EMASlow []float64
	MACD    []float64
	Signal  []float64
	Hist    []float64
}

// EWMA computes an exponential moving average seeded from the first value.
// There is no simple-average warm-up: the smoothing uses all available
// history from the first sample onwards.
func EWMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*alpha + out[i-1]*(1-alpha)
	}
	return out
}

// MACD computes the fast/slow oscillator and its signal line over the given
// close prices. Pure function: no input is mutated.
func MACD(closes []float64, fast, slow, signalPeriod int) Result {
	n := len(closes)
	r := Result{
		EMAFast: EWMA(closes, fast),
		EMASlow: EWMA(closes, slow),
		MACD:    make([]float64, n),
		Hist:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		r.MACD[i] = r.EMAFast[i] - r.EMASlow[i]
	}
	r.Signal = EWMA(r.MACD, signalPeriod)
	for i := 0; i < n; i++ {
		r.Hist[i] = r.MACD[i] - r.Signal[i]
	}
	return r
}

// Apply computes the momentum columns for the series and attaches them.
func Apply(s *market.Series, fast, slow, signalPeriod int) {
	r := MACD(s.Closes(), fast, slow, signalPeriod)
	s.EMAFast = r.EMAFast
	s.EMASlow = r.EMASlow
	s.MACD = r.MACD
	s.Signal = r.Signal
	s.Hist = r.Hist
}
