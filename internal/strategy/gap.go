package strategy

import (
	"time"

	"fvgbot/internal/logging"
	"fvgbot/internal/market"
)

var gapLog = logging.New("gap")

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"

	SideBuy  = "buy"
	SideSell = "sell"

	// MaxActiveGaps is the per-symbol capacity; older gaps are evicted even
	// if still valid.
	MaxActiveGaps = 3

	// GapLifetime is the number of bars after detection before a gap expires.
	GapLifetime = 20
)

type Direction string

// Gap is a price-imbalance zone left by a 3-candle pattern where the extreme
// of the first candle and the extreme of the third do not overlap.
type Gap struct {
	Kind           Direction `json:"type"`
	Top            float64   `json:"top"`
	Bottom         float64   `json:"bottom"`
	Mid            float64   `json:"mid"`
	FormationIndex int       `json:"candle1_idx"`
	DetectionIndex int       `json:"detected_idx"`
	ExpiryIndex    int       `json:"expiry_index"`
	DetectedAt     time.Time `json:"detected_at"`
}

// Filled reports whether the latest close has crossed back through the gap.
// Only the latest close is considered, not the full path since detection, so
// a gap filled intraperiod can be un-filled again by a later bar.
func (g Gap) Filled(lastClose float64) bool {
	if g.Kind == Bullish {
		return lastClose <= g.Bottom
	}
	return lastClose >= g.Top
}

// DetectGaps scans the series for 3-candle gap formations and merges them
// with the previously active gaps. Carried-forward gaps that are expired or
// filled against the latest close are dropped. The result never exceeds
// MaxActiveGaps entries, ranked by detection index descending.
func DetectGaps(s *market.Series, existing []Gap) []Gap {
	if s.Len() == 0 {
		return nil
	}

	last := s.Len() - 1
	lastClose := s.Last().Close

	var active []Gap
	for _, g := range existing {
		if g.ExpiryIndex >= last && !g.Filled(lastClose) {
			active = insertCapped(active, g)
		}
	}

	for i := 2; i <= last; i++ {
		c1 := s.Candles[i-2]
		c3 := s.Candles[i]

		var g Gap
		switch {
		case c3.Low > c1.High:
			g = Gap{Kind: Bullish, Top: c3.Low, Bottom: c1.High}
		case c3.High < c1.Low:
			g = Gap{Kind: Bearish, Top: c1.High, Bottom: c3.Low}
		default:
			continue
		}

		g.Mid = (g.Top + g.Bottom) / 2
		g.FormationIndex = i - 2
		g.DetectionIndex = i
		g.ExpiryIndex = i + GapLifetime
		g.DetectedAt = c3.Timestamp

		gapLog.Debug().
			Str("symbol", s.Symbol).
			Str("type", string(g.Kind)).
			Float64("top", g.Top).
			Float64("bottom", g.Bottom).
			Int("detected_idx", g.DetectionIndex).
			Msg("gap formation")

		active = insertCapped(active, g)
	}

	return active
}

// insertCapped inserts g into gaps keeping the list ordered by detection
// index descending (ties broken by formation index descending) and bounded
// at MaxActiveGaps. Geometrically identical gaps are not de-duplicated.
func insertCapped(gaps []Gap, g Gap) []Gap {
	j := len(gaps)
	for j > 0 && ranksAbove(g, gaps[j-1]) {
		j--
	}
	gaps = append(gaps, Gap{})
	copy(gaps[j+1:], gaps[j:])
	gaps[j] = g
	if len(gaps) > MaxActiveGaps {
		gaps = gaps[:MaxActiveGaps]
	}
	return gaps
}

func ranksAbove(a, b Gap) bool {
	if a.DetectionIndex != b.DetectionIndex {
		return a.DetectionIndex > b.DetectionIndex
	}
	return a.FormationIndex > b.FormationIndex
}
