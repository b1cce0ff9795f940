package strategy

// PositionSize converts account balance and a per-trade risk fraction into a
// trade quantity. Degenerate inputs (non-positive entry or stop, zero risk
// distance) yield a zero quantity: a valid "no trade" outcome, not an error.
// Rounding to the exchange lot size is delegated to the gateway's
// minimum-size check.
func PositionSize(balance, riskFraction, entry, stop float64) float64 {
	if entry <= 0 || stop <= 0 {
		return 0
	}
	unitRisk := abs(entry - stop)
	if unitRisk == 0 {
		return 0
	}
	return balance * riskFraction / unitRisk
}
