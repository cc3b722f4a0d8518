package strategy

// TargetWeights maps (regime, winner) to target portfolio weights. Weights
// need not sum to 1: the remainder stays in cash.
func TargetWeights(regime Regime, winner, defensive string, normalWeight, deriskWeight float64) map[string]float64 {
	switch regime {
	case RegimeCircuitCooldown:
		return map[string]float64{defensive: 1.0}
	case RegimeDeRisk:
		return map[string]float64{winner: deriskWeight, defensive: 1.0 - deriskWeight}
	default:
		return map[string]float64{winner: normalWeight}
	}
}

// ApplyNoTradeBand keeps the current weight for any symbol whose target
// deviates by less than band, suppressing noise-level trades. Each symbol
// is banded independently.
func ApplyNoTradeBand(target, current map[string]float64, band float64) map[string]float64 {
	adjusted := make(map[string]float64, len(target))
	for sym, w := range target {
		cw := current[sym]
		if abs(w-cw) < band {
			adjusted[sym] = cw
		} else {
			adjusted[sym] = w
		}
	}
	return adjusted
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
