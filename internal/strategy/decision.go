package strategy

import (
	"time"

	"github.com/camuig/etf-rotator/internal/market"
)

// Params bundles the decision inputs shared by the backtest and paper
// drivers.
type Params struct {
	GrowthETFs   []string
	DefensiveETF string

	MomentumLookbackDays int
	VolLookbackWeeks     int
	VolFloor             float64

	NormalGrowthWeight float64
	DeriskGrowthWeight float64
	NoTradeBand        float64
}

// Decision is the weekly allocation verdict for one signal date.
type Decision struct {
	SignalDate    time.Time
	Drawdown      float64
	Regime        Regime
	RegimeChanged bool
	CooldownLeft  int
	Scores        []SymbolScore
	Winner        string
	// RawWeights is the policy output; Weights is after the no-trade band.
	RawWeights map[string]float64
	Weights    map[string]float64
}

// Decide runs the shared decision path: score -> gate -> weights -> band.
// It mutates gate (one rebalance event) and compares the banded targets
// against currentWeights, which the caller values at the trade date.
func Decide(t *market.Table, p Params, gate *RiskGate, signalIdx int, drawdown float64, currentWeights map[string]float64) Decision {
	regime, changed := gate.OnRebalance(drawdown)

	scores := ComputeScores(t, p.GrowthETFs, signalIdx, p.MomentumLookbackDays, p.VolLookbackWeeks, p.VolFloor)
	winner := PickBest(scores, p.GrowthETFs[0])

	raw := TargetWeights(regime, winner, p.DefensiveETF, p.NormalGrowthWeight, p.DeriskGrowthWeight)
	adjusted := ApplyNoTradeBand(raw, currentWeights, p.NoTradeBand)

	return Decision{
		SignalDate:    t.Date(signalIdx),
		Drawdown:      drawdown,
		Regime:        regime,
		RegimeChanged: changed,
		CooldownLeft:  gate.CooldownLeft,
		Scores:        scores,
		Winner:        winner,
		RawWeights:    raw,
		Weights:       adjusted,
	}
}

// Drawdown is 1 - value/peak, or 0 when the peak is not positive.
func Drawdown(value, peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	return 1.0 - value/peak
}
