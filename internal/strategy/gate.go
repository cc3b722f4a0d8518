package strategy

// Regime is the risk regime driving the allocation policy. The string
// values are persisted with paper accounts, do not change them.
type Regime string

const (
	RegimeNormal          Regime = "NORMAL"
	RegimeDeRisk          Regime = "DE-RISK"
	RegimeCircuitCooldown Regime = "CIRCUIT-COOLDOWN"
)

// RiskGate turns a drawdown into a regime with a time-boxed cooldown after
// a circuit trip. Cooldown is counted in weekly rebalance events, not
// calendar time. One gate instance owns its state for a whole simulation
// run (backtest) or one persisted account (paper).
type RiskGate struct {
	DeriskDrawdown  float64
	CircuitDrawdown float64
	CooldownWeeks   int

	State        Regime
	CooldownLeft int
}

func NewRiskGate(derisk, circuit float64, cooldownWeeks int) *RiskGate {
	return &RiskGate{
		DeriskDrawdown:  derisk,
		CircuitDrawdown: circuit,
		CooldownWeeks:   cooldownWeeks,
		State:           RegimeNormal,
	}
}

func (g *RiskGate) nextState(drawdown float64) Regime {
	if g.State == RegimeCircuitCooldown && g.CooldownLeft > 0 {
		return RegimeCircuitCooldown
	}
	// Cooldown exhausted: re-evaluate from the current drawdown.
	if drawdown >= g.CircuitDrawdown {
		return RegimeCircuitCooldown
	}
	if drawdown >= g.DeriskDrawdown {
		return RegimeDeRisk
	}
	return RegimeNormal
}

// OnRebalance advances the gate by one weekly rebalance event and reports
// whether the regime changed. A fresh circuit trip counts the trip week
// itself, so cooldown_left starts at cooldown_weeks-1. While the cooldown
// runs, the counter decrements but the regime is reported unchanged.
//
// Known quirk, kept on purpose: after the cooldown hits zero, a drawdown
// still at or above the circuit threshold re-enters CIRCUIT-COOLDOWN
// without re-arming the counter, because the state never left
// CIRCUIT-COOLDOWN and the fresh-trip branch does not fire. The account
// then re-evaluates every week until the drawdown recovers.
func (g *RiskGate) OnRebalance(drawdown float64) (Regime, bool) {
	prev := g.State
	next := g.nextState(drawdown)

	if next == RegimeCircuitCooldown && prev != RegimeCircuitCooldown {
		g.CooldownLeft = g.CooldownWeeks - 1
		if g.CooldownLeft < 0 {
			g.CooldownLeft = 0
		}
		g.State = RegimeCircuitCooldown
		return g.State, true
	}

	if prev == RegimeCircuitCooldown && g.CooldownLeft > 0 {
		g.CooldownLeft--
		g.State = RegimeCircuitCooldown
		return g.State, false
	}

	g.State = next
	return g.State, next != prev
}
