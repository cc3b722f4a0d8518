package paper

import (
	"fmt"
	"math"
	"time"

	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/strategy"
)

// PlanLine previews one symbol's move for the next pending rebalance.
type PlanLine struct {
	Symbol         string
	CurrentShares  int64
	TargetShares   int64
	CurrentWeight  float64
	TargetWeight   float64
	ReferencePrice float64
}

// Plan is the next weekly allocation computed without mutating the
// account: the gate runs on a throwaway copy and as_of stays put.
type Plan struct {
	AccountName  string
	TradeDate    time.Time
	SignalDate   time.Time
	Drawdown     float64
	Regime       strategy.Regime
	CooldownLeft int
	Winner       string
	Scores       []strategy.SymbolScore
	Weights      map[string]float64
	Lines        []PlanLine
}

// Plan computes the pending rebalance as a dry run. ErrNothingToDo when
// the account is caught up; missing price history is fatal, as in Advance.
func (d *Driver) Plan(t *market.Table) (*Plan, error) {
	symbols := d.symbols()
	for _, sym := range symbols {
		if !t.HasSymbol(sym) {
			return nil, fmt.Errorf("paper: %w: %s", market.ErrMissingHistory, sym)
		}
	}

	account, err := d.loadOrCreate()
	if err != nil {
		return nil, err
	}

	tradeIdx, err := d.nextRebalance(t, account)
	if err != nil {
		return nil, err
	}
	signalIdx := tradeIdx - 1

	// Running peak including the unprocessed days, without persisting it.
	peak := account.EquityPeak
	for i := 0; i <= signalIdx; i++ {
		if !account.AsOf.IsZero() && !t.Date(i).After(account.AsOf) {
			continue
		}
		if v := account.Value(t, i); v > peak {
			peak = v
		}
	}
	signalValue := account.Value(t, signalIdx)
	drawdown := strategy.Drawdown(signalValue, peak)

	gate := &strategy.RiskGate{
		DeriskDrawdown:  d.cfg.DeriskDrawdown,
		CircuitDrawdown: d.cfg.CircuitDrawdown,
		CooldownWeeks:   d.cfg.CooldownWeeks,
		State:           account.GateState,
		CooldownLeft:    account.CooldownLeft,
	}

	preValue := account.Cash
	for sym, sh := range account.Positions {
		preValue += float64(sh) * t.Close(sym, tradeIdx)
	}
	currentWeights := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		sh := account.Positions[sym]
		if sh > 0 && preValue > 0 {
			currentWeights[sym] = float64(sh) * t.Close(sym, tradeIdx) / preValue
		}
	}

	dec := strategy.Decide(t, d.cfg.Strategy, gate, signalIdx, drawdown, currentWeights)

	var lines []PlanLine
	for _, sym := range orderedTargets(symbols, account.Positions, dec.Weights) {
		px := t.Close(sym, tradeIdx)
		var tgt int64
		if w, ok := dec.Weights[sym]; ok && px > 0 {
			tgt = int64(math.Floor(preValue * w / px))
		}
		lines = append(lines, PlanLine{
			Symbol:         sym,
			CurrentShares:  account.Positions[sym],
			TargetShares:   tgt,
			CurrentWeight:  currentWeights[sym],
			TargetWeight:   dec.Weights[sym],
			ReferencePrice: px,
		})
	}

	return &Plan{
		AccountName:  account.Name,
		TradeDate:    t.Date(tradeIdx),
		SignalDate:   t.Date(signalIdx),
		Drawdown:     dec.Drawdown,
		Regime:       dec.Regime,
		CooldownLeft: dec.CooldownLeft,
		Winner:       dec.Winner,
		Scores:       dec.Scores,
		Weights:      dec.Weights,
		Lines:        lines,
	}, nil
}
