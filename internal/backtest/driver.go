package backtest

import (
	"fmt"
	"time"

	"github.com/camuig/etf-rotator/internal/costs"
	"github.com/camuig/etf-rotator/internal/logger"
	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/strategy"
)

type Config struct {
	Strategy strategy.Params

	DeriskDrawdown  float64
	CircuitDrawdown float64
	CooldownWeeks   int

	InitialCapital float64
	Costs          costs.Model
}

// RebalanceRecord is one row of the backtest ledger, appended per
// rebalance event.
type RebalanceRecord struct {
	TradeDate       time.Time
	SignalDate      time.Time
	Regime          strategy.Regime
	Winner          string
	Drawdown        float64
	PreValue        float64
	PostValue       float64
	Turnover        float64
	OneWayTurnover  float64
	GrossTradeValue float64
	GrossSellValue  float64
	EstimatedCost   float64
}

type Result struct {
	Equity  []market.Point
	Records []RebalanceRecord
	Stats   Stats
}

// Run steps a continuous-weight simulation over the full price table. On
// the first trading day of each new week it rebalances to the decision
// made from the previous day's close, then deducts the modeled cost as an
// instantaneous markdown and restamps that day's equity so later drawdowns
// are cost-aware.
func Run(t *market.Table, cfg Config, log *logger.Logger) (*Result, error) {
	if len(cfg.Strategy.GrowthETFs) == 0 {
		return nil, fmt.Errorf("backtest: empty growth universe")
	}
	symbols := dedup(append(append([]string{}, cfg.Strategy.GrowthETFs...), cfg.Strategy.DefensiveETF))
	for _, sym := range symbols {
		if !t.HasSymbol(sym) {
			return nil, fmt.Errorf("backtest: %w: %s", market.ErrMissingHistory, sym)
		}
	}

	n := t.Len()
	equity := make([]float64, n)
	peaks := make([]float64, n)
	flags := t.RebalanceFlags()
	gate := strategy.NewRiskGate(cfg.DeriskDrawdown, cfg.CircuitDrawdown, cfg.CooldownWeeks)

	cash := cfg.InitialCapital
	units := make(map[string]float64, len(symbols))
	peak := 0.0
	var records []RebalanceRecord

	for i := 0; i < n; i++ {
		value := cash
		for _, sym := range symbols {
			value += units[sym] * t.Close(sym, i)
		}
		if value > peak {
			peak = value
		}
		equity[i] = value
		peaks[i] = peak

		if !flags[i] || i == 0 {
			continue
		}

		signalIdx := i - 1
		drawdown := strategy.Drawdown(equity[signalIdx], peaks[signalIdx])

		preValue := value
		preWeights := make(map[string]float64, len(symbols))
		for _, sym := range symbols {
			if preValue > 0 {
				preWeights[sym] = units[sym] * t.Close(sym, i) / preValue
			}
		}

		dec := strategy.Decide(t, cfg.Strategy, gate, signalIdx, drawdown, preWeights)
		if dec.RegimeChanged && log != nil {
			log.Info("regime change",
				"regime", string(dec.Regime),
				"signal_date", dec.SignalDate.Format("2006-01-02"),
				"drawdown_pct", dec.Drawdown*100,
				"cooldown_left", dec.CooldownLeft)
		}

		// Rebalance fractional holdings at the trade date's close;
		// anything outside the target set is closed.
		invested := 0.0
		for sym := range units {
			delete(units, sym)
		}
		for sym, w := range dec.Weights {
			px := t.Close(sym, i)
			units[sym] = preValue * w / px
			invested += preValue * w
		}
		cash = preValue - invested

		var trades []costs.Trade
		var turnover, grossTrade, grossSell float64
		for _, sym := range symbols {
			w0 := preWeights[sym]
			w1 := dec.Weights[sym]
			dw := w1 - w0
			if dw < 0 {
				dw = -dw
			}
			if dw <= 0 {
				continue
			}
			sellValue := 0.0
			if w0 > w1 {
				sellValue = (w0 - w1) * preValue
			}
			trades = append(trades, costs.Trade{Symbol: sym, TradeValue: dw * preValue, SellValue: sellValue})
			turnover += dw
			grossTrade += dw * preValue
			grossSell += sellValue
		}

		cost := cfg.Costs.Estimate(trades)
		if cost > 0 {
			cash -= cost
		}
		postValue := preValue - cost

		// Restamp day i with the post-cost close so drawdowns computed
		// from it already carry the cost.
		equity[i] = postValue
		if postValue > peak {
			peak = postValue
		}
		peaks[i] = peak

		records = append(records, RebalanceRecord{
			TradeDate:       t.Date(i),
			SignalDate:      dec.SignalDate,
			Regime:          dec.Regime,
			Winner:          dec.Winner,
			Drawdown:        dec.Drawdown,
			PreValue:        preValue,
			PostValue:       postValue,
			Turnover:        turnover,
			OneWayTurnover:  turnover / 2.0,
			GrossTradeValue: grossTrade,
			GrossSellValue:  grossSell,
			EstimatedCost:   cost,
		})
	}

	curve := make([]market.Point, n)
	for i, date := range t.Dates() {
		curve[i] = market.Point{Date: date, Value: equity[i]}
	}

	return &Result{
		Equity:  curve,
		Records: records,
		Stats:   ComputeStats(curve, records, cfg.InitialCapital),
	}, nil
}

func dedup(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
