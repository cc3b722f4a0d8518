package backtest

import (
	"math"

	"github.com/camuig/etf-rotator/internal/market"
)

const tradingDaysPerYear = 252.0

// Stats are the summary numbers derived from an equity curve and its
// rebalance ledger.
type Stats struct {
	CAGR                    float64
	TotalReturn             float64
	MaxDrawdown             float64
	Sharpe                  float64
	AvgWeeklyTurnoverOneWay float64
	EstimatedTotalCost      float64
	EstimatedCostPctInitial float64
	EstimatedCostOverGross  float64
}

func ComputeStats(equity []market.Point, records []RebalanceRecord, initialCapital float64) Stats {
	var s Stats
	if len(equity) == 0 {
		return s
	}

	first, last := equity[0].Value, equity[len(equity)-1].Value
	s.TotalReturn = last/first - 1.0
	s.CAGR = math.Pow(last/first, tradingDaysPerYear/float64(len(equity))) - 1.0
	s.MaxDrawdown = maxDrawdown(equity)
	s.Sharpe = sharpe(equity)

	var totalCost, totalTurnover, totalGross float64
	for _, r := range records {
		totalCost += r.EstimatedCost
		totalTurnover += r.OneWayTurnover
		totalGross += r.GrossTradeValue
	}
	s.EstimatedTotalCost = totalCost
	if len(records) > 0 {
		s.AvgWeeklyTurnoverOneWay = totalTurnover / float64(len(records))
	}
	if initialCapital > 0 {
		s.EstimatedCostPctInitial = totalCost / initialCapital
	}
	if totalGross > 0 {
		s.EstimatedCostOverGross = totalCost / totalGross
	} else {
		s.EstimatedCostOverGross = math.NaN()
	}
	return s
}

// maxDrawdown returns the most negative excursion below the running peak;
// it is always <= 0.
func maxDrawdown(equity []market.Point) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		dd := p.Value/peak - 1.0
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// sharpe annualizes the mean/std of daily returns. Degenerate series
// (fewer than two returns, zero variance) yield NaN, mirroring how the
// ratio is undefined there.
func sharpe(equity []market.Point) float64 {
	if len(equity) < 3 {
		return math.NaN()
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		returns = append(returns, equity[i].Value/equity[i-1].Value-1.0)
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var ss float64
	for _, r := range returns {
		d := r - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(len(returns)-1))
	if std <= 0 || math.IsNaN(std) {
		return math.NaN()
	}
	return math.Sqrt(tradingDaysPerYear) * mean / std
}
