package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/camuig/etf-rotator/internal/market"
)

func curve(values ...float64) []market.Point {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := make([]market.Point, len(values))
	for i, v := range values {
		pts[i] = market.Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return pts
}

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(nil, nil, 100000)
	assert.Zero(t, s.TotalReturn)
	assert.Zero(t, s.MaxDrawdown)
}

func TestComputeStatsReturns(t *testing.T) {
	s := ComputeStats(curve(100, 105, 110, 121), nil, 100)

	assert.InDelta(t, 0.21, s.TotalReturn, 1e-12)
	assert.InDelta(t, math.Pow(1.21, 252.0/4.0)-1, s.CAGR, 1e-9)
	assert.Equal(t, 0.0, s.MaxDrawdown, "monotone curve has no drawdown")
	assert.True(t, math.IsNaN(s.EstimatedCostOverGross), "no gross traded value")
}

func TestMaxDrawdown(t *testing.T) {
	// Peak 120, trough 90.
	got := maxDrawdown(curve(100, 120, 90, 110, 130))
	assert.InDelta(t, 90.0/120.0-1.0, got, 1e-12)
	assert.LessOrEqual(t, got, 0.0)
}

func TestSharpeDegenerate(t *testing.T) {
	assert.True(t, math.IsNaN(sharpe(curve(100, 101))), "too short")
	assert.True(t, math.IsNaN(sharpe(curve(100, 100, 100, 100))), "zero variance")
}

func TestSharpeSign(t *testing.T) {
	up := sharpe(curve(100, 102, 103, 106, 107))
	down := sharpe(curve(100, 98, 97, 94, 93))
	assert.Greater(t, up, 0.0)
	assert.Less(t, down, 0.0)
}

func TestComputeStatsLedgerAggregates(t *testing.T) {
	records := []RebalanceRecord{
		{OneWayTurnover: 0.9, GrossTradeValue: 90000, EstimatedCost: 50},
		{OneWayTurnover: 0.1, GrossTradeValue: 10000, EstimatedCost: 10},
	}
	s := ComputeStats(curve(100000, 100100, 100200), records, 100000)

	assert.InDelta(t, 60.0, s.EstimatedTotalCost, 1e-12)
	assert.InDelta(t, 0.5, s.AvgWeeklyTurnoverOneWay, 1e-12)
	assert.InDelta(t, 60.0/100000.0, s.EstimatedCostPctInitial, 1e-12)
	assert.InDelta(t, 60.0/100000.0, s.EstimatedCostOverGross, 1e-12)
}
