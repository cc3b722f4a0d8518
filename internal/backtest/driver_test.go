package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/etf-rotator/internal/costs"
	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/strategy"
)

func businessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := start
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func buildTable(t *testing.T, closes map[string][]float64, dates []time.Time) *market.Table {
	t.Helper()
	series := make(map[string][]market.Point, len(closes))
	symbols := make([]string, 0, len(closes))
	for sym, vals := range closes {
		require.Len(t, vals, len(dates))
		pts := make([]market.Point, len(dates))
		for i := range dates {
			pts[i] = market.Point{Date: dates[i], Value: vals[i]}
		}
		series[sym] = pts
		symbols = append(symbols, sym)
	}
	tbl, err := market.Build(series, symbols)
	require.NoError(t, err)
	return tbl
}

// crashTable is four weeks of data where A climbs for two weeks and then
// gaps down 40%, deep enough to trip the circuit breaker.
func crashTable(t *testing.T) *market.Table {
	t.Helper()
	n := 20
	a := make([]float64, n)
	b := make([]float64, n)
	def := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < 10 {
			a[i] = 1.00 + 0.01*float64(i)
		} else {
			a[i] = 0.65
		}
		b[i] = 1.00
		def[i] = 1.00
	}
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), n)
	return buildTable(t, map[string][]float64{"A": a, "B": b, "DEF": def}, dates)
}

func testConfig() Config {
	return Config{
		Strategy: strategy.Params{
			GrowthETFs:           []string{"A", "B"},
			DefensiveETF:         "DEF",
			MomentumLookbackDays: 2,
			VolLookbackWeeks:     2,
			VolFloor:             1.0,
			NormalGrowthWeight:   1.0,
			DeriskGrowthWeight:   0.5,
			NoTradeBand:          0.0,
		},
		DeriskDrawdown:  0.10,
		CircuitDrawdown: 0.20,
		CooldownWeeks:   4,
		InitialCapital:  100000,
	}
}

func TestRunEquityAndLedger(t *testing.T) {
	tbl := crashTable(t)
	res, err := Run(tbl, testConfig(), nil)
	require.NoError(t, err)

	require.Equal(t, tbl.Len(), len(res.Equity))
	assert.Equal(t, 100000.0, res.Equity[0].Value)
	for _, p := range res.Equity {
		require.False(t, math.IsNaN(p.Value) || math.IsInf(p.Value, 0))
		require.Greater(t, p.Value, 0.0)
	}

	// Weekly boundaries at the second, third and fourth Mondays.
	require.Len(t, res.Records, 3)
	assert.Equal(t, strategy.RegimeNormal, res.Records[0].Regime)
	assert.Equal(t, strategy.RegimeNormal, res.Records[1].Regime)
	assert.Equal(t, strategy.RegimeCircuitCooldown, res.Records[2].Regime,
		"the crash must trip the circuit at the next weekly boundary")

	for _, r := range res.Records {
		assert.InDelta(t, r.PreValue-r.EstimatedCost, r.PostValue, 1e-9)
		assert.InDelta(t, r.Turnover/2, r.OneWayTurnover, 1e-12)
		assert.True(t, r.SignalDate.Before(r.TradeDate))
	}

	// Full in, full out: the circuit rebalance turns the book over twice.
	assert.InDelta(t, 2.0, res.Records[2].Turnover, 1e-9)

	assert.LessOrEqual(t, res.Stats.MaxDrawdown, 0.0)
	assert.Less(t, res.Stats.MaxDrawdown, -0.30, "deep crash while fully invested")
}

func TestRunCostsReduceEquity(t *testing.T) {
	tbl := crashTable(t)

	free, err := Run(tbl, testConfig(), nil)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Costs = costs.Model{
		CommissionRate: 0.0003,
		MinCommission:  5.0,
		StampTaxRate:   0.0005,
		SlippageBps:    2.0,
	}
	paid, err := Run(tbl, cfg, nil)
	require.NoError(t, err)

	lastFree := free.Equity[len(free.Equity)-1].Value
	lastPaid := paid.Equity[len(paid.Equity)-1].Value
	assert.Less(t, lastPaid, lastFree)
	assert.Greater(t, paid.Stats.EstimatedTotalCost, 0.0)

	for _, r := range paid.Records {
		if r.GrossTradeValue > 0 {
			assert.Greater(t, r.EstimatedCost, 0.0)
		}
	}
}

func TestRunNoTradeWeeksAreFree(t *testing.T) {
	tbl := crashTable(t)
	cfg := testConfig()
	cfg.Costs = costs.Model{CommissionRate: 0.0003, MinCommission: 5.0}
	res, err := Run(tbl, cfg, nil)
	require.NoError(t, err)

	// Week 3 re-picks the same winner with unchanged weights: no trades,
	// no cost.
	require.Len(t, res.Records, 3)
	assert.Equal(t, 0.0, res.Records[1].Turnover)
	assert.Equal(t, 0.0, res.Records[1].EstimatedCost)
}

func TestRunMissingSymbol(t *testing.T) {
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	vals := make([]float64, 10)
	for i := range vals {
		vals[i] = 1
	}
	tbl := buildTable(t, map[string][]float64{"A": vals}, dates)

	_, err := Run(tbl, testConfig(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, market.ErrMissingHistory))
}

func TestRunEmptyUniverse(t *testing.T) {
	tbl := crashTable(t)
	cfg := testConfig()
	cfg.Strategy.GrowthETFs = nil
	_, err := Run(tbl, cfg, nil)
	require.Error(t, err)
}
