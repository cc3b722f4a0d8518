package paper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/etf-rotator/internal/costs"
	"github.com/camuig/etf-rotator/internal/logger"
	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/strategy"
)

// memoryStore is the in-memory Store double used across these tests.
type memoryStore struct {
	accounts map[string]*Account
	saves    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: make(map[string]*Account)}
}

func (m *memoryStore) Load(name string) (*Account, bool, error) {
	a, ok := m.accounts[name]
	return a, ok, nil
}

func (m *memoryStore) Save(a *Account) error {
	m.saves++
	m.accounts[a.Name] = a
	return nil
}

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
		AccountName:     "test",
	}
}

// rampTable is three weeks where A climbs steadily and everything else
// stays flat.
func rampTable(t *testing.T) *market.Table {
	t.Helper()
	n := 15
	a := make([]float64, n)
	b := make([]float64, n)
	def := make([]float64, n)
	for i := 0; i < n; i++ {
		a[i] = 10.00 + 0.05*float64(i)
		b[i] = 10.00
		def[i] = 10.00
	}
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), n)
	return buildTable(t, map[string][]float64{"A": a, "B": b, "DEF": def}, dates)
}

// crashTable is four weeks where A climbs for two weeks and then gaps down
// far enough to trip the circuit breaker.
func crashTable(t *testing.T) *market.Table {
	t.Helper()
	n := 20
	a := make([]float64, n)
	b := make([]float64, n)
	def := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < 10 {
			a[i] = 10.00 + 0.10*float64(i)
		} else {
			a[i] = 6.50
		}
		b[i] = 10.00
		def[i] = 10.00
	}
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), n)
	return buildTable(t, map[string][]float64{"A": a, "B": b, "DEF": def}, dates)
}

func newTestDriver(store Store, cfg Config) *Driver {
	return NewDriver(store, cfg, logger.New("error"))
}

func TestAdvanceFirstRebalance(t *testing.T) {
	tbl := rampTable(t)
	store := newMemoryStore()
	d := newTestDriver(store, testConfig())

	res, err := d.Advance(tbl)
	require.NoError(t, err)

	// The first boundary is the second Monday; trade there at its close.
	assert.Equal(t, tbl.Date(5), res.TradeDate)
	assert.Equal(t, tbl.Date(4), res.Decision.SignalDate)
	assert.Equal(t, strategy.RegimeNormal, res.Decision.Regime)

	account := res.Account
	assert.Equal(t, tbl.Date(5), account.AsOf)

	// floor(100000 / 10.25) shares of the winner, remainder in cash.
	require.Equal(t, int64(9756), account.Positions["A"])
	assert.NotContains(t, account.Positions, "B")
	assert.InDelta(t, 1.0, account.Cash, 1e-9)
	assert.GreaterOrEqual(t, account.Cash, 0.0)

	// Cash plus holdings at the trade close must equal the pre-trade value
	// when costs are zero.
	assert.InDelta(t, res.PreValue, res.PostValue, 1e-9)
	assert.InDelta(t, 100000.0, res.PostValue, 1e-9)

	require.Len(t, account.History, 1)
	assert.Equal(t, tbl.Date(5), account.History[0].Date)

	require.Equal(t, 1, store.saves)
	saved, ok, err := store.Load("test")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, account, saved)
}

func TestAdvanceBlotter(t *testing.T) {
	tbl := rampTable(t)
	d := newTestDriver(newMemoryStore(), testConfig())

	res, err := d.Advance(tbl)
	require.NoError(t, err)

	// Sorted union of universe symbols, HOLD rows included.
	require.Len(t, res.Blotter, 3)
	assert.Equal(t, "A", res.Blotter[0].Symbol)
	assert.Equal(t, "B", res.Blotter[1].Symbol)
	assert.Equal(t, "DEF", res.Blotter[2].Symbol)

	a := res.Blotter[0]
	assert.Equal(t, "BUY", a.Action)
	assert.Equal(t, int64(9756), a.TargetShares)
	assert.Equal(t, int64(9756), a.DeltaShares)
	assert.Equal(t, 10.25, a.ReferencePrice)
	assert.Equal(t, 1.0, a.TargetWeight)

	for _, row := range res.Blotter[1:] {
		assert.Equal(t, "HOLD", row.Action)
		assert.Zero(t, row.DeltaShares)
	}
	for _, row := range res.Blotter {
		assert.Equal(t, tbl.Date(5), row.TradeDate)
		assert.Equal(t, tbl.Date(4), row.SignalDate)
		assert.Equal(t, strategy.RegimeNormal, row.Regime)
	}
}

func TestAdvanceOneRebalancePerCall(t *testing.T) {
	tbl := rampTable(t)
	store := newMemoryStore()
	d := newTestDriver(store, testConfig())

	first, err := d.Advance(tbl)
	require.NoError(t, err)
	assert.Equal(t, tbl.Date(5), first.TradeDate)

	second, err := d.Advance(tbl)
	require.NoError(t, err)
	assert.Equal(t, tbl.Date(10), second.TradeDate)

	// Pre-trade value is cash plus holdings at the trade-date close.
	wantPre := first.Account.Cash + float64(first.Account.Positions["A"])*tbl.Close("A", 10)
	assert.InDelta(t, wantPre, second.PreValue, 1e-9)

	// Same winner, unchanged integer target: a pure HOLD week.
	for _, row := range second.Blotter {
		assert.Equal(t, "HOLD", row.Action)
	}
	assert.Equal(t, first.Account.Positions["A"], second.Account.Positions["A"])

	_, err = d.Advance(tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNothingToDo))

	// A no-op advance must not touch the persisted account.
	assert.Equal(t, tbl.Date(10), store.accounts["test"].AsOf)
	assert.Equal(t, 2, store.saves)
}

func TestAdvanceBackfillsHistory(t *testing.T) {
	tbl := rampTable(t)
	d := newTestDriver(newMemoryStore(), testConfig())

	_, err := d.Advance(tbl)
	require.NoError(t, err)
	res, err := d.Advance(tbl)
	require.NoError(t, err)

	// First trade day, the four days up to the second signal, then the
	// second trade day.
	history := res.Account.History
	require.Len(t, history, 6)
	for i, p := range history {
		assert.Equal(t, tbl.Date(5+i), p.Date)
		if i > 0 {
			assert.True(t, p.Date.After(history[i-1].Date))
		}
		assert.Greater(t, p.Value, 0.0)
	}
	assert.GreaterOrEqual(t, res.Account.EquityPeak, history[len(history)-1].Value)
}

func TestAdvanceCircuitTripRotatesToDefensive(t *testing.T) {
	tbl := crashTable(t)
	store := newMemoryStore()
	d := newTestDriver(store, testConfig())

	for i := 0; i < 2; i++ {
		res, err := d.Advance(tbl)
		require.NoError(t, err)
		require.Equal(t, strategy.RegimeNormal, res.Decision.Regime)
	}

	res, err := d.Advance(tbl)
	require.NoError(t, err)
	assert.Equal(t, tbl.Date(15), res.TradeDate)
	assert.Equal(t, strategy.RegimeCircuitCooldown, res.Decision.Regime)
	assert.True(t, res.Decision.RegimeChanged)

	account := res.Account
	assert.Equal(t, strategy.RegimeCircuitCooldown, account.GateState)
	assert.Equal(t, 3, account.CooldownLeft)
	assert.NotContains(t, account.Positions, "A", "growth position liquidated")
	assert.Greater(t, account.Positions["DEF"], int64(0))
	assert.GreaterOrEqual(t, account.Cash, 0.0)

	// Sell A, buy DEF.
	var sawSell, sawBuy bool
	for _, row := range res.Blotter {
		switch row.Symbol {
		case "A":
			assert.Equal(t, "SELL", row.Action)
			sawSell = true
		case "DEF":
			assert.Equal(t, "BUY", row.Action)
			sawBuy = true
		}
	}
	assert.True(t, sawSell)
	assert.True(t, sawBuy)
}

func TestAdvanceDegradesBuyOnInsufficientCash(t *testing.T) {
	n := 10
	flat := func(v float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), n)
	tbl := buildTable(t, map[string][]float64{
		"A": flat(100), "B": flat(100), "DEF": flat(100),
	}, dates)

	cfg := testConfig()
	cfg.InitialCapital = 1000
	cfg.Costs = costs.Model{MinCommission: 5.0}
	d := newTestDriver(newMemoryStore(), cfg)

	res, err := d.Advance(tbl)
	require.NoError(t, err)

	// The ideal 10 shares plus the minimum commission exceed the cash, so
	// the buy shrinks by one share instead of failing.
	account := res.Account
	assert.Equal(t, int64(9), account.Positions["A"])
	assert.InDelta(t, 95.0, account.Cash, 1e-9)

	var row BlotterRow
	for _, r := range res.Blotter {
		if r.Symbol == "A" {
			row = r
		}
	}
	assert.Equal(t, "BUY", row.Action)
	assert.Equal(t, int64(9), row.TargetShares, "executed shares win over the ideal target")
	assert.Equal(t, int64(9), row.DeltaShares)
	assert.InDelta(t, 5.0, row.EstimatedCost, 1e-9)
}

func TestAdvanceFullyDegradedBuyIsHold(t *testing.T) {
	n := 10
	flat := func(v float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = v
		}
		return out
	}
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), n)
	tbl := buildTable(t, map[string][]float64{
		"A": flat(100), "B": flat(100), "DEF": flat(100),
	}, dates)

	cfg := testConfig()
	cfg.InitialCapital = 100
	cfg.Costs = costs.Model{MinCommission: 5.0}
	store := newMemoryStore()
	d := newTestDriver(store, cfg)

	res, err := d.Advance(tbl)
	require.NoError(t, err)

	// One share plus the minimum commission exceeds the cash, so the buy
	// shrinks all the way to zero and nothing executes.
	account := res.Account
	assert.NotContains(t, account.Positions, "A")
	assert.InDelta(t, 100.0, account.Cash, 1e-9)
	assert.InDelta(t, 100.0, res.PostValue, 1e-9)

	var row BlotterRow
	for _, r := range res.Blotter {
		if r.Symbol == "A" {
			row = r
		}
	}
	assert.Equal(t, "HOLD", row.Action, "a buy degraded to nothing settles as a hold")
	assert.Equal(t, int64(0), row.TargetShares)
	assert.Equal(t, int64(0), row.DeltaShares)
	assert.InDelta(t, 0.0, row.EstimatedCost, 1e-9)
}

func TestAdvanceMissingSymbol(t *testing.T) {
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 10)
	vals := make([]float64, 10)
	for i := range vals {
		vals[i] = 10
	}
	tbl := buildTable(t, map[string][]float64{"A": vals, "B": vals}, dates)

	d := newTestDriver(newMemoryStore(), testConfig())
	_, err := d.Advance(tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, market.ErrMissingHistory))
}

func TestAdvanceNoWeeklyBoundary(t *testing.T) {
	// A single partial week has no boundary to trade on.
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 4)
	vals := []float64{10, 10, 10, 10}
	tbl := buildTable(t, map[string][]float64{"A": vals, "B": vals, "DEF": vals}, dates)

	d := newTestDriver(newMemoryStore(), testConfig())
	_, err := d.Advance(tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, market.ErrMissingHistory))
}

func TestPlanDoesNotMutate(t *testing.T) {
	tbl := rampTable(t)
	store := newMemoryStore()
	d := newTestDriver(store, testConfig())

	plan, err := d.Plan(tbl)
	require.NoError(t, err)
	assert.Equal(t, tbl.Date(5), plan.TradeDate)
	assert.Equal(t, strategy.RegimeNormal, plan.Regime)
	assert.Equal(t, "A", plan.Winner)

	var aLine *PlanLine
	for i := range plan.Lines {
		if plan.Lines[i].Symbol == "A" {
			aLine = &plan.Lines[i]
		}
	}
	require.NotNil(t, aLine)
	assert.Equal(t, int64(9756), aLine.TargetShares)
	assert.Zero(t, aLine.CurrentShares)

	// Dry run: nothing persisted.
	assert.Zero(t, store.saves)
	assert.Empty(t, store.accounts)

	// The subsequent advance must act out the plan.
	res, err := d.Advance(tbl)
	require.NoError(t, err)
	assert.Equal(t, plan.TradeDate, res.TradeDate)
	assert.Equal(t, plan.Regime, res.Decision.Regime)
	assert.Equal(t, int64(9756), res.Account.Positions["A"])
}

func TestPlanNothingToDo(t *testing.T) {
	tbl := rampTable(t)
	d := newTestDriver(newMemoryStore(), testConfig())

	_, err := d.Advance(tbl)
	require.NoError(t, err)
	_, err = d.Advance(tbl)
	require.NoError(t, err)

	_, err = d.Plan(tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNothingToDo))
}

func TestAdvanceLiquidatesStrayHolding(t *testing.T) {
	tbl := rampTable(t)
	store := newMemoryStore()

	// Seed an account holding a symbol outside the current target set.
	account := NewAccount("test", 0)
	account.Cash = 500
	account.Positions["B"] = 100
	store.accounts["test"] = account

	d := newTestDriver(store, testConfig())
	res, err := d.Advance(tbl)
	require.NoError(t, err)

	assert.NotContains(t, res.Account.Positions, "B")
	var bRow BlotterRow
	for _, r := range res.Blotter {
		if r.Symbol == "B" {
			bRow = r
		}
	}
	assert.Equal(t, "SELL", bRow.Action)
	assert.Equal(t, int64(-100), bRow.DeltaShares)
}
