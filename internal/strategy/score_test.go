package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/etf-rotator/internal/market"
)

// businessDays returns n consecutive Mon-Fri dates starting at start.
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

// flatThenRamp returns a series that stays at base and moves to final over
// the last momentumDays rows.
func flatThenRamp(n, momentumDays int, base, final float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base
	}
	step := (final - base) / float64(momentumDays)
	for k := 1; k <= momentumDays; k++ {
		out[n-1-momentumDays+k] = base + step*float64(k)
	}
	return out
}

func TestComputeScoresOrdering(t *testing.T) {
	// Three weeks of data. With the vol floor well above the realized
	// weekly vol, score reduces to momentum / floor, so the asserts are
	// exact.
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 15)
	tbl := buildTable(t, map[string][]float64{
		"A": flatThenRamp(15, 2, 1.00, 1.10), // momentum +10%
		"B": flatThenRamp(15, 2, 1.00, 1.05), // momentum +5%
	}, dates)

	scores := ComputeScores(tbl, []string{"A", "B"}, 14, 2, 2, 1.0)
	require.Len(t, scores, 2)

	assert.Equal(t, "A", scores[0].Symbol)
	assert.InDelta(t, 0.10, scores[0].Score, 1e-9)
	assert.Equal(t, "B", scores[1].Symbol)
	assert.InDelta(t, 0.05, scores[1].Score, 1e-9)
	assert.Equal(t, "A", PickBest(scores, "B"))
}

func TestComputeScoresInsufficientHistory(t *testing.T) {
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 15)
	tbl := buildTable(t, map[string][]float64{
		"A": flatThenRamp(15, 2, 1.00, 1.10),
	}, dates)

	// Momentum lookback longer than the available history.
	scores := ComputeScores(tbl, []string{"A"}, 14, 30, 2, 1.0)
	require.Len(t, scores, 1)
	assert.True(t, math.IsInf(scores[0].Score, -1))

	// Not enough weekly returns for the vol window.
	scores = ComputeScores(tbl, []string{"A"}, 14, 2, 10, 1.0)
	assert.True(t, math.IsInf(scores[0].Score, -1))
}

func TestComputeScoresStableTies(t *testing.T) {
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 15)
	flat := flatThenRamp(15, 2, 1.00, 1.00)
	tbl := buildTable(t, map[string][]float64{
		"C": flat, "A": flat, "B": flat,
	}, dates)

	// Identical series score identically; the candidate order must win.
	scores := ComputeScores(tbl, []string{"C", "A", "B"}, 14, 2, 2, 1.0)
	require.Len(t, scores, 3)
	assert.Equal(t, "C", scores[0].Symbol)
	assert.Equal(t, "A", scores[1].Symbol)
	assert.Equal(t, "B", scores[2].Symbol)
	assert.Equal(t, "C", PickBest(scores, "A"))
}

func TestPickBestFallback(t *testing.T) {
	assert.Equal(t, "X", PickBest(nil, "X"))
	assert.Equal(t, "X", PickBest([]SymbolScore{
		{Symbol: "A", Score: math.Inf(-1)},
		{Symbol: "B", Score: math.Inf(-1)},
	}, "X"))
}

func TestVolFloorCapsScore(t *testing.T) {
	dates := businessDays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 15)
	series := flatThenRamp(15, 2, 1.00, 1.10)
	tbl := buildTable(t, map[string][]float64{"A": series}, dates)

	low := ComputeScores(tbl, []string{"A"}, 14, 2, 2, 1e-6)[0].Score
	high := ComputeScores(tbl, []string{"A"}, 14, 2, 2, 10.0)[0].Score
	assert.Greater(t, low, high, "a higher floor must shrink the score")
	assert.InDelta(t, 0.01, high, 1e-9)
}

func TestSampleStd(t *testing.T) {
	assert.Equal(t, 0.0, sampleStd([]float64{0.5}))
	assert.InDelta(t, 1.0, sampleStd([]float64{1, 2, 3}), 1e-12)
}
