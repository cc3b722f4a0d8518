package strategy

import (
	"math"
	"sort"

	"github.com/camuig/etf-rotator/internal/market"
)

// SymbolScore is a candidate's momentum/volatility score as of a signal
// date. Score is -Inf for symbols with insufficient history; they are never
// preferred over a finite-score peer.
type SymbolScore struct {
	Symbol string
	Score  float64
}

// ComputeScores scores each candidate at table row signalIdx:
//
//	momentum = close[signal] / close[signal-momentumDays] - 1
//	vol      = stddev of the trailing volWeeks weekly returns, floored
//	score    = momentum / vol
//
// Results are sorted descending; ties keep the candidate order.
func ComputeScores(t *market.Table, symbols []string, signalIdx int, momentumDays, volWeeks int, volFloor float64) []SymbolScore {
	scores := make([]SymbolScore, 0, len(symbols))
	for _, sym := range symbols {
		scores = append(scores, SymbolScore{
			Symbol: sym,
			Score:  scoreOne(t, sym, signalIdx, momentumDays, volWeeks, volFloor),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores
}

func scoreOne(t *market.Table, sym string, signalIdx, momentumDays, volWeeks int, volFloor float64) float64 {
	closes := t.ClosesUpTo(sym, signalIdx)
	if len(closes) < momentumDays+1 {
		return math.Inf(-1)
	}
	base := closes[len(closes)-1-momentumDays]
	momentum := closes[len(closes)-1]/base - 1.0

	weekly := t.WeeklyCloses(sym, signalIdx)
	returns := pctChange(weekly)
	if len(returns) < volWeeks {
		return math.Inf(-1)
	}
	vol := sampleStd(returns[len(returns)-volWeeks:])
	if vol < volFloor {
		vol = volFloor
	}
	return momentum / vol
}

// PickBest returns the top-scoring symbol, or fallback when the score set
// is empty or the top score is not finite.
func PickBest(scores []SymbolScore, fallback string) string {
	if len(scores) == 0 {
		return fallback
	}
	if math.IsInf(scores[0].Score, 0) || math.IsNaN(scores[0].Score) {
		return fallback
	}
	return scores[0].Symbol
}

func pctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		out = append(out, values[i]/values[i-1]-1.0)
	}
	return out
}

// sampleStd is the n-1 standard deviation.
func sampleStd(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
