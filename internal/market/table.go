package market

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var ErrMissingHistory = errors.New("missing price history")

// Point is one dated value (close price or equity).
type Point struct {
	Date  time.Time
	Value float64
}

// Table is a date-indexed table of daily closes, one column per symbol.
// Dates are strictly increasing, columns are forward-filled and aligned:
// every symbol has a finite close on every row. Immutable after Build.
type Table struct {
	dates   []time.Time
	symbols []string
	cols    map[string][]float64
}

// Day normalizes a timestamp to its UTC calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Build aligns per-symbol close series into a Table. Duplicate dates keep
// the last value, gaps are forward-filled, and leading rows where any
// symbol has no history yet are dropped. A symbol with no data at all, or
// an empty intersection after alignment, is ErrMissingHistory.
func Build(series map[string][]Point, symbols []string) (*Table, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no symbols requested", ErrMissingHistory)
	}

	dateSet := make(map[time.Time]bool)
	bySym := make(map[string]map[time.Time]float64, len(symbols))
	for _, sym := range symbols {
		pts := series[sym]
		if len(pts) == 0 {
			return nil, fmt.Errorf("%w: %s has no data", ErrMissingHistory, sym)
		}
		m := make(map[time.Time]float64, len(pts))
		for _, p := range pts {
			if math.IsNaN(p.Value) {
				continue
			}
			d := Day(p.Date)
			m[d] = p.Value
			dateSet[d] = true
		}
		bySym[sym] = m
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	cols := make(map[string][]float64, len(symbols))
	for _, sym := range symbols {
		col := make([]float64, len(dates))
		last := math.NaN()
		for i, d := range dates {
			if v, ok := bySym[sym][d]; ok {
				last = v
			}
			col[i] = last
		}
		cols[sym] = col
	}

	// Drop leading rows until every column is filled.
	start := 0
	for ; start < len(dates); start++ {
		complete := true
		for _, sym := range symbols {
			if math.IsNaN(cols[sym][start]) {
				complete = false
				break
			}
		}
		if complete {
			break
		}
	}
	if start == len(dates) {
		return nil, fmt.Errorf("%w: no date covers all symbols", ErrMissingHistory)
	}
	for _, sym := range symbols {
		cols[sym] = cols[sym][start:]
	}

	return &Table{
		dates:   dates[start:],
		symbols: append([]string{}, symbols...),
		cols:    cols,
	}, nil
}

func (t *Table) Len() int          { return len(t.dates) }
func (t *Table) Symbols() []string { return t.symbols }

func (t *Table) Date(i int) time.Time { return t.dates[i] }

func (t *Table) Dates() []time.Time { return t.dates }

// Index returns the row position of a date.
func (t *Table) Index(d time.Time) (int, bool) {
	d = Day(d)
	i := sort.Search(len(t.dates), func(i int) bool { return !t.dates[i].Before(d) })
	if i < len(t.dates) && t.dates[i].Equal(d) {
		return i, true
	}
	return 0, false
}

// Close returns the close of sym at row i.
func (t *Table) Close(sym string, i int) float64 {
	col, ok := t.cols[sym]
	if !ok {
		return math.NaN()
	}
	return col[i]
}

// ClosesUpTo returns sym's closes for rows [0, i].
func (t *Table) ClosesUpTo(sym string, i int) []float64 {
	col, ok := t.cols[sym]
	if !ok {
		return nil
	}
	return col[:i+1]
}

func (t *Table) HasSymbol(sym string) bool {
	_, ok := t.cols[sym]
	return ok
}
