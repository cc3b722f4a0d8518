package market

import "time"

// WeekEnd returns the Friday on or after d. Two dates belong to the same
// weekly period iff they share a WeekEnd; the rebalance cadence is anchored
// on Friday-ending weeks.
func WeekEnd(d time.Time) time.Time {
	d = Day(d)
	delta := (int(time.Friday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, delta)
}

// RebalanceFlags marks rows that open a new weekly period, i.e. the first
// trading day after the previous week closed. The first row is never a
// rebalance day: there is no prior week to act on.
func (t *Table) RebalanceFlags() []bool {
	flags := make([]bool, len(t.dates))
	for i := 1; i < len(t.dates); i++ {
		flags[i] = !WeekEnd(t.dates[i]).Equal(WeekEnd(t.dates[i-1]))
	}
	return flags
}

// RebalanceIndexes returns the row positions flagged by RebalanceFlags.
func (t *Table) RebalanceIndexes() []int {
	flags := t.RebalanceFlags()
	var out []int
	for i, f := range flags {
		if f {
			out = append(out, i)
		}
	}
	return out
}

// WeeklyCloses returns the last close of each weekly period for sym over
// rows [0, upto]. The trailing, possibly partial, week contributes its
// latest close.
func (t *Table) WeeklyCloses(sym string, upto int) []float64 {
	col, ok := t.cols[sym]
	if !ok || upto < 0 {
		return nil
	}
	var out []float64
	var curEnd time.Time
	for i := 0; i <= upto && i < len(col); i++ {
		end := WeekEnd(t.dates[i])
		if len(out) == 0 || !end.Equal(curEnd) {
			out = append(out, col[i])
			curEnd = end
		} else {
			out[len(out)-1] = col[i]
		}
	}
	return out
}
