package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/camuig/etf-rotator/internal/backtest"
	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/paper"
)

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteRebalancesCSV dumps the backtest ledger.
func WriteRebalancesCSV(path string, records []backtest.RebalanceRecord) error {
	header := []string{
		"trade_date", "signal_date", "regime", "winner", "drawdown",
		"portfolio_value_pre", "portfolio_value_post", "turnover_abs_weight",
		"turnover_oneway", "gross_trade_value", "gross_sell_value", "estimated_cost",
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.TradeDate.Format("2006-01-02"),
			r.SignalDate.Format("2006-01-02"),
			string(r.Regime),
			r.Winner,
			ftoa(r.Drawdown),
			ftoa(r.PreValue),
			ftoa(r.PostValue),
			ftoa(r.Turnover),
			ftoa(r.OneWayTurnover),
			ftoa(r.GrossTradeValue),
			ftoa(r.GrossSellValue),
			ftoa(r.EstimatedCost),
		})
	}
	return writeCSV(path, header, rows)
}

// WriteEquityCSV dumps an equity curve.
func WriteEquityCSV(path string, equity []market.Point) error {
	header := []string{"date", "equity"}
	rows := make([][]string, 0, len(equity))
	for _, p := range equity {
		rows = append(rows, []string{p.Date.Format("2006-01-02"), ftoa(p.Value)})
	}
	return writeCSV(path, header, rows)
}

// ReadEquityCSV loads a curve previously written by WriteEquityCSV, so a
// report can be re-rendered without re-running the simulation.
func ReadEquityCSV(path string) ([]market.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s: no equity rows", path)
	}

	equity := make([]market.Point, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("%s: short row %v", path, row)
		}
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("%s: bad date %q: %w", path, row[0], err)
		}
		v, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad equity %q: %w", path, row[1], err)
		}
		equity = append(equity, market.Point{Date: date, Value: v})
	}
	return equity, nil
}

// WriteBlotterCSV dumps one rebalance's paper blotter.
func WriteBlotterCSV(path string, blotter []paper.BlotterRow) error {
	header := []string{
		"trade_date", "signal_date", "symbol", "action", "current_weight",
		"target_weight", "target_shares", "delta_shares", "reference_price",
		"estimated_cost", "regime",
	}
	rows := make([][]string, 0, len(blotter))
	for _, b := range blotter {
		rows = append(rows, []string{
			b.TradeDate.Format("2006-01-02"),
			b.SignalDate.Format("2006-01-02"),
			b.Symbol,
			b.Action,
			ftoa(b.CurrentWeight),
			ftoa(b.TargetWeight),
			strconv.FormatInt(b.TargetShares, 10),
			strconv.FormatInt(b.DeltaShares, 10),
			ftoa(b.ReferencePrice),
			ftoa(b.EstimatedCost),
			string(b.Regime),
		})
	}
	return writeCSV(path, header, rows)
}
