package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/camuig/etf-rotator/internal/backtest"
	"github.com/camuig/etf-rotator/internal/paper"
	"github.com/camuig/etf-rotator/internal/report"
)

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Advance the paper account by one weekly rebalance",
	Long: `Execute the earliest pending weekly rebalance for the persisted paper
account: backfill the equity history up to the signal date, compute the
decision, trade integer share lots with modeled costs and save the
updated account and its trade blotter.

Each invocation processes at most one rebalance. Run it repeatedly to
catch up after a gap.`,
	RunE: runPaper,
}

func init() {
	rootCmd.AddCommand(paperCmd)
}

func runPaper(cmd *cobra.Command, args []string) error {
	cfg, log, repo, err := setup()
	if err != nil {
		return err
	}

	table, err := loadTable(cfg, repo)
	if err != nil {
		return err
	}

	driver := paper.NewDriver(repo, paperConfig(cfg), log)
	res, err := driver.Advance(table)
	if errors.Is(err, paper.ErrNothingToDo) {
		fmt.Println("account is caught up, nothing to do")
		return nil
	}
	if err != nil {
		return err
	}

	if err := repo.SaveBlotter(res.Account.Name, res.Blotter); err != nil {
		log.Error("save blotter", "error", err)
	}
	if err := report.WriteBlotterCSV(filepath.Join(cfg.Report.OutputDir, "blotter.csv"), res.Blotter); err != nil {
		log.Error("write blotter csv", "error", err)
	}

	// Refresh the HTML report from the account's full equity history.
	stats := backtest.ComputeStats(res.Account.History, nil, cfg.Project.InitialCapital)
	if err := report.WriteHTML(filepath.Join(cfg.Report.OutputDir, "paper.html"),
		"ETF 轮动模拟盘", res.Account.History, stats); err != nil {
		log.Error("write paper report", "error", err)
	}

	printAdvance(res)
	return nil
}

func printAdvance(res *paper.AdvanceResult) {
	fmt.Printf("rebalance %s (signal %s)  regime=%s  winner=%s  dd=%.2f%%\n",
		fmtDate(res.TradeDate), fmtDate(res.Decision.SignalDate),
		res.Decision.Regime, res.Decision.Winner, res.Decision.Drawdown*100)
	fmt.Printf("value %.2f -> %.2f, cash %.2f\n\n", res.PreValue, res.PostValue, res.Account.Cash)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tACTION\tCUR W\tTGT W\tTGT SH\tDELTA\tPRICE\tCOST")
	for _, row := range res.Blotter {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.3f\t%d\t%d\t%.3f\t%.2f\n",
			row.Symbol, row.Action, row.CurrentWeight, row.TargetWeight,
			row.TargetShares, row.DeltaShares, row.ReferencePrice, row.EstimatedCost)
	}
	w.Flush()
}
