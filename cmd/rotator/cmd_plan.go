package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/camuig/etf-rotator/internal/ai"
	"github.com/camuig/etf-rotator/internal/paper"
	"github.com/camuig/etf-rotator/internal/telegram"
)

var planNotify bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Preview the next pending rebalance without executing it",
	Long: `Compute the next pending weekly rebalance as a dry run. The persisted
account is not modified; the risk gate runs on a throwaway copy.

With --notify the plan is sent to Telegram, with DeepSeek commentary
attached when a key is configured.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().BoolVar(&planNotify, "notify", false, "send the plan to Telegram")
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, log, repo, err := setup()
	if err != nil {
		return err
	}

	table, err := loadTable(cfg, repo)
	if err != nil {
		return err
	}

	driver := paper.NewDriver(repo, paperConfig(cfg), log)
	plan, err := driver.Plan(table)
	if errors.Is(err, paper.ErrNothingToDo) {
		fmt.Println("account is caught up, nothing to plan")
		return nil
	}
	if err != nil {
		return err
	}

	printPlan(plan)

	if planNotify {
		aiClient := ai.NewDeepSeekClient(cfg, log)
		commentary, err := aiClient.PlanCommentary(context.Background(), plan)
		if err != nil {
			log.Error("plan commentary", "error", err)
			commentary = ""
		}
		telegram.NewNotifier(cfg, log).NotifyPlan(plan, commentary)
	}
	return nil
}

func printPlan(plan *paper.Plan) {
	fmt.Printf("plan for %s (signal %s)  regime=%s  winner=%s  dd=%.2f%%",
		fmtDate(plan.TradeDate), fmtDate(plan.SignalDate),
		plan.Regime, plan.Winner, plan.Drawdown*100)
	if plan.CooldownLeft > 0 {
		fmt.Printf("  cooldown=%d", plan.CooldownLeft)
	}
	fmt.Println()

	fmt.Println("\nscores:")
	for _, s := range plan.Scores {
		fmt.Printf("  %-8s %10.4f\n", s.Symbol, s.Score)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tCUR SH\tTGT SH\tCUR W\tTGT W\tPRICE")
	for _, l := range plan.Lines {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.3f\t%.3f\t%.3f\n",
			l.Symbol, l.CurrentShares, l.TargetShares,
			l.CurrentWeight, l.TargetWeight, l.ReferencePrice)
	}
	w.Flush()
}
