package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/camuig/etf-rotator/internal/backtest"
	"github.com/camuig/etf-rotator/internal/config"
	"github.com/camuig/etf-rotator/internal/costs"
	"github.com/camuig/etf-rotator/internal/logger"
	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/paper"
	"github.com/camuig/etf-rotator/internal/storage"
	"github.com/camuig/etf-rotator/internal/strategy"
)

var (
	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "rotator",
	Short: "Weekly ETF rotation with a drawdown risk gate",
	Long: `rotator scores a small growth ETF universe on momentum over recent
volatility every week, rotates into the single best fund, and shifts
toward a defensive ETF when the account drawdown trips the risk gate.

It runs the same decision pipeline in two modes: a continuous backtest
over stored daily bars, and a discrete paper account advanced one
rebalance at a time with integer share lots and modeled costs.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "data/etf-rotator.db", "path to SQLite database")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config, the logger and the database repository shared by
// every subcommand.
func setup() (*config.Config, *logger.Logger, *storage.Repository, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Logging.Level)
	db, err := storage.NewDatabase(dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, log, storage.NewRepository(db), nil
}

// loadTable builds the aligned close table for the configured universe
// from the bars already stored in the database.
func loadTable(cfg *config.Config, repo *storage.Repository) (*market.Table, error) {
	symbols := cfg.Symbols()
	series, err := repo.LoadCloses(symbols, cfg.StartTime(), cfg.EndTime())
	if err != nil {
		return nil, fmt.Errorf("load closes: %w", err)
	}
	t, err := market.Build(series, symbols)
	if err != nil {
		return nil, fmt.Errorf("build price table: %w", err)
	}
	return t, nil
}

func strategyParams(cfg *config.Config) strategy.Params {
	return strategy.Params{
		GrowthETFs:           cfg.Universe.GrowthETFs,
		DefensiveETF:         cfg.Universe.DefensiveETF,
		MomentumLookbackDays: cfg.Signal.MomentumLookbackDays,
		VolLookbackWeeks:     cfg.Signal.VolLookbackWeeks,
		VolFloor:             cfg.Signal.VolFloor,
		NormalGrowthWeight:   cfg.Allocation.NormalGrowthWeight,
		DeriskGrowthWeight:   cfg.Allocation.DeriskGrowthWeight,
		NoTradeBand:          cfg.Project.NoTradeBand,
	}
}

func costModel(cfg *config.Config) costs.Model {
	return costs.Model{
		CommissionRate: cfg.Costs.CommissionRate,
		MinCommission:  cfg.Costs.MinCommission,
		StampTaxRate:   cfg.Costs.StampTaxRate,
		SlippageBps:    cfg.Costs.SlippageBps,
	}
}

func backtestConfig(cfg *config.Config) backtest.Config {
	return backtest.Config{
		Strategy:        strategyParams(cfg),
		DeriskDrawdown:  cfg.RiskGate.DeriskDrawdown,
		CircuitDrawdown: cfg.RiskGate.CircuitDrawdown,
		CooldownWeeks:   cfg.RiskGate.CooldownWeeks,
		InitialCapital:  cfg.Project.InitialCapital,
		Costs:           costModel(cfg),
	}
}

func paperConfig(cfg *config.Config) paper.Config {
	return paper.Config{
		Strategy:        strategyParams(cfg),
		DeriskDrawdown:  cfg.RiskGate.DeriskDrawdown,
		CircuitDrawdown: cfg.RiskGate.CircuitDrawdown,
		CooldownWeeks:   cfg.RiskGate.CooldownWeeks,
		InitialCapital:  cfg.Project.InitialCapital,
		Costs:           costModel(cfg),
		AccountName:     cfg.Paper.AccountName,
	}
}

func fmtDate(t time.Time) string { return t.Format("2006-01-02") }
