package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/camuig/etf-rotator/internal/ai"
	"github.com/camuig/etf-rotator/internal/config"
	"github.com/camuig/etf-rotator/internal/costs"
	"github.com/camuig/etf-rotator/internal/eastmoney"
	"github.com/camuig/etf-rotator/internal/logger"
	"github.com/camuig/etf-rotator/internal/market"
	"github.com/camuig/etf-rotator/internal/paper"
	"github.com/camuig/etf-rotator/internal/storage"
	"github.com/camuig/etf-rotator/internal/strategy"
	"github.com/camuig/etf-rotator/internal/telegram"
	"github.com/camuig/etf-rotator/internal/web"
)

// Scheduler periodically refreshes market data and advances the paper
// account through any pending weekly rebalances.
type Scheduler struct {
	data     *eastmoney.Client
	ai       *ai.DeepSeekClient
	repo     *storage.Repository
	notifier *telegram.Notifier
	config   *config.Config
	logger   *logger.Logger
}

func NewScheduler(
	data *eastmoney.Client,
	aiClient *ai.DeepSeekClient,
	repo *storage.Repository,
	notifier *telegram.Notifier,
	cfg *config.Config,
	log *logger.Logger,
) *Scheduler {
	return &Scheduler{
		data:     data,
		ai:       aiClient,
		repo:     repo,
		notifier: notifier,
		config:   cfg,
		logger:   log,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	interval := s.config.RefreshInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", "interval", interval.String())

	// Run immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in scheduler cycle", "panic", fmt.Sprint(r))
			s.notifier.NotifyError("scheduler panic", fmt.Errorf("%v", r))
		}
	}()

	s.logger.Info("starting rotation cycle")

	// 1. Refresh daily bars for the whole universe.
	symbols := s.config.Symbols()
	err := s.data.UpdateUniverse(ctx, s.repo, symbols,
		s.config.StartTime(), time.Now(),
		s.config.Data.RetryAttempts, s.config.RetryWait())
	if err != nil {
		web.ObserveDataError()
		s.logger.Error("update universe", "error", err)
		s.notifier.NotifyError("data update", err)
		return
	}

	// 2. Build the aligned close table from stored bars.
	series, err := s.repo.LoadCloses(symbols, s.config.StartTime(), time.Now())
	if err != nil {
		s.logger.Error("load closes", "error", err)
		return
	}
	table, err := market.Build(series, symbols)
	if err != nil {
		s.logger.Error("build price table", "error", err)
		s.notifier.NotifyError("price table", err)
		return
	}
	s.logger.Info("price table built", "symbols", len(table.Symbols()), "days", table.Len())

	// 3. Advance the paper account through every pending rebalance.
	driver := paper.NewDriver(s.repo, s.driverConfig(), s.logger)
	advanced := 0
	for {
		if err := s.advanceOnce(ctx, driver, table); err != nil {
			if errors.Is(err, paper.ErrNothingToDo) {
				break
			}
			s.logger.Error("paper advance", "error", err)
			s.notifier.NotifyError("paper advance", err)
			return
		}
		advanced++
	}

	if advanced == 0 {
		s.logger.Info("rotation cycle completed", "rebalances", 0)
		return
	}
	s.logger.Info("rotation cycle completed", "rebalances", advanced)
}

// advanceOnce previews the pending rebalance, announces the plan, then
// executes it and records the outcome.
func (s *Scheduler) advanceOnce(ctx context.Context, driver *paper.Driver, table *market.Table) error {
	plan, err := driver.Plan(table)
	if err != nil {
		return err
	}

	commentary, err := s.ai.PlanCommentary(ctx, plan)
	if err != nil {
		// Commentary is decoration, the rebalance proceeds without it.
		s.logger.Error("plan commentary", "error", err)
		commentary = ""
	}
	s.notifier.NotifyPlan(plan, commentary)

	res, err := driver.Advance(table)
	if err != nil {
		return err
	}

	if err := s.repo.SaveBlotter(res.Account.Name, res.Blotter); err != nil {
		s.logger.Error("save blotter", "error", err)
	}

	web.ObserveRebalance(string(res.Decision.Regime), res.PostValue, res.Decision.Drawdown)
	s.notifier.NotifyRebalance(res)

	s.logger.Info("rebalance executed",
		"trade_date", res.TradeDate.Format("2006-01-02"),
		"regime", string(res.Decision.Regime),
		"winner", res.Decision.Winner,
		"pre_value", res.PreValue,
		"post_value", res.PostValue)
	return nil
}

func (s *Scheduler) driverConfig() paper.Config {
	cfg := s.config
	return paper.Config{
		Strategy: strategy.Params{
			GrowthETFs:           cfg.Universe.GrowthETFs,
			DefensiveETF:         cfg.Universe.DefensiveETF,
			MomentumLookbackDays: cfg.Signal.MomentumLookbackDays,
			VolLookbackWeeks:     cfg.Signal.VolLookbackWeeks,
			VolFloor:             cfg.Signal.VolFloor,
			NormalGrowthWeight:   cfg.Allocation.NormalGrowthWeight,
			DeriskGrowthWeight:   cfg.Allocation.DeriskGrowthWeight,
			NoTradeBand:          cfg.Project.NoTradeBand,
		},
		DeriskDrawdown:  cfg.RiskGate.DeriskDrawdown,
		CircuitDrawdown: cfg.RiskGate.CircuitDrawdown,
		CooldownWeeks:   cfg.RiskGate.CooldownWeeks,
		InitialCapital:  cfg.Project.InitialCapital,
		Costs: costs.Model{
			CommissionRate: cfg.Costs.CommissionRate,
			MinCommission:  cfg.Costs.MinCommission,
			StampTaxRate:   cfg.Costs.StampTaxRate,
			SlippageBps:    cfg.Costs.SlippageBps,
		},
		AccountName: cfg.Paper.AccountName,
	}
}
