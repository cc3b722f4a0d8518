package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Universe   UniverseConfig   `yaml:"universe"`
	Signal     SignalConfig     `yaml:"signal"`
	RiskGate   RiskGateConfig   `yaml:"risk_gate"`
	Allocation AllocationConfig `yaml:"allocation"`
	Costs      CostsConfig      `yaml:"costs"`
	Project    ProjectConfig    `yaml:"project"`
	Data       DataConfig       `yaml:"data"`
	Paper      PaperConfig      `yaml:"paper"`
	Report     ReportConfig     `yaml:"report"`
	Web        WebConfig        `yaml:"web"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	DeepSeek   DeepSeekConfig   `yaml:"deepseek"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type UniverseConfig struct {
	GrowthETFs   []string `yaml:"growth_etfs"`
	DefensiveETF string   `yaml:"defensive_etf"`
}

type SignalConfig struct {
	MomentumLookbackDays int     `yaml:"momentum_lookback_days"`
	VolLookbackWeeks     int     `yaml:"vol_lookback_weeks"`
	VolFloor             float64 `yaml:"vol_floor"`
}

type RiskGateConfig struct {
	DeriskDrawdown  float64 `yaml:"derisk_drawdown"`
	CircuitDrawdown float64 `yaml:"circuit_drawdown"`
	CooldownWeeks   int     `yaml:"cooldown_weeks"`
}

type AllocationConfig struct {
	NormalGrowthWeight float64 `yaml:"normal_growth_weight"`
	DeriskGrowthWeight float64 `yaml:"derisk_growth_weight"`
}

type CostsConfig struct {
	CommissionRate float64 `yaml:"commission_rate"`
	MinCommission  float64 `yaml:"min_commission"`
	StampTaxRate   float64 `yaml:"stamp_tax_rate"`
	SlippageBps    float64 `yaml:"slippage_bps"`
}

type ProjectConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	NoTradeBand    float64 `yaml:"no_trade_band"`
}

type DataConfig struct {
	StartDate        string `yaml:"start_date"`
	EndDate          string `yaml:"end_date"`
	RetryAttempts    int    `yaml:"retry_attempts"`
	RetryWaitSeconds int    `yaml:"retry_wait_seconds"`
	RefreshHours     int    `yaml:"refresh_hours"`
}

type PaperConfig struct {
	AccountName string `yaml:"account_name"`
}

type ReportConfig struct {
	OutputDir string `yaml:"output_dir"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type DeepSeekConfig struct {
	Enabled        bool   `yaml:"enabled"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Signal.MomentumLookbackDays == 0 {
		cfg.Signal.MomentumLookbackDays = 20
	}
	if cfg.Signal.VolLookbackWeeks == 0 {
		cfg.Signal.VolLookbackWeeks = 8
	}
	if cfg.Signal.VolFloor == 0 {
		cfg.Signal.VolFloor = 0.005
	}
	if cfg.RiskGate.DeriskDrawdown == 0 {
		cfg.RiskGate.DeriskDrawdown = 0.10
	}
	if cfg.RiskGate.CircuitDrawdown == 0 {
		cfg.RiskGate.CircuitDrawdown = 0.20
	}
	if cfg.RiskGate.CooldownWeeks == 0 {
		cfg.RiskGate.CooldownWeeks = 4
	}
	if cfg.Allocation.NormalGrowthWeight == 0 {
		cfg.Allocation.NormalGrowthWeight = 1.0
	}
	if cfg.Allocation.DeriskGrowthWeight == 0 {
		cfg.Allocation.DeriskGrowthWeight = 0.5
	}
	if cfg.Project.InitialCapital == 0 {
		cfg.Project.InitialCapital = 100000
	}
	if cfg.Project.NoTradeBand == 0 {
		cfg.Project.NoTradeBand = 0.02
	}
	if cfg.Data.StartDate == "" {
		cfg.Data.StartDate = "2018-01-01"
	}
	if cfg.Data.RetryAttempts == 0 {
		cfg.Data.RetryAttempts = 5
	}
	if cfg.Data.RetryWaitSeconds == 0 {
		cfg.Data.RetryWaitSeconds = 2
	}
	if cfg.Data.RefreshHours == 0 {
		cfg.Data.RefreshHours = 6
	}
	if cfg.Paper.AccountName == "" {
		cfg.Paper.AccountName = "default"
	}
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "reports"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.DeepSeek.Model == "" {
		cfg.DeepSeek.Model = "deepseek-chat"
	}
	if cfg.DeepSeek.TimeoutSeconds == 0 {
		cfg.DeepSeek.TimeoutSeconds = 120
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if len(c.Universe.GrowthETFs) == 0 {
		return fmt.Errorf("universe.growth_etfs must not be empty")
	}
	if c.Universe.DefensiveETF == "" {
		return fmt.Errorf("universe.defensive_etf is required")
	}
	if c.Signal.MomentumLookbackDays < 1 {
		return fmt.Errorf("signal.momentum_lookback_days must be >= 1")
	}
	if c.Signal.VolLookbackWeeks < 2 {
		return fmt.Errorf("signal.vol_lookback_weeks must be >= 2")
	}
	if c.Signal.VolFloor <= 0 {
		return fmt.Errorf("signal.vol_floor must be > 0")
	}
	if c.RiskGate.DeriskDrawdown < 0 || c.RiskGate.CircuitDrawdown < 0 {
		return fmt.Errorf("risk_gate drawdown thresholds must be >= 0")
	}
	if c.RiskGate.CircuitDrawdown < c.RiskGate.DeriskDrawdown {
		return fmt.Errorf("risk_gate.circuit_drawdown must be >= risk_gate.derisk_drawdown")
	}
	if c.RiskGate.CooldownWeeks < 0 {
		return fmt.Errorf("risk_gate.cooldown_weeks must be >= 0")
	}
	if w := c.Allocation.NormalGrowthWeight; w < 0 || w > 1 {
		return fmt.Errorf("allocation.normal_growth_weight must be in [0,1]")
	}
	if w := c.Allocation.DeriskGrowthWeight; w < 0 || w > 1 {
		return fmt.Errorf("allocation.derisk_growth_weight must be in [0,1]")
	}
	if c.Project.InitialCapital <= 0 {
		return fmt.Errorf("project.initial_capital must be > 0")
	}
	if c.Project.NoTradeBand < 0 {
		return fmt.Errorf("project.no_trade_band must be >= 0")
	}
	if c.Costs.CommissionRate < 0 || c.Costs.MinCommission < 0 ||
		c.Costs.StampTaxRate < 0 || c.Costs.SlippageBps < 0 {
		return fmt.Errorf("costs rates must be >= 0")
	}
	if _, err := time.Parse("2006-01-02", c.Data.StartDate); err != nil {
		return fmt.Errorf("invalid data.start_date %q: %w", c.Data.StartDate, err)
	}
	if c.Data.EndDate != "" {
		if _, err := time.Parse("2006-01-02", c.Data.EndDate); err != nil {
			return fmt.Errorf("invalid data.end_date %q: %w", c.Data.EndDate, err)
		}
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if c.DeepSeek.Enabled && c.DeepSeek.APIKey == "" {
		return fmt.Errorf("deepseek.api_key is required when deepseek is enabled")
	}
	return nil
}

// Symbols returns the growth universe plus the defensive ETF, deduplicated,
// growth order preserved.
func (c *Config) Symbols() []string {
	seen := make(map[string]bool, len(c.Universe.GrowthETFs)+1)
	out := make([]string, 0, len(c.Universe.GrowthETFs)+1)
	for _, s := range append(append([]string{}, c.Universe.GrowthETFs...), c.Universe.DefensiveETF) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func (c *Config) DeepSeekTimeout() time.Duration {
	return time.Duration(c.DeepSeek.TimeoutSeconds) * time.Second
}

func (c *Config) RetryWait() time.Duration {
	return time.Duration(c.Data.RetryWaitSeconds) * time.Second
}

// StartTime returns the configured history start date. Validate has already
// checked the format.
func (c *Config) StartTime() time.Time {
	t, _ := time.Parse("2006-01-02", c.Data.StartDate)
	return t
}

// EndTime returns the configured history end date, or today when unset.
func (c *Config) EndTime() time.Time {
	if c.Data.EndDate == "" {
		return time.Now()
	}
	t, _ := time.Parse("2006-01-02", c.Data.EndDate)
	return t
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Data.RefreshHours) * time.Hour
}
