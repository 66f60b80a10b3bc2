package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/market"
)

// DateLayout is the layout of Run.Start.
const DateLayout = "2006-01-02"

// Config represents the complete backtest configuration
type Config struct {
	Run       RunConfig       `json:"run" yaml:"run"`
	Account   AccountConfig   `json:"account" yaml:"account"`
	Data      DataConfig      `json:"data" yaml:"data"`
	Sizing    SizingConfig    `json:"sizing" yaml:"sizing"`
	Execution ExecutionConfig `json:"execution" yaml:"execution"`
	Strategy  StrategyConfig  `json:"strategy" yaml:"strategy"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// RunConfig names the run and sets its clock.
type RunConfig struct {
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Start   string `json:"start,omitempty" yaml:"start,omitempty"` // YYYY-MM-DD, empty means one day before the first bar
	Periods int    `json:"periods,omitempty" yaml:"periods,omitempty"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	Currency       string  `json:"currency" yaml:"currency"`
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
}

// DataConfig points at one CSV (or .csv.xz) file per symbol.
type DataConfig struct {
	Dir     string   `json:"dir" yaml:"dir"`
	Symbols []string `json:"symbols" yaml:"symbols"`
}

// SizingConfig controls how signals become order quantities.
type SizingConfig struct {
	Lot int64 `json:"lot" yaml:"lot"`
}

// ExecutionConfig contains the simulated broker parameters
type ExecutionConfig struct {
	Commission       string  `json:"commission" yaml:"commission"` // none, ib, fixed
	CommissionAmount float64 `json:"commission_amount,omitempty" yaml:"commission_amount,omitempty"`
	SlippageBps      float64 `json:"slippage_bps,omitempty" yaml:"slippage_bps,omitempty"`
}

// StrategyConfig contains strategy parameters
type StrategyConfig struct {
	Name string `json:"name" yaml:"name"`
	Fast int    `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow int    `json:"slow,omitempty" yaml:"slow,omitempty"`
	MA   string `json:"ma,omitempty" yaml:"ma,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "sqlite", "csv" or "none"
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	OrgDir string `json:"org_dir,omitempty" yaml:"org_dir,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// LoadFromFile loads configuration from a file (YAML, or JSON as a fallback)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if len(c.Data.Symbols) == 0 {
		return fmt.Errorf("data.symbols is required")
	}
	seen := make(map[string]bool, len(c.Data.Symbols))
	for _, s := range c.Data.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("data.symbols must not contain empty names")
		}
		if seen[s] {
			return fmt.Errorf("duplicate symbol %q in data.symbols", s)
		}
		seen[s] = true
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if _, err := c.StartTime(); err != nil {
		return err
	}
	if c.Run.Periods < 0 {
		return fmt.Errorf("run.periods must not be negative")
	}
	if c.Sizing.Lot < 0 {
		return fmt.Errorf("sizing.lot must not be negative")
	}
	switch strings.ToLower(c.Execution.Commission) {
	case "", "none", "zero", "ib", "interactive-brokers", "fixed", "per-order":
	default:
		return fmt.Errorf("execution.commission must be 'none', 'ib' or 'fixed'")
	}
	if c.Execution.CommissionAmount < 0 {
		return fmt.Errorf("execution.commission_amount must not be negative")
	}
	if c.Execution.SlippageBps < 0 {
		return fmt.Errorf("execution.slippage_bps must not be negative")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	switch c.Journal.Driver {
	case "", "none", "csv", "sqlite":
	default:
		return fmt.Errorf("journal.driver must be 'csv', 'sqlite' or 'none'")
	}
	if (c.Journal.Driver == "csv" || c.Journal.Driver == "sqlite") && c.Journal.Path == "" {
		return fmt.Errorf("journal.path required for %s driver", c.Journal.Driver)
	}
	return nil
}

// StartTime parses Run.Start. A zero time means it was not set.
func (c *Config) StartTime() (time.Time, error) {
	if c.Run.Start == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(DateLayout, c.Run.Start, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("run.start must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// Symbols returns Data.Symbols as market symbols.
func (c *Config) Symbols() []market.Symbol {
	out := make([]market.Symbol, len(c.Data.Symbols))
	for i, s := range c.Data.Symbols {
		out[i] = market.Symbol(s)
	}
	return out
}

// ApplyEnv loads .env files (missing files are ignored) and lets
// BACKTEST_LOG_LEVEL, BACKTEST_JOURNAL_DB and BACKTEST_DATA_DIR override
// the file settings.
func (c *Config) ApplyEnv(files ...string) {
	_ = godotenv.Load(files...)

	if v := os.Getenv("BACKTEST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("BACKTEST_JOURNAL_DB"); v != "" {
		c.Journal.Driver = "sqlite"
		c.Journal.Path = v
	}
	if v := os.Getenv("BACKTEST_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Name:    "buy-and-hold",
			Periods: 252,
		},
		Account: AccountConfig{
			Currency:       "USD",
			InitialCapital: 100000,
		},
		Data: DataConfig{
			Dir:     "./data",
			Symbols: []string{"AAPL"},
		},
		Sizing: SizingConfig{
			Lot: 100,
		},
		Execution: ExecutionConfig{
			Commission: "ib",
		},
		Strategy: StrategyConfig{
			Name: "buy-and-hold",
			Fast: 10,
			Slow: 30,
			MA:   "sma",
		},
		Journal: JournalConfig{
			Driver: "sqlite",
			Path:   "./backtest.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
