package backtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/execution"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategies"
)

// FromConfig builds a Runner from cfg. The caller owns the returned
// runner's Journal and must close it.
func FromConfig(cfg *config.Config, log zerolog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	symbols := cfg.Symbols()

	start, err := cfg.StartTime()
	if err != nil {
		return nil, err
	}

	feed, err := market.LoadFeed(cfg.Data.Dir, symbols, log.With().Str("component", "feed").Logger())
	if err != nil {
		return nil, fmt.Errorf("load data: %w", err)
	}

	strat, err := strategies.ByName(cfg.Strategy.Name, strategies.Params{
		Symbols: symbols,
		Fast:    cfg.Strategy.Fast,
		Slow:    cfg.Strategy.Slow,
		MA:      cfg.Strategy.MA,
	})
	if err != nil {
		return nil, err
	}

	commission, err := execution.CommissionByName(cfg.Execution.Commission, cfg.Execution.CommissionAmount)
	if err != nil {
		return nil, err
	}

	var policy portfolio.SizingPolicy
	if cfg.Sizing.Lot > 0 {
		policy = portfolio.FixedLot{Lot: cfg.Sizing.Lot}
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	j, err := journal.Open(cfg.Journal.Driver, cfg.Journal.Path, symbols)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	return &Runner{
		Feed:     feed,
		Strategy: strat,
		Executor: execution.NewSimulated(feed, commission, cfg.Execution.SlippageBps),
		Journal:  j,
		Log:      log,
		Options: RunnerOptions{
			Dataset:        cfg.Data.Dir,
			Config:         raw,
			InitialCapital: cfg.Account.InitialCapital,
			Start:          start,
			Policy:         policy,
			Periods:        cfg.Run.Periods,
		},
	}, nil
}

// RunConfig builds a runner from cfg, runs it, and writes an Org summary
// to cfg.Journal.OrgDir when set.
func RunConfig(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Result, error) {
	r, err := FromConfig(cfg, log)
	if err != nil {
		return Result{}, err
	}

	res, runErr := r.Run(ctx)
	if err := r.Journal.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("close journal: %w", err)
	}
	if runErr != nil {
		return Result{}, runErr
	}

	if dir := cfg.Journal.OrgDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, err
		}
		path := filepath.Join(dir, res.RunID+".org")
		run := res.JournalRun(time.Now().UTC(), r.Options.Dataset, r.Options.Config)
		if err := journal.WriteRunOrg(path, run, res.FillLog); err != nil {
			return res, fmt.Errorf("write org report: %w", err)
		}
		log.Info().Str("path", path).Msg("org report written")
	}
	return res, nil
}
