package config

import (
	"fmt"
	"time"

	"github.com/namsral/flag"
)

type Config struct {
	WeightsPath    string
	MaxDepth       int
	TimeBudget     time.Duration
	NodeBudget     int64
	Threads        int
	TTFraction     float64
	TopK           int
	EndStateBudget int64
	Debug          bool
}

func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSet("gapper", flag.ContinueOnError)
	fs.StringVar(&c.WeightsPath, "weights-path", "", "YAML file of evaluator weights; empty uses the built-in defaults")
	fs.IntVar(&c.MaxDepth, "max-depth", 20, "maximum search depth per recommendation")
	fs.DurationVar(&c.TimeBudget, "time-budget", 2*time.Second, "wall-clock budget per recommendation")
	fs.Int64Var(&c.NodeBudget, "node-budget", 0, "node budget per recommendation; 0 is unlimited")
	fs.IntVar(&c.Threads, "threads", 1, "search threads; more than 1 trades reproducibility for speed")
	fs.Float64Var(&c.TTFraction, "tt-fraction", 0.05, "fraction of system memory for the transposition table")
	fs.IntVar(&c.TopK, "top-k", 8, "ranked end states per phase for the perfect-information pass")
	fs.Int64Var(&c.EndStateBudget, "end-state-budget", 2000000, "node budget for end-state enumeration; 0 is unlimited")
	fs.BoolVar(&c.Debug, "debug", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	// budgets are carried as unsigned counters downstream
	if c.NodeBudget < 0 {
		return fmt.Errorf("node-budget must not be negative, got %d", c.NodeBudget)
	}
	if c.EndStateBudget < 0 {
		return fmt.Errorf("end-state-budget must not be negative, got %d", c.EndStateBudget)
	}
	return nil
}
