package infra

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RateBudget configures one rate-limiter category window.
type RateBudget struct {
	MaxCalls  int `yaml:"max_calls"`
	WindowSec int `yaml:"window_sec"`
}

// Window returns the budget window as a duration.
func (b RateBudget) Window() time.Duration {
	return time.Duration(b.WindowSec) * time.Second
}

// GridEntry declares one grid in the config file. Decimal fields stay
// strings here and are parsed at start so a typo fails the grid, not
// the whole config load.
type GridEntry struct {
	Account        string `yaml:"account"`
	Instrument     string `yaml:"instrument"`
	Levels         int    `yaml:"levels"`
	SpacingBps     int    `yaml:"spacing_bps"`
	BudgetFraction string `yaml:"budget_fraction"`
	BudgetCap      string `yaml:"budget_cap"`
	MakerOnly      bool   `yaml:"maker_only"`
}

// RiskLimitConfig configures one named risk limit.
type RiskLimitConfig struct {
	Kind      string `yaml:"kind"`
	Threshold string `yaml:"threshold"`
	Enabled   bool   `yaml:"enabled"`
}

// Config holds every tunable of the grid core. Loaded from YAML, then
// overridden by environment variables for sensitive or per-deploy values.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode    string `yaml:"mode"` // PAPER, REAL
		Account string `yaml:"account"`
	} `yaml:"trading"`

	Feed struct {
		WSURL           string `yaml:"ws_url"`
		PingIntervalSec int    `yaml:"ping_interval_sec"`
		ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	} `yaml:"feed"`

	Engine struct {
		RebalanceThreshold    string `yaml:"rebalance_threshold"` // fraction, e.g. "0.05"
		SuccessFloor          string `yaml:"success_floor"`       // fraction, e.g. "0.5"
		CallTimeoutSec        int    `yaml:"call_timeout_sec"`
		SupervisorIntervalSec int    `yaml:"supervisor_interval_sec"`
		MaxLegDeferrals       int    `yaml:"max_leg_deferrals"`
	} `yaml:"engine"`

	RateLimits struct {
		Order    RateBudget `yaml:"order"`
		Cancel   RateBudget `yaml:"cancel"`
		Query    RateBudget `yaml:"query"`
		Global   RateBudget `yaml:"global"`
		BlockSec int        `yaml:"block_sec"`
	} `yaml:"rate_limits"`

	Risk []RiskLimitConfig `yaml:"risk"`

	// Grids started at boot. Account defaults to trading.account.
	Grids []GridEntry `yaml:"grids"`

	Journal struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"journal"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a config with conservative engine defaults.
// Used as the base before YAML and env overlays.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "gridbot"
	cfg.Trading.Mode = "PAPER"
	cfg.Feed.WSURL = "wss://api.hyperliquid.xyz/ws"
	cfg.Feed.PingIntervalSec = 30
	cfg.Feed.ReadTimeoutSec = 60
	cfg.Engine.RebalanceThreshold = "0.05"
	cfg.Engine.SuccessFloor = "0.5"
	cfg.Engine.CallTimeoutSec = 10
	cfg.Engine.SupervisorIntervalSec = 60
	cfg.Engine.MaxLegDeferrals = 3
	cfg.RateLimits.Order = RateBudget{MaxCalls: 10, WindowSec: 1}
	cfg.RateLimits.Cancel = RateBudget{MaxCalls: 10, WindowSec: 1}
	cfg.RateLimits.Query = RateBudget{MaxCalls: 20, WindowSec: 1}
	cfg.RateLimits.Global = RateBudget{MaxCalls: 30, WindowSec: 1}
	cfg.RateLimits.BlockSec = 60
	cfg.Journal.Enabled = true
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Feed.WSURL == "" || (!hasPrefix(c.Feed.WSURL, "ws://") && !hasPrefix(c.Feed.WSURL, "wss://")) {
		return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
	}
	if c.Engine.CallTimeoutSec <= 0 {
		return fmt.Errorf("call timeout must be positive")
	}
	if c.Engine.SupervisorIntervalSec <= 0 {
		return fmt.Errorf("supervisor interval must be positive")
	}
	if c.Engine.MaxLegDeferrals < 0 {
		return fmt.Errorf("max leg deferrals must not be negative")
	}
	for _, b := range []RateBudget{c.RateLimits.Order, c.RateLimits.Cancel, c.RateLimits.Query, c.RateLimits.Global} {
		if b.MaxCalls <= 0 || b.WindowSec <= 0 {
			return fmt.Errorf("rate budget requires positive max_calls and window_sec")
		}
	}
	switch c.Trading.Mode {
	case "PAPER", "REAL":
	default:
		return fmt.Errorf("unknown trading mode: %s", c.Trading.Mode)
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variables over file values.
// Env always wins so deploys never depend on editing the config file.
func overrideWithEnv(cfg *Config) {
	if mode := os.Getenv("GRID_TRADING_MODE"); mode != "" {
		cfg.Trading.Mode = mode
	}
	if acct := os.Getenv("GRID_ACCOUNT"); acct != "" {
		cfg.Trading.Account = acct
	}
	if url := os.Getenv("GRID_FEED_WS_URL"); url != "" {
		cfg.Feed.WSURL = url
	}
	if lvl := os.Getenv("GRID_LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}
}
