package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all decision-core configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Strategy router over generation paths
	Router BanditConfig `yaml:"router"`

	// Named-expert router
	Experts BanditConfig `yaml:"experts"`

	// Per-section variant bandit
	Sections SectionsConfig `yaml:"sections"`

	// Design token search
	Design DesignConfig `yaml:"design"`

	// Layout gate and solver
	Layout LayoutConfig `yaml:"layout"`

	// Per-request budget ceilings
	Budget BudgetLimits `yaml:"budget"`

	// Key/value persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "ybuilt",
		Version: "1.0.0",

		Router: BanditConfig{
			StoreKey:      "router.stats",
			Arms:          []string{"fast_template", "local_llm", "cloud_llm"},
			PriorAlpha:    1,
			PriorBeta:     1,
			LatencyWeight: 0.3,
			CostWeight:    0.4,
			TokenWeight:   0.1,
			EMASmoothing:  0.25,
		},

		Experts: BanditConfig{
			StoreKey:      "experts.stats",
			PriorAlpha:    2,
			PriorBeta:     2,
			LatencyWeight: 0.3,
			CostWeight:    0.4,
			TokenWeight:   0.1,
			EMASmoothing:  0.25,
		},

		Sections: SectionsConfig{
			StoreKey:         "sections.bandits",
			ExplorationBonus: 0.05,
			ExplorationFade:  6,
			SeenCap:          20,
			MeanWeight:       0.02,
			DecayAfter:       "168h",
			DecayHalfLife:    "1440h",
		},

		Design: DesignConfig{
			CacheNamespace: "token.search",
			PriorsKey:      "taste.priors",
			MaxCandidates:  48,
			TopK:           6,
			A11yPenalty:    0.72,
			PriorWeight:    0.12,
			PriorCap:       0.15,
			BiasMatchBonus: 0.03,
			GoalCap:        0.04,
		},

		Layout: LayoutConfig{
			HardFail:      60,
			Soft:          80,
			MaxIterations: 3,
			MinLQRDelta:   1,
		},

		Budget: BudgetLimits{
			MaxCents:  50,
			MaxTokens: 200000,
		},

		Store: StoreConfig{
			Backend: "file",
			Path:    ".ybuilt/state",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				KeyPrefix: "ybuilt:",
			},
			LedgerKey: "usage.ledger",
		},

		Logging: LoggingConfig{
			Level:   "info",
			Format:  "json",
			LogsDir: ".ybuilt/logs",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if backend := os.Getenv("YBUILT_STORE_BACKEND"); backend != "" {
		c.Store.Backend = strings.ToLower(strings.TrimSpace(backend))
	}
	if path := os.Getenv("YBUILT_STORE_PATH"); path != "" {
		c.Store.Path = path
	}
	if addr := os.Getenv("YBUILT_REDIS_ADDR"); addr != "" {
		c.Store.Redis.Addr = addr
	}

	// Budget ceilings; unparsable values are ignored
	if v := os.Getenv("YBUILT_MAX_CENTS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Budget.MaxCents = f
		}
	}
	if v := os.Getenv("YBUILT_MAX_TOKENS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Budget.MaxTokens = f
		}
	}

	if v := os.Getenv("YBUILT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
}

// ValidBackends lists all supported store backends.
var ValidBackends = []string{"memory", "file", "sqlite", "pebble", "redis"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validBackend := false
	for _, b := range ValidBackends {
		if c.Store.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid store backend: %s (valid: %v)", c.Store.Backend, ValidBackends)
	}
	if c.Store.Backend != "memory" && c.Store.Backend != "redis" && c.Store.Path == "" {
		return fmt.Errorf("store.path is required for the %s backend", c.Store.Backend)
	}

	for name, b := range map[string]BanditConfig{"router": c.Router, "experts": c.Experts} {
		if err := b.validate(name); err != nil {
			return err
		}
	}

	if err := c.Layout.validate(); err != nil {
		return err
	}
	if c.Design.A11yPenalty <= 0 || c.Design.A11yPenalty > 1 {
		return fmt.Errorf("design.a11y_penalty must be in (0, 1]")
	}
	if _, err := time.ParseDuration(c.Sections.DecayAfter); err != nil {
		return fmt.Errorf("sections.decay_after: %w", err)
	}
	if _, err := time.ParseDuration(c.Sections.DecayHalfLife); err != nil {
		return fmt.Errorf("sections.decay_half_life: %w", err)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
