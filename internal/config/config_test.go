package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "ybuilt" {
		t.Errorf("expected Name=ybuilt, got %s", cfg.Name)
	}
	if cfg.Router.StoreKey != "router.stats" {
		t.Errorf("expected router.stats, got %s", cfg.Router.StoreKey)
	}
	if cfg.Experts.PriorAlpha != 2 || cfg.Experts.PriorBeta != 2 {
		t.Errorf("expected expert prior 2/2, got %v/%v", cfg.Experts.PriorAlpha, cfg.Experts.PriorBeta)
	}
	if cfg.Layout.HardFail != 60 || cfg.Layout.Soft != 80 {
		t.Errorf("unexpected layout thresholds %v/%v", cfg.Layout.HardFail, cfg.Layout.Soft)
	}
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("YBUILT_STORE_BACKEND", "")
	t.Setenv("YBUILT_MAX_CENTS", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = "state.db"
	cfg.Budget.MaxCents = 12.5

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", loaded.Store.Backend)
	assert.Equal(t, "state.db", loaded.Store.Path)
	assert.Equal(t, 12.5, loaded.Budget.MaxCents)
	assert.Equal(t, cfg.Router.Arms, loaded.Router.Arms)
}

func TestConfig_LoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Sections, cfg.Sections)
}

func TestConfig_LoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("router: [unclosed"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_PartialYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layout:\n  soft: 85\n"), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 85.0, cfg.Layout.Soft)
	assert.Equal(t, 60.0, cfg.Layout.HardFail)
	assert.Equal(t, 0.25, cfg.Router.EMASmoothing)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("YBUILT_STORE_BACKEND", " Redis ")
	t.Setenv("YBUILT_REDIS_ADDR", "cache:6380")
	t.Setenv("YBUILT_MAX_CENTS", "3.5")
	t.Setenv("YBUILT_MAX_TOKENS", "not-a-number")
	t.Setenv("YBUILT_DEBUG", "true")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "cache:6380", cfg.Store.Redis.Addr)
	assert.Equal(t, 3.5, cfg.Budget.MaxCents)
	assert.Equal(t, DefaultConfig().Budget.MaxTokens, cfg.Budget.MaxTokens)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"file backend without path", func(c *Config) { c.Store.Path = "" }},
		{"prior below one", func(c *Config) { c.Router.PriorAlpha = 0.5 }},
		{"ema out of range", func(c *Config) { c.Experts.EMASmoothing = 0 }},
		{"inverted thresholds", func(c *Config) { c.Layout.HardFail = 90 }},
		{"nan threshold", func(c *Config) { c.Layout.Soft = math.NaN() }},
		{"bad penalty", func(c *Config) { c.Design.A11yPenalty = 1.5 }},
		{"bad decay", func(c *Config) { c.Sections.DecayAfter = "weekly" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSectionsConfig_Durations(t *testing.T) {
	s := DefaultConfig().Sections
	assert.Equal(t, 7*24*time.Hour, s.GetDecayAfter())
	assert.Equal(t, 60*24*time.Hour, s.GetDecayHalfLife())

	s.DecayAfter = "garbage"
	s.DecayHalfLife = "-1h"
	assert.Equal(t, 7*24*time.Hour, s.GetDecayAfter())
	assert.Equal(t, 60*24*time.Hour, s.GetDecayHalfLife())
}

func TestEnforceBudgetLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget.MaxCents = 0
	cents, tokens := cfg.EnforceBudgetLimits()
	assert.True(t, math.IsInf(cents, 1))
	assert.Equal(t, cfg.Budget.MaxTokens, tokens)
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{}
	assert.False(t, lc.IsCategoryEnabled("router"))

	lc.DebugMode = true
	assert.True(t, lc.IsCategoryEnabled("router"))

	lc.Categories = map[string]bool{"router": false}
	assert.False(t, lc.IsCategoryEnabled("router"))
	assert.True(t, lc.IsCategoryEnabled("design"))
}

func TestLoggingConfig_AuditEnabled(t *testing.T) {
	lc := LoggingConfig{Audit: true}
	assert.False(t, lc.AuditEnabled(), "no logs_dir")

	lc.LogsDir = t.TempDir()
	assert.True(t, lc.AuditEnabled())

	// Independent of debug logging
	assert.False(t, lc.IsCategoryEnabled("audit"))

	lc.Audit = false
	assert.False(t, lc.AuditEnabled())
}
