package config

// LoggingConfig controls the category loggers and the sup gate audit trail.
//
// Category logging is off unless DebugMode is set; library callers and tests
// then get no-op loggers. The audit trail is independent of DebugMode: when
// Audit is set, every sup gate decision is appended as a JSON row to
// <logs_dir>/<date>_audit.jsonl.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`
	Format     string          `yaml:"format" json:"format,omitempty"` // "json" or "console"
	LogsDir    string          `yaml:"logs_dir" json:"logs_dir,omitempty"`
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"`
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"` // e.g. {design: false}
	Audit      bool            `yaml:"audit" json:"audit,omitempty"`
}

// IsCategoryEnabled reports whether a category logger should emit.
// Categories missing from the map follow DebugMode.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if enabled, ok := c.Categories[category]; ok {
		return enabled
	}
	return true
}

// AuditEnabled reports whether sup gate rows should be written, which needs
// both the toggle and a directory to write into.
func (c *LoggingConfig) AuditEnabled() bool {
	return c.Audit && c.LogsDir != ""
}
