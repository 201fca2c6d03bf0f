package config

// StoreConfig selects and configures the key/value backend.
type StoreConfig struct {
	Backend   string      `yaml:"backend" json:"backend"` // memory, file, sqlite, pebble, redis
	Path      string      `yaml:"path" json:"path"`       // directory (file, pebble) or database file (sqlite)
	Redis     RedisConfig `yaml:"redis" json:"redis"`
	LedgerKey string      `yaml:"ledger_key" json:"ledger_key"`
}

// RedisConfig configures the shared Redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr"`
	Password  string `yaml:"password" json:"password,omitempty"`
	DB        int    `yaml:"db" json:"db"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`
}
