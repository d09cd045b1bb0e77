package config

import "time"

// Config is the root configuration for one sync invocation.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Database DBConfig       `yaml:"database"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig holds upstream endpoint settings.
type ProviderConfig struct {
	IndexCode    string        `yaml:"index_code"` // CSI index id, e.g. "000906"
	RosterURL    string        `yaml:"roster_url"` // overrides the URL derived from IndexCode
	KlineURL     string        `yaml:"kline_url"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// DBConfig holds the Postgres connection. Either URL is set (full
// connection string, typically ${SUPABASE_DB_URL}) or the discrete
// fields are.
type DBConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SyncConfig holds the run tunables.
type SyncConfig struct {
	Table           string        `yaml:"table"`
	LookbackDays    int           `yaml:"lookback_days"` // incremental window
	BatchSize       int           `yaml:"batch_size"`    // rows per upsert call
	Concurrency     int           `yaml:"concurrency"`   // parallel instrument fetches
	RunTimeout      time.Duration `yaml:"run_timeout"`
	WriteRetries    int           `yaml:"write_retries"`
	WriteBackoff    time.Duration `yaml:"write_backoff"`
	MaxFailureRatio float64       `yaml:"max_failure_ratio"` // exit policy threshold
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}
