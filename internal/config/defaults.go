package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultIndexCode     = "000906" // CSI 800
	DefaultRosterBaseURL = "https://www.csindex.com.cn/uploads/file/autofile/cons"
	DefaultKlineURL      = "https://push2his.eastmoney.com/api/qt/stock/kline/get"

	DefaultProviderTimeout = 30 * time.Second
	// The kline endpoint throttles aggressively; five attempts with a
	// 2s doubling backoff rides out most throttle windows.
	DefaultMaxRetries   = 5
	DefaultRetryBackoff = 2 * time.Second

	DefaultDBPort    = 5432
	DefaultDBSSLMode = "prefer"
	DefaultMaxConns  = 10
	DefaultMinConns  = 2

	DefaultTable = "csi800_daily_data"
	// Five calendar days of overlap covers weekends, holidays and
	// late provider corrections for a daily incremental run.
	DefaultLookbackDays    = 5
	DefaultBatchSize       = 500
	DefaultConcurrency     = 10
	DefaultRunTimeout      = 30 * time.Minute
	DefaultWriteRetries    = 3
	DefaultWriteBackoff    = 2 * time.Second
	DefaultMaxFailureRatio = 0.2

	DefaultLogLevel = "info"
)

func (c *Config) applyDefaults() {
	// Provider defaults
	if c.Provider.IndexCode == "" {
		c.Provider.IndexCode = DefaultIndexCode
	}
	if c.Provider.RosterURL == "" {
		c.Provider.RosterURL = DefaultRosterBaseURL + "/" + c.Provider.IndexCode + ".txt"
	}
	if c.Provider.KlineURL == "" {
		c.Provider.KlineURL = DefaultKlineURL
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = DefaultProviderTimeout
	}
	if c.Provider.MaxRetries == 0 {
		c.Provider.MaxRetries = DefaultMaxRetries
	}
	if c.Provider.RetryBackoff == 0 {
		c.Provider.RetryBackoff = DefaultRetryBackoff
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Sync defaults
	if c.Sync.Table == "" {
		c.Sync.Table = DefaultTable
	}
	if c.Sync.LookbackDays == 0 {
		c.Sync.LookbackDays = DefaultLookbackDays
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = DefaultBatchSize
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = DefaultConcurrency
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = DefaultRunTimeout
	}
	if c.Sync.WriteRetries == 0 {
		c.Sync.WriteRetries = DefaultWriteRetries
	}
	if c.Sync.WriteBackoff == 0 {
		c.Sync.WriteBackoff = DefaultWriteBackoff
	}
	if c.Sync.MaxFailureRatio == 0 {
		c.Sync.MaxFailureRatio = DefaultMaxFailureRatio
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
