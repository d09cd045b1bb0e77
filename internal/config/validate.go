package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Provider.RosterURL == "" {
		return errors.New("provider.roster_url is required")
	}
	if c.Provider.KlineURL == "" {
		return errors.New("provider.kline_url is required")
	}
	if c.Provider.MaxRetries < 0 {
		return errors.New("provider.max_retries must be >= 0")
	}
	// The retry jitter draws from [backoff/2, backoff*1.5); a
	// non-positive backoff has no valid draw.
	if c.Provider.RetryBackoff <= 0 {
		return errors.New("provider.retry_backoff must be > 0")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Sync.LookbackDays < 1 {
		return errors.New("sync.lookback_days must be >= 1")
	}
	if c.Sync.BatchSize < 1 {
		return errors.New("sync.batch_size must be >= 1")
	}
	if c.Sync.Concurrency < 1 {
		return errors.New("sync.concurrency must be >= 1")
	}
	if c.Sync.WriteRetries < 0 {
		return errors.New("sync.write_retries must be >= 0")
	}
	if c.Sync.WriteBackoff < 0 {
		return errors.New("sync.write_backoff must be >= 0")
	}
	if c.Sync.MaxFailureRatio < 0 || c.Sync.MaxFailureRatio > 1 {
		return fmt.Errorf("sync.max_failure_ratio must be within [0, 1], got %v", c.Sync.MaxFailureRatio)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.URL != "" {
		// Full connection string supplied; discrete fields unused.
		return nil
	}
	if db.Host == "" {
		return fmt.Errorf("%s.host is required when %s.url is not set", prefix, prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
