package reconcile

import "time"

// Config controls the dispatcher queue and the periodic worker loop.
type Config struct {
	QueueSize    int
	MaxAttempts  int
	RetryBackoff time.Duration
	PollInterval time.Duration
	RunTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		QueueSize:    256,
		MaxAttempts:  3,
		RetryBackoff: 500 * time.Millisecond,
		PollInterval: 5 * time.Minute,
		RunTimeout:   30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = defaults.QueueSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaults.RetryBackoff
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	return c
}
