package webclient

import "time"

// Config controls the pooled net/http transport.
type Config struct {
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the number of extra attempts after the first one.
	MaxRetries int `yaml:"max_retries"`
	// BackoffFactor is the first retry delay; each further delay doubles.
	BackoffFactor time.Duration `yaml:"backoff_factor"`
	PoolSize      int           `yaml:"pool_size"`
	UserAgent     string        `yaml:"user_agent"`
}

const DefaultUserAgent = "vulnprobe/0.1"

func DefaultConfig() Config {
	return Config{
		Timeout:       10 * time.Second,
		MaxRetries:    2,
		BackoffFactor: 500 * time.Millisecond,
		PoolSize:      20,
		UserAgent:     DefaultUserAgent,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = d.BackoffFactor
	}
	if c.PoolSize <= 0 {
		c.PoolSize = d.PoolSize
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	return c
}
