package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/raysh454/vulnprobe/internal/logging"
	"github.com/raysh454/vulnprobe/internal/scanner"
	"github.com/raysh454/vulnprobe/internal/webclient"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the scan API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// SubmitRate is the sustained number of scan submissions per second;
	// non-positive disables limiting.
	SubmitRate  float64 `yaml:"submit_rate"`
	SubmitBurst int     `yaml:"submit_burst"`
}

// Config groups the per-component configuration.
type Config struct {
	WebClient webclient.Config `yaml:"webclient"`
	Scanner   scanner.Config   `yaml:"scanner"`
	Server    ServerConfig     `yaml:"server"`

	// DBPath is the SQLite file reports are saved to; empty disables persistence.
	DBPath      string `yaml:"db_path"`
	LogLevel    string `yaml:"log_level"`
	ReportPath  string `yaml:"report_path"`
	PayloadFile string `yaml:"payload_file"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		WebClient: webclient.DefaultConfig(),
		Scanner:   scanner.DefaultConfig(),
		Server: ServerConfig{
			Addr:        ":8080",
			SubmitRate:  1,
			SubmitBurst: 5,
		},
		DBPath:     "vulnprobe.db",
		LogLevel:   "info",
		ReportPath: "report.json",
	}
}

// LoadConfig reads a YAML file over the defaults and applies environment
// overrides. An empty path yields the defaults plus overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from VULNPROBE_* environment variables.
func (c *Config) ApplyEnv() {
	c.Scanner.Workers = envOrDefault("VULNPROBE_WORKERS", c.Scanner.Workers)
	c.Scanner.MaxPages = envOrDefault("VULNPROBE_MAX_PAGES", c.Scanner.MaxPages)
	c.Scanner.MaxDepth = envOrDefault("VULNPROBE_DEPTH", c.Scanner.MaxDepth)
	c.WebClient.Timeout = envOrDefaultDuration("VULNPROBE_TIMEOUT", c.WebClient.Timeout)
	c.LogLevel = envOrDefaultStr("VULNPROBE_LOG_LEVEL", c.LogLevel)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Scanner.Workers < 0:
		return fmt.Errorf("scanner.workers must be >= 0, got %d", c.Scanner.Workers)
	case c.Scanner.MaxPages < 0:
		return fmt.Errorf("scanner.max_pages must be >= 0, got %d", c.Scanner.MaxPages)
	case c.Scanner.MaxDepth < 0:
		return fmt.Errorf("scanner.max_depth must be >= 0, got %d", c.Scanner.MaxDepth)
	case c.Scanner.AnomalyThreshold < 0:
		return fmt.Errorf("scanner.anomaly_threshold must be >= 0, got %d", c.Scanner.AnomalyThreshold)
	case c.Scanner.SimilarityThreshold < 0 || c.Scanner.SimilarityThreshold > 1:
		return fmt.Errorf("scanner.similarity_threshold must be within [0,1], got %v", c.Scanner.SimilarityThreshold)
	case c.WebClient.Timeout < 0:
		return fmt.Errorf("webclient.timeout must be >= 0, got %s", c.WebClient.Timeout)
	case c.WebClient.MaxRetries < 0:
		return fmt.Errorf("webclient.max_retries must be >= 0, got %d", c.WebClient.MaxRetries)
	case c.Server.SubmitBurst < 0:
		return errors.New("server.submit_burst must be >= 0")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func envOrDefault(envKey string, defaultVal int) int {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func envOrDefaultStr(envKey string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return defaultVal
}

// envOrDefaultDuration accepts a Go duration ("15s") or whole seconds ("15").
func envOrDefaultDuration(envKey string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envKey)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
