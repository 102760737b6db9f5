package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the Book Explorer CLI.
//
// RequestsPerSecond <= 0 disables outbound pacing. BreakerMinRequests and
// BreakerFailureRatio decide when the gateway stops calling a failing
// remote; BreakerTimeout is how long it stays open.
type Config struct {
	ServerURL           string        `env:"SERVER_URL"`
	DatabasePath        string        `env:"DATABASE_PATH"`
	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	RequestsPerSecond   float64       `env:"REQUESTS_PER_SECOND"`
	RequestBurst        int           `env:"REQUEST_BURST"`
	BreakerTimeout      time.Duration `env:"BREAKER_TIMEOUT"`
	BreakerMinRequests  uint32        `env:"BREAKER_MIN_REQUESTS"`
	BreakerFailureRatio float64       `env:"BREAKER_FAILURE_RATIO"`
	LogLevel            string        `env:"LOG_LEVEL"`
	LogFormat           string        `env:"LOG_FORMAT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000/api"
	c.DatabasePath = "bookexplorer.db"
	c.RequestTimeout = 30 * time.Second
	c.RequestsPerSecond = 10
	c.RequestBurst = 5
	c.BreakerTimeout = 30 * time.Second
	c.BreakerMinRequests = 5
	c.BreakerFailureRatio = 0.6
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig builds a Config from the process arguments and environment.
func LoadConfig() *Config {
	return Load(os.Args[1:])
}

// Load constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and the flags in args. Later sources
// take precedence over earlier ones.
func Load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}
