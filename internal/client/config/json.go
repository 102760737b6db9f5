package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/bookexplorer/internal/flagx"
	"github.com/dmitrijs2005/bookexplorer/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations go
// through timex.Duration so they can be written as "30s".
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	DatabasePath        string         `json:"database_path"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	RequestsPerSecond   float64        `json:"requests_per_second"`
	RequestBurst        int            `json:"request_burst"`
	BreakerTimeout      timex.Duration `json:"breaker_timeout"`
	BreakerMinRequests  uint32         `json:"breaker_min_requests"`
	BreakerFailureRatio float64        `json:"breaker_failure_ratio"`
	LogLevel            string         `json:"log_level"`
	LogFormat           string         `json:"log_format"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// The DTO is seeded from cfg, so keys absent from the file leave the
// current value alone. Read or unmarshal errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	jc := JsonConfig{
		ServerURL:           cfg.ServerURL,
		DatabasePath:        cfg.DatabasePath,
		RequestTimeout:      timex.Duration{Duration: cfg.RequestTimeout},
		RequestsPerSecond:   cfg.RequestsPerSecond,
		RequestBurst:        cfg.RequestBurst,
		BreakerTimeout:      timex.Duration{Duration: cfg.BreakerTimeout},
		BreakerMinRequests:  cfg.BreakerMinRequests,
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		LogLevel:            cfg.LogLevel,
		LogFormat:           cfg.LogFormat,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.DatabasePath = jc.DatabasePath
	cfg.RequestTimeout = jc.RequestTimeout.Duration
	cfg.RequestsPerSecond = jc.RequestsPerSecond
	cfg.RequestBurst = jc.RequestBurst
	cfg.BreakerTimeout = jc.BreakerTimeout.Duration
	cfg.BreakerMinRequests = jc.BreakerMinRequests
	cfg.BreakerFailureRatio = jc.BreakerFailureRatio
	cfg.LogLevel = jc.LogLevel
	cfg.LogFormat = jc.LogFormat
}
