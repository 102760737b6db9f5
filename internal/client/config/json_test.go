package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	t.Run("loads every field", func(t *testing.T) {
		path := writeTempJSON(t, `{
			"server_url": "https://books.example/api",
			"database_path": "/tmp/b.db",
			"request_timeout": "10s",
			"requests_per_second": 2.5,
			"request_burst": 1,
			"breaker_timeout": 60000000000,
			"breaker_min_requests": 3,
			"breaker_failure_ratio": 0.5,
			"log_level": "debug",
			"log_format": "json"
		}`)

		cfg := &Config{}
		parseJson(cfg, []string{"-config", path})

		assert.Equal(t, Config{
			ServerURL:           "https://books.example/api",
			DatabasePath:        "/tmp/b.db",
			RequestTimeout:      10 * time.Second,
			RequestsPerSecond:   2.5,
			RequestBurst:        1,
			BreakerTimeout:      time.Minute,
			BreakerMinRequests:  3,
			BreakerFailureRatio: 0.5,
			LogLevel:            "debug",
			LogFormat:           "json",
		}, *cfg)
	})

	t.Run("missing keys keep current values", func(t *testing.T) {
		path := writeTempJSON(t, `{"log_format": "json"}`)

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-c", path})

		want := defaults()
		want.LogFormat = "json"
		assert.Equal(t, want, *cfg)
	})

	t.Run("no config flag leaves cfg alone", func(t *testing.T) {
		cfg := &Config{ServerURL: "http://keep"}
		parseJson(cfg, []string{"-a", "http://other"})
		assert.Equal(t, "http://keep", cfg.ServerURL)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		path := writeTempJSON(t, `{ this is not valid json`)
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", path}) })
	})

	t.Run("bad duration panics", func(t *testing.T) {
		path := writeTempJSON(t, `{"request_timeout": "soon"}`)
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", path}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		require.Panics(t, func() {
			parseJson(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "nope.json")})
		})
	})
}
