// Package config loads runtime configuration for the Book Explorer CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables prefixed with BOOKEXPLORER_ (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the remote REST store, including the /api prefix
//	-d string   path of the local SQLite file holding the session
//	-t int      request timeout (seconds)
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so they may be strings like "30s" or
// integer nanoseconds. Keys missing from the file keep their earlier value:
//
//	{
//	  "server_url": "http://127.0.0.1:8000/api",
//	  "database_path": "bookexplorer.db",
//	  "request_timeout": "30s",
//	  "requests_per_second": 10,
//	  "request_burst": 5,
//	  "breaker_timeout": "30s",
//	  "breaker_min_requests": 5,
//	  "breaker_failure_ratio": 0.6,
//	  "log_level": "info",
//	  "log_format": "text"
//	}
//
// # Environment
//
//	BOOKEXPLORER_SERVER_URL, BOOKEXPLORER_DATABASE_PATH,
//	BOOKEXPLORER_REQUEST_TIMEOUT ("30s"), BOOKEXPLORER_REQUESTS_PER_SECOND,
//	BOOKEXPLORER_REQUEST_BURST, BOOKEXPLORER_BREAKER_TIMEOUT,
//	BOOKEXPLORER_BREAKER_MIN_REQUESTS, BOOKEXPLORER_BREAKER_FAILURE_RATIO,
//	BOOKEXPLORER_LOG_LEVEL, BOOKEXPLORER_LOG_FORMAT
//
// Malformed JSON, environment values or flags panic at startup.
package config
