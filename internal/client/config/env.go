package config

import (
	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces every variable read by parseEnv.
const EnvPrefix = "BOOKEXPLORER_"

// parseEnv overlays cfg with BOOKEXPLORER_* variables. Unset variables keep
// the current value; a value that does not parse panics.
func parseEnv(cfg *Config) {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		panic(err)
	}
}
