package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable name, e.g. SENDIT_GRPC_ADDR.
const EnvPrefix = "SENDIT"

// dotenvFiles lists the files godotenv tries to load; a missing file is fine.
var dotenvFiles = []string{".env"}

// parseEnv overlays Config with SENDIT_* environment variables. Variables
// that are not set leave the current value untouched. Panics on malformed
// values, like the other loaders.
func parseEnv(cfg *Config) {
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		panic(err)
	}
}
