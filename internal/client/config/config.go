package config

import "time"

// Config holds runtime settings for the Send It CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the backend gRPC endpoint.
//   - DebounceDelay: quiet period before an edited text is written.
//   - MaxParallelUploads: how many files of one batch upload at the same time.
//   - DatabasePath: SQLite file holding the persisted session.
//   - SignInTimeout: how long the CLI waits for the browser sign-in to finish.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerEndpointAddr string
	DebounceDelay      time.Duration
	MaxParallelUploads int
	DatabasePath       string
	SignInTimeout      time.Duration
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DebounceDelay = 300 * time.Millisecond
	c.MaxParallelUploads = 4
	c.DatabasePath = "sendit.db"
	c.SignInTimeout = 5 * time.Minute
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
