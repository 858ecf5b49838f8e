package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/sendit/internal/flagx"
	"github.com/dmitrijs2005/sendit/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "300ms" or as integer nanoseconds. Only keys present in the
// file override the current Config.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	DebounceDelay      timex.Duration `json:"debounce_delay"`
	MaxParallelUploads int            `json:"max_parallel_uploads"`
	DatabasePath       string         `json:"database_path"`
	SignInTimeout      timex.Duration `json:"sign_in_timeout"`
	LogLevel           string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// the -c or -config flag. Without the flag nothing is loaded. Panics on read
// or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	setDuration(&cfg.DebounceDelay, jc.DebounceDelay)
	if jc.MaxParallelUploads > 0 {
		cfg.MaxParallelUploads = jc.MaxParallelUploads
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	setDuration(&cfg.SignInTimeout, jc.SignInTimeout)
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
