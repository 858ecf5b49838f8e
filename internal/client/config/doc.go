// Package config loads runtime configuration for the Send It CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-w int      debounce delay for text edits (milliseconds)
//	-p int      maximum parallel uploads
//	-d string   local session database
//	-t int      sign-in timeout (seconds)
//	-l string   log level
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "debounce_delay": "300ms",
//	  "max_parallel_uploads": 4,
//	  "database_path": "sendit.db",
//	  "sign_in_timeout": "5m",
//	  "log_level": "warn"
//	}
//
// The package does not read environment variables; use the JSON file or
// flags to configure values.
package config
