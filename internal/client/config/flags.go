package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/sendit/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the backend server
//	-w int      debounce delay for text edits (in milliseconds)
//	-p int      maximum number of parallel uploads
//	-d string   path of the local session database
//	-t int      sign-in timeout (in seconds)
//	-l string   log level
//
// Arguments that are not one of these flags are ignored (see
// flagx.ParseKnown).
func parseFlags(cfg *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	debounce := fs.Int("w", int(cfg.DebounceDelay.Milliseconds()), "text write debounce delay (in milliseconds)")
	fs.IntVar(&cfg.MaxParallelUploads, "p", cfg.MaxParallelUploads, "maximum parallel uploads")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local session database path")
	signIn := fs.Int("t", int(cfg.SignInTimeout.Seconds()), "sign-in timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := flagx.ParseKnown(fs, os.Args[1:]); err != nil {
		panic(err)
	}

	cfg.DebounceDelay = time.Duration(*debounce) * time.Millisecond
	cfg.SignInTimeout = time.Duration(*signIn) * time.Second
}
