package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the relay server
//	-k string   shared message key
//	-t int      exchange timeout in seconds
//	-r int      attempts for retryable calls
//	-w int      retry delay in milliseconds
//	-i string   inbox database path
//	-l string   log level
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-t", "-r", "-w", "-i", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.SharedKey, "k", cfg.SharedKey, "shared message key (base64)")
	timeout := fs.Int("t", int(cfg.Timeout.Seconds()), "exchange timeout (in seconds)")
	fs.IntVar(&cfg.RetryAttempts, "r", cfg.RetryAttempts, "attempts for retryable calls")
	retryDelay := fs.Int("w", int(cfg.RetryDelay.Milliseconds()), "retry delay (in milliseconds)")
	fs.StringVar(&cfg.InboxDSN, "i", cfg.InboxDSN, "inbox database path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
	cfg.RetryDelay = time.Duration(*retryDelay) * time.Millisecond
}
