package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-H string   listen host
//	-P int      listen port
//	-m int      max concurrent connections
//	-d string   PostgreSQL DSN, or "memory"
//	-k string   base64 cipher key for stored messages
//	-t int      read timeout, seconds
//	-g string   gRPC health address ("" disables)
//	-x string   metrics address ("" disables)
//	-l string   log format: json|console
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - The read timeout is accepted in seconds and converted to time.Duration.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-H", "-P", "-m", "-d", "-k", "-t", "-g", "-x", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.Host, "H", config.Host, "host to listen on")
	fs.IntVar(&config.Port, "P", config.Port, "port to listen on")
	fs.IntVar(&config.MaxConnections, "m", config.MaxConnections, "max concurrent connections")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CipherKey, "k", config.CipherKey, "base64 cipher key")
	readTimeout := fs.Int("t", int(config.ReadTimeout.Seconds()), "read timeout (in seconds)")
	fs.StringVar(&config.HealthAddr, "g", config.HealthAddr, "gRPC health endpoint address")
	fs.StringVar(&config.MetricsAddr, "x", config.MetricsAddr, "metrics endpoint address")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json|console)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ReadTimeout = time.Duration(*readTimeout) * time.Second
}
