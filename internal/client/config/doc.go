// Package config loads runtime configuration for the GophMail CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file (see parseFile) selected via flags: -c or -config.
//     Files ending in .toml are read as TOML, anything else as JSON.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the relay server
//	-k string   shared message key (base64, 32 bytes)
//	-t int      exchange timeout (seconds)
//	-r int      attempts for retryable calls
//	-w int      base delay between attempts (milliseconds)
//	-i string   path of the local inbox database
//	-l string   log level
//
// # File schema
//
// Durations use timex.Duration, so values can be either strings like "10s"
// or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:5050",
//	  "shared_key": "base64...",
//	  "timeout": "10s",
//	  "retry_attempts": 3,
//	  "retry_delay": "500ms",
//	  "inbox_dsn": "gophmail_inbox.db"
//	}
//
// Note: This package does not read environment variables directly; use the
// config file or flags to configure values.
package config
