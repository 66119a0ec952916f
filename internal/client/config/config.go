package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds runtime settings for the GophMail CLI.
//
// Fields:
//   - ServerEndpointAddr: host:port of the relay server.
//   - SharedKey: base64 AES-256 key shared by the communicating clients.
//     Messages are sealed with it before they leave the process.
//   - Timeout: upper bound for a single protocol exchange.
//   - RetryAttempts, RetryDelay: reconnect policy for idempotent calls.
//     The n-th retry waits n*RetryDelay.
//   - InboxDSN: SQLite database holding received messages.
//   - LogLevel: level of the console logger.
type Config struct {
	ServerEndpointAddr string
	SharedKey          string
	Timeout            time.Duration
	RetryAttempts      int
	RetryDelay         time.Duration
	InboxDSN           string
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:5050"
	c.SharedKey = ""
	c.Timeout = 10 * time.Second
	c.RetryAttempts = 3
	c.RetryDelay = 500 * time.Millisecond
	c.InboxDSN = "gophmail_inbox.db"
	c.LogLevel = "warn"
}

// Validate reports every setting that would keep the client from working.
// The shared key is checked when it is used.
func (c *Config) Validate() error {
	var errs []error
	if c.ServerEndpointAddr == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry attempts must be at least 1, got %d", c.RetryAttempts))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay must not be negative, got %s", c.RetryDelay))
	}
	if c.InboxDSN == "" {
		errs = append(errs, errors.New("inbox dsn is required"))
	}
	return errors.Join(errs...)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
