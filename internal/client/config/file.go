package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/gophmail/internal/flagx"
	"github.com/dmitrijs2005/gophmail/internal/timex"
)

// FileConfig is a DTO used exclusively for file decoding. Absent fields keep
// the value already in Config.
type FileConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr" toml:"server_endpoint_addr"`
	SharedKey          *string         `json:"shared_key" toml:"shared_key"`
	Timeout            *timex.Duration `json:"timeout" toml:"timeout"`
	RetryAttempts      *int            `json:"retry_attempts" toml:"retry_attempts"`
	RetryDelay         *timex.Duration `json:"retry_delay" toml:"retry_delay"`
	InboxDSN           *string         `json:"inbox_dsn" toml:"inbox_dsn"`
	LogLevel           *string         `json:"log_level" toml:"log_level"`
}

// parseFile overlays cfg with the file named by -c/-config. Panics on read
// or decode errors.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlags()
	if path == "" {
		return
	}

	var fc FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			panic(err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			panic(err)
		}
		if err := json.Unmarshal(data, &fc); err != nil {
			panic(err)
		}
	}

	if fc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *fc.ServerEndpointAddr
	}
	if fc.SharedKey != nil {
		cfg.SharedKey = *fc.SharedKey
	}
	if fc.Timeout != nil {
		cfg.Timeout = fc.Timeout.Duration
	}
	if fc.RetryAttempts != nil {
		cfg.RetryAttempts = *fc.RetryAttempts
	}
	if fc.RetryDelay != nil {
		cfg.RetryDelay = fc.RetryDelay.Duration
	}
	if fc.InboxDSN != nil {
		cfg.InboxDSN = *fc.InboxDSN
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
}
