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

// FileConfig is the on-disk shape of the server configuration. Fields left
// out of the file keep their current value, so a file may set only what
// differs from the defaults.
type FileConfig struct {
	Host           *string         `json:"host" toml:"host"`
	Port           *int            `json:"port" toml:"port"`
	MaxConnections *int            `json:"max_connections" toml:"max_connections"`
	DatabaseDSN    *string         `json:"database_dsn" toml:"database_dsn"`
	CipherKey      *string         `json:"cipher_key" toml:"cipher_key"`
	ReadTimeout    *timex.Duration `json:"read_timeout" toml:"read_timeout"`
	MaxFrameSize   *uint32         `json:"max_frame_size" toml:"max_frame_size"`
	HealthAddr     *string         `json:"health_addr" toml:"health_addr"`
	MetricsAddr    *string         `json:"metrics_addr" toml:"metrics_addr"`
	LogFormat      *string         `json:"log_format" toml:"log_format"`
	LogLevel       *string         `json:"log_level" toml:"log_level"`
}

// parseFile loads the file named by -c/-config into config. Files ending in
// .toml are decoded as TOML, anything else as JSON. A missing flag means no
// file; an unreadable or invalid file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlags()
	if path == "" {
		return
	}

	fc := &FileConfig{}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, fc); err != nil {
			panic(err)
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			panic(err)
		}
		if err := json.Unmarshal(data, fc); err != nil {
			panic(err)
		}
	}

	fc.apply(config)
}

func (fc *FileConfig) apply(c *Config) {
	setIf(&c.Host, fc.Host)
	setIf(&c.Port, fc.Port)
	setIf(&c.MaxConnections, fc.MaxConnections)
	setIf(&c.DatabaseDSN, fc.DatabaseDSN)
	setIf(&c.CipherKey, fc.CipherKey)
	if fc.ReadTimeout != nil {
		c.ReadTimeout = fc.ReadTimeout.Duration
	}
	setIf(&c.MaxFrameSize, fc.MaxFrameSize)
	setIf(&c.HealthAddr, fc.HealthAddr)
	setIf(&c.MetricsAddr, fc.MetricsAddr)
	setIf(&c.LogFormat, fc.LogFormat)
	setIf(&c.LogLevel, fc.LogLevel)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
