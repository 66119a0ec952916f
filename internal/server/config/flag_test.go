package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"cmd",
			"-H", "127.0.0.1", "-P", "6000", "-m", "5", "-d", "memory", "-k", "key",
			"-t", "7", "-g", ":1", "-x", "", "-l", "console",
		}, expectPanic: false,
			expected: &Config{
				Host:           "127.0.0.1",
				Port:           6000,
				MaxConnections: 5,
				DatabaseDSN:    "memory",
				CipherKey:      "key",
				ReadTimeout:    7 * time.Second,
				HealthAddr:     ":1",
				MetricsAddr:    "",
				LogFormat:      "console",
			}},
		{name: "Unknown flags are ignored", args: []string{"cmd", "-P", "7000", "-deactivate", "bob"},
			expectPanic: false,
			expected:    &Config{Port: 7000}},
		{name: "Test2 Bad port", args: []string{"cmd", "-P", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)

			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
