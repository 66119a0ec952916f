package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZerologLogger_WritesLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleZerologLogger(&buf, "debug")
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", "two")
	log.Warn(ctx, "wrn")
	log.Error(ctx, "err", "d", 4)

	out := buf.String()
	for _, s := range []string{"DBG", "dbg", "a=1", "INF", "inf", "b=two", "WRN", "wrn", "ERR", "d=4"} {
		assert.Contains(t, out, s)
	}
}

func TestZerologLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleZerologLogger(&buf, "warn")

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestZerologLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleZerologLogger(&buf, "info").With("module", "session")

	log.Info(context.Background(), "hello")

	assert.Contains(t, buf.String(), "module=session")
}

func TestNew_SelectsBackend(t *testing.T) {
	var jsonBuf bytes.Buffer
	New(FormatJSON, "info", &jsonBuf).Info(context.Background(), "json-line", "k", "v")
	assert.True(t, strings.HasPrefix(jsonBuf.String(), "{"), jsonBuf.String())
	assert.Contains(t, jsonBuf.String(), `"k":"v"`)

	var consoleBuf bytes.Buffer
	New(FormatConsole, "info", &consoleBuf).Info(context.Background(), "console-line")
	assert.Contains(t, consoleBuf.String(), "INF")

	var quiet bytes.Buffer
	New(FormatJSON, "error", &quiet).Info(context.Background(), "dropped")
	assert.Empty(t, quiet.String())
}
