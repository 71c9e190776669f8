package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(buf, "info", "json")

	logger.Info("balance adjusted", "account_id", "a1")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "balance adjusted", entry["msg"])
	assert.Equal(t, "a1", entry["account_id"])
}

func TestNewTextRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(buf, "warn", "text")

	logger.Info("hidden")
	logger.Warn("shown")

	assert.False(t, strings.Contains(buf.String(), "hidden"))
	assert.True(t, strings.Contains(buf.String(), "shown"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
