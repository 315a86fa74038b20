package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", AppEnv: "staging"}, &buf)
	logger.Info("quote priced", "lines", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "quote priced", entry["msg"])
	require.Equal(t, "staging", entry["env"])
	require.EqualValues(t, 3, entry["lines"])
	require.Contains(t, entry, "source")
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "pretty"}, &buf).Warn("fallback")
	require.Contains(t, buf.String(), "level=WARN")
	require.Contains(t, buf.String(), "msg=fallback")
}
