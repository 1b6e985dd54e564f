package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := InitWriter(&buf, "debug")
	log.Debug("hello", "bond", "RU000A10TEST")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "hello", rec["msg"])
	require.Equal(t, "RU000A10TEST", rec["bond"])
}

func TestInitWriterLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := InitWriter(&buf, "warn")
	log.Info("dropped")
	require.Zero(t, buf.Len())

	log.Warn("kept")
	require.NotZero(t, buf.Len())
}

func TestInitWriterUnknownLevelWarns(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "loud")
	require.Contains(t, buf.String(), "unknown log level")
}
