package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapterWritesComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.DebugLevel)

	log.Info("Corrector", "angle estimated", map[string]interface{}{"angle": -7.0})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "Corrector", entry["component"])
	require.Equal(t, "angle estimated", entry["message"])
	require.InDelta(t, -7.0, entry["angle"], 1e-9)
}

func TestZerologAdapterErrorCarriesCause(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.InfoLevel)

	log.Error("Pool", errors.New("boom"), nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "boom", entry["error"])
	require.Equal(t, "Pool", entry["component"])
}

func TestZerologAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.WarnLevel)

	log.Debug("Pool", "hidden", nil)
	log.Info("Pool", "hidden", nil)
	require.Zero(t, buf.Len())

	log.Warning("Pool", "shown", nil)
	require.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
	require.Equal(t, zerolog.Disabled, ParseLevel("off"))
}

func TestLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEBUG", "1")
	require.Equal(t, zerolog.DebugLevel, LevelFromEnv())

	t.Setenv("LOG_LEVEL", "error")
	require.Equal(t, zerolog.ErrorLevel, LevelFromEnv())
}
