package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "debug", Env: "test", Output: &buf})

	logger.Debug().Str("hotel_id", "h1").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["message"])
	assert.Equal(t, "h1", line["hotel_id"])
	assert.Equal(t, "test", line["env"])
	assert.Equal(t, serviceName, line["service"])
}

func TestNewLevel(t *testing.T) {
	t.Run("InvalidFallsBackToInfo", func(t *testing.T) {
		logger := New(Options{Level: "loud"})
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})

	t.Run("Warn", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Options{Level: "WARN", Output: &buf})
		logger.Info().Msg("dropped")
		assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
		assert.Zero(t, buf.Len())
	})
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Format: "console", Output: &buf})

	logger.Info().Msg("readable")

	assert.Contains(t, buf.String(), "readable")
	assert.False(t, json.Valid(buf.Bytes()))
}
