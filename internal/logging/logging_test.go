package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel zerolog.Level
	}{
		{"debug", "debug", zerolog.DebugLevel},
		{"info", "info", zerolog.InfoLevel},
		{"warn", "warn", zerolog.WarnLevel},
		{"empty defaults to info", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Setup(tt.level, "json", &buf))
			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())
		})
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Setup("loud", "json", &buf))
}

func TestComponentAddsField(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup("info", "json", &buf))

	logger := Component("service")
	logger.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "service", line["component"])
	assert.Equal(t, "hello", line["message"])
}
