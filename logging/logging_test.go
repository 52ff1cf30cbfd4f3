package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    interface{}
		wantErr bool
	}{
		{input: "trace", want: log.LevelTrace},
		{input: "debug", want: log.LevelDebug},
		{input: "info", want: log.LevelInfo},
		{input: "WARN", want: log.LevelWarn},
		{input: " error ", want: log.LevelError},
		{input: "crit", want: log.LevelCrit},
		{input: "verbose", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := LevelFromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, level)
		})
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, Config{Level: "warn", Format: FormatLogfmt})
	require.NoError(t, err)

	logger.Info("should be filtered")
	logger.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should be filtered")
	assert.Contains(t, out, "should appear")
}

func TestNewLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, Config{Level: "info", Format: FormatJSON})
	require.NoError(t, err)

	logger.Info("structured", "targets", 12)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "structured", entry["msg"])
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	_, err := NewLogger(&bytes.Buffer{}, Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
