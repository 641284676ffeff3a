package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{" warn ", WarnLevel},
		{"error", ErrorLevel},
		{"off", Disabled},
		{"bogus", InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToLogLevel(tt.in), tt.in)
	}
}

func TestWriterProviderFields(t *testing.T) {
	var buf bytes.Buffer
	p := NewWriterProvider(&buf, DebugLevel)

	logger := p.GetLoggerWithName("training").With(RunIDKey, "r-1")
	logger.Info("model fitted",
		ModelNameKey, "random_forest",
		SamplesKey, 80,
		DurationMsKey, int64(12),
		ErrorKey, errors.New("boom"),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "training", entry["logger"])
	assert.Equal(t, "r-1", entry[RunIDKey])
	assert.Equal(t, "random_forest", entry[ModelNameKey])
	assert.Equal(t, float64(80), entry[SamplesKey])
	assert.Equal(t, "boom", entry[ErrorKey])
	assert.Equal(t, "model fitted", entry["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	p := NewWriterProvider(&buf, WarnLevel)
	l := p.GetLogger()

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")

	buf.Reset()
	p.SetLevel(ErrorLevel)
	p.GetLogger().Warn("dropped too")
	assert.Zero(t, buf.Len())
}

func TestOddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	NewWriterProvider(&buf, DebugLevel).GetLogger().Debug("odd", "dangling")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dangling", entry["extra"])
}

func TestSetupRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carbonml.log")
	require.NoError(t, Setup(Config{Level: "info", File: path, MaxSizeMB: 1}))
	t.Cleanup(func() { SetupLogger("info") })

	GetLoggerWithName("test").Info("to file")
	assert.FileExists(t, path)
}

func TestSetupRejectsUnknownFormat(t *testing.T) {
	err := Setup(Config{Format: "xml"})
	assert.Error(t, err)
}
