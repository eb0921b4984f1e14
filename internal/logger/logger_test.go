package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestModuleLoggerLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  LogLevel
		logFn  func(Logger)
		expect bool
	}{
		{"debug hidden at info", LogLevelInfo, func(l Logger) { l.Debug("msg") }, false},
		{"info shown at info", LogLevelInfo, func(l Logger) { l.Info("msg") }, true},
		{"trace shown at trace", LogLevelTrace, func(l Logger) { l.Trace("msg") }, true},
		{"warn hidden at error", LogLevelError, func(l Logger) { l.Warn("msg") }, false},
		{"error always shown", LogLevelError, func(l Logger) { l.Error("msg") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFn(NewSlogLogger(&buf, tt.level, nil))
			assert.Equal(t, tt.expect, strings.Contains(buf.String(), "msg=msg"), buf.String())
		})
	}
}

func TestTextOutputHasNoTimestampAndTraceName(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelTrace, nil)

	log.Trace("sql query")

	out := buf.String()
	assert.Contains(t, out, "level=TRACE")
	assert.NotContains(t, out, "time=")
}

func TestModuleAndFieldsAreAccumulated(t *testing.T) {
	var buf bytes.Buffer
	root := NewSlogLogger(&buf, LogLevelDebug, time.UTC)

	log := root.Module("quicktest").Module("controller").With(Uint("case_id", 42))
	log.Info("submitted", String("result", "pass"), Duration("elapsed", 150*time.Millisecond))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "quicktest.controller", entry["module"])
	assert.InDelta(t, 42, entry["case_id"], 0)
	assert.Equal(t, "pass", entry["result"])
	assert.Equal(t, "150ms", entry["elapsed"])
}

func TestWithContextAddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, nil)

	log.WithContext(WithTraceID(context.Background(), "abc-123")).Info("request")

	assert.Contains(t, buf.String(), "trace_id=abc-123")
}

func TestCentralLoggerWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"datastore": "debug"},
	})
	require.NoError(t, err)

	cl.Module("datastore").Debug("migrated", Int("tables", 6))
	cl.Module("api").Debug("hidden")
	require.NoError(t, cl.Flush())
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "datastore", entry["module"])
	assert.Equal(t, "DEBUG", entry["level"])
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}

func TestGormAdapterTrace(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewGormLoggerAdapter(NewSlogLogger(&buf, LogLevelTrace, nil), 10*time.Millisecond)
	query := func() (string, int64) { return "SELECT 1", 1 }

	adapter.Trace(context.Background(), time.Now(), query, nil)
	assert.Contains(t, buf.String(), "sql query")

	buf.Reset()
	adapter.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	assert.Contains(t, buf.String(), "slow query")

	buf.Reset()
	adapter.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	assert.Contains(t, buf.String(), "level=TRACE")

	buf.Reset()
	adapter.Trace(context.Background(), time.Now(), query, assert.AnError)
	assert.Contains(t, buf.String(), "query error")
}
