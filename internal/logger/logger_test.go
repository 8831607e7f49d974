package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	l, err := newLogger(t.TempDir(), &stdout, &stderr)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l, &stdout, &stderr
}

func readLog(t *testing.T, l *Logger, level string) string {
	t.Helper()
	data, err := os.ReadFile(l.Path(level))
	require.NoError(t, err)
	return string(data)
}

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	l, stdout, stderr := newTestLogger(t)

	l.Info("object found p=%.2f", 0.83)
	l.Warning("object lost after %d misses", 3)
	l.Error("detection failed: %v", "boom")

	assert.Contains(t, readLog(t, l, LevelInfo), "object found p=0.83")
	assert.Contains(t, readLog(t, l, LevelWarning), "object lost after 3 misses")
	assert.Contains(t, readLog(t, l, LevelError), "detection failed: boom")

	assert.Contains(t, stdout.String(), "INFO")
	assert.Contains(t, stdout.String(), "WARNING")
	assert.NotContains(t, stdout.String(), "detection failed")
	assert.Contains(t, stderr.String(), "detection failed: boom")
}

func TestLogger_CleanLogs(t *testing.T) {
	l, _, _ := newTestLogger(t)

	l.Warning("stale warning")
	require.NotEmpty(t, readLog(t, l, LevelWarning))

	require.NoError(t, l.CleanLogs(LevelWarning))
	assert.Empty(t, readLog(t, l, LevelWarning))
	assert.Contains(t, readLog(t, l, LevelInfo), "Log warning has been cleared")
}

func TestLogger_CleanLogsRejectsUnknownLevel(t *testing.T) {
	l, _, _ := newTestLogger(t)
	assert.Error(t, l.CleanLogs("../secrets"))
}
