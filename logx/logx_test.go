package logx

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryOutput(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(&buf)
	defer InitWithOutput(os.Stdout)

	Info("HEARTBEAT", "sent report ", 3)
	Warn("BLOCKSTORE", "dir missing")

	out := buf.String()
	assert.Contains(t, out, "[INFO][HEARTBEAT]")
	assert.Contains(t, out, "sent report 3")
	assert.Contains(t, out, "[WARN][BLOCKSTORE]")
}

func TestErrorfReturnsError(t *testing.T) {
	var buf bytes.Buffer
	InitWithOutput(&buf)
	defer InitWithOutput(os.Stdout)

	err := Errorf("register worker %d: %s", 7, "refused")
	require.Error(t, err)
	assert.Equal(t, "register worker 7: refused", err.Error())
	assert.Contains(t, buf.String(), "[ERROR][ERROR]")
}

func TestGetEnvIntFallback(t *testing.T) {
	t.Setenv(envLogFileMaxSizeMB, "")
	assert.Equal(t, defaultMaxSizeMB, getEnvInt(envLogFileMaxSizeMB, defaultMaxSizeMB))

	t.Setenv(envLogFileMaxSizeMB, "abc")
	assert.Equal(t, defaultMaxSizeMB, getEnvInt(envLogFileMaxSizeMB, defaultMaxSizeMB))

	t.Setenv(envLogFileMaxSizeMB, "12")
	assert.Equal(t, 12, getEnvInt(envLogFileMaxSizeMB, defaultMaxSizeMB))
}

func TestLogFilename(t *testing.T) {
	t.Setenv(envLogFile, "")
	assert.Equal(t, defaultLogFile, getLogFilename())

	t.Setenv(envLogFile, "worker-1.log")
	assert.Equal(t, "./logs/worker-1.log", getLogFilename())
}
