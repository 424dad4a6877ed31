package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(false, dir)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("Session requested")
	FlushAndClose()

	files, err := filepath.Glob(filepath.Join(dir, "idlekeeper-*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	body, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "Session requested")
	assert.NotContains(t, string(body), "hidden")

	logger.Info("after close is dropped")
}
