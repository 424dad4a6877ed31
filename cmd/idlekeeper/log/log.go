package log

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	mu      sync.Mutex
	logFile *os.File
	buffer  *bufio.Writer
)

type lockedWriter struct{}

func (lockedWriter) Write(p []byte) (int, error) {
	mu.Lock()
	defer mu.Unlock()
	if buffer == nil {
		return len(p), nil
	}
	return buffer.Write(p)
}

// NewLogger opens a fresh log file under dir. Logs never go to the terminal,
// which belongs to the operator console.
func NewLogger(debug bool, dir string) (*slog.Logger, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating log directory: %w", err)
	}

	name := fmt.Sprintf("idlekeeper-%s.log", time.Now().Format("2006-01-02-15-04-05"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}

	mu.Lock()
	if buffer != nil {
		buffer.Flush()
		logFile.Close()
	}
	logFile = f
	buffer = bufio.NewWriterSize(f, 8192)
	mu.Unlock()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(lockedWriter{}, &slog.HandlerOptions{Level: level})), nil
}

func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	if buffer != nil {
		buffer.Flush()
	}
}

func FlushAndClose() {
	mu.Lock()
	defer mu.Unlock()
	if buffer != nil {
		buffer.Flush()
		logFile.Close()
		buffer = nil
		logFile = nil
	}
}
