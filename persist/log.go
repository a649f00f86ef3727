package persist

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logger is a minimal file-backed logger writing "[LEVEL] message" lines
// with a timestamp prefix, the same shape as Sia's persist.Logger but
// trimmed to the three levels ParXive operations actually emit.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	logger *log.Logger
}

// NewLogger opens (creating if necessary) filename for appending and
// returns a Logger writing to it.
func NewLogger(filename string) (*Logger, error) {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Logger{
		file:   f,
		logger: log.New(f, "", log.Ldate|log.Ltime),
	}, nil
}

// Writer exposes the underlying file for callers that want both a
// structured logger and a raw io.Writer (e.g. to mirror output to stderr
// via io.MultiWriter).
func (l *Logger) Writer() io.Writer { return l.file }

func (l *Logger) log(level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) { l.log("INFO", format, args...) }

// Warn logs a recoverable-condition message.
func (l *Logger) Warn(format string, args ...interface{}) { l.log("WARN", format, args...) }

// Error logs a failure.
func (l *Logger) Error(format string, args ...interface{}) { l.log("ERROR", format, args...) }

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
