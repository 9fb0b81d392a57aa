package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger appends timestamped lines to a flat log file. When the file
// cannot be created or written it falls back to stderr instead of
// failing the request that tried to log.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	fallback *log.Logger
}

func New(path string) *Logger {
	l := &Logger{fallback: log.New(os.Stderr, "", log.LstdFlags)}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.fallback.Printf("logger: create log dir: %v", err)
		return l
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.fallback.Printf("logger: open log file: %v", err)
		return l
	}

	l.file = f
	return l
}

func (l *Logger) write(level, format string, args ...interface{}) {
	line := fmt.Sprintf("[%s][%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05"), level, fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		l.fallback.Print(line)
		return
	}
	if _, err := l.file.WriteString(line); err != nil {
		l.fallback.Print(line)
	}
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.write("INFO", format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.write("ERROR", format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.write("DEBUG", format, args...)
}

func (l *Logger) Warning(format string, args ...interface{}) {
	l.write("WARNING", format, args...)
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
