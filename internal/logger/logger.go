package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Level names double as log file stems: info.log, warning.log, error.log.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Levels lists the levels in severity order.
var Levels = []string{LevelInfo, LevelWarning, LevelError}

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      []*os.File
	logDir     string
	mu         sync.Mutex
}

// NewLogger creates a Logger writing into logDir, creating it when missing.
func NewLogger(logDir string) (*Logger, error) {
	return newLogger(logDir, os.Stdout, os.Stderr)
}

func newLogger(logDir string, stdout, stderr io.Writer) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	l := &Logger{logDir: logDir}
	if err := l.setupLoggers(stdout, stderr); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers(stdout, stderr io.Writer) error {
	infoFile, err := l.openLogFile(LevelInfo)
	if err != nil {
		return err
	}
	warningFile, err := l.openLogFile(LevelWarning)
	if err != nil {
		return err
	}
	errorFile, err := l.openLogFile(LevelError)
	if err != nil {
		return err
	}

	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	l.infoLog = log.New(io.MultiWriter(stdout, infoFile), "ℹ️  INFO    ", flags)
	l.warningLog = log.New(io.MultiWriter(stdout, warningFile), "⚠️  WARNING ", flags)
	l.errorLog = log.New(io.MultiWriter(stderr, errorFile), "❌ ERROR   ", flags)
	return nil
}

func (l *Logger) openLogFile(level string) (*os.File, error) {
	name := l.Path(level)
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", name, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Path returns the file backing the given level.
func (l *Logger) Path(level string) string {
	return filepath.Join(l.logDir, level+".log")
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}

// CleanLogs truncates the log file of the given level.
func (l *Logger) CleanLogs(level string) error {
	if !validLevel(level) {
		return fmt.Errorf("unknown log level %q", level)
	}

	l.mu.Lock()
	err := os.Truncate(l.Path(level), 0)
	l.mu.Unlock()
	if err != nil {
		l.Error("Failed to clear %s log: %v", level, err)
		return err
	}

	l.Info("Log %s has been cleared", level)
	return nil
}

// Close closes the underlying log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}

func validLevel(level string) bool {
	for _, lv := range Levels {
		if lv == level {
			return true
		}
	}
	return false
}
