// Package logger provides the leveled logging interface shared by cueline
// components.
//
// Sources log every scheduling call at debug level and report blocked
// transport callbacks as warnings. The CLI and the RPC server log lifecycle
// events at info level. Components default to a NopLogger when none is
// supplied.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

// Logger is the leveled logging interface used across cueline.
type Logger interface {
	// Debug logs a scheduling trace, such as "source.start lead 0.500000".
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	// Warning logs a condition that was handled but deserves attention,
	// such as a synced start blocked by a stopped source.
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
	// Close releases resources held by the logger. Safe to call more than
	// once.
	Close() error
}

// Level is the severity of a log line.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// StandardLogger writes "[LEVEL] message" lines through a *log.Logger.
// Lines below its minimum level, LevelInfo by default, are dropped.
type StandardLogger struct {
	logger *log.Logger
	min    atomic.Int32
	closer io.Closer
	once   sync.Once
}

// NewStandardLogger returns a StandardLogger writing through l.
func NewStandardLogger(l *log.Logger) *StandardLogger {
	s := &StandardLogger{logger: l}
	s.min.Store(int32(LevelInfo))
	return s
}

// NewFileLogger returns a StandardLogger appending to the file at path,
// creating it when missing. Close closes the file.
func NewFileLogger(path, prefix string) (*StandardLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	s := NewStandardLogger(log.New(f, prefix, log.LstdFlags|log.Lmicroseconds))
	s.closer = f
	return s, nil
}

// SetLevel sets the minimum level written.
func (s *StandardLogger) SetLevel(l Level) {
	s.min.Store(int32(l))
}

// Enabled reports whether lines at level l are written.
func (s *StandardLogger) Enabled(l Level) bool {
	return int32(l) >= s.min.Load()
}

func (s *StandardLogger) logf(l Level, format string, args ...interface{}) {
	if !s.Enabled(l) {
		return
	}
	s.logger.Printf("["+l.String()+"] "+format, args...)
}

func (s *StandardLogger) Debug(format string, args ...interface{}) {
	s.logf(LevelDebug, format, args...)
}

func (s *StandardLogger) Info(format string, args ...interface{}) {
	s.logf(LevelInfo, format, args...)
}

func (s *StandardLogger) Warning(format string, args ...interface{}) {
	s.logf(LevelWarning, format, args...)
}

func (s *StandardLogger) Error(format string, args ...interface{}) {
	s.logf(LevelError, format, args...)
}

// Close closes the underlying file of a file logger. It is a no-op
// otherwise.
func (s *StandardLogger) Close() error {
	var err error
	s.once.Do(func() {
		if s.closer != nil {
			err = s.closer.Close()
		}
	})
	return err
}

// NopLogger discards every message.
type NopLogger struct{}

func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (n *NopLogger) Debug(format string, args ...interface{})   {}
func (n *NopLogger) Info(format string, args ...interface{})    {}
func (n *NopLogger) Warning(format string, args ...interface{}) {}
func (n *NopLogger) Error(format string, args ...interface{})   {}
func (n *NopLogger) Close() error                               { return nil }

var (
	_ Logger = (*StandardLogger)(nil)
	_ Logger = (*NopLogger)(nil)
)

// MockLogger records formatted messages per level for test assertions.
// It is safe for concurrent use; read the fields once logging is done.
type MockLogger struct {
	mu           sync.Mutex
	DebugCalls   []string
	InfoCalls    []string
	WarningCalls []string
	ErrorCalls   []string
	CloseCalled  bool
}

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) record(dst *[]string, format string, args []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

func (m *MockLogger) Debug(format string, args ...interface{}) {
	m.record(&m.DebugCalls, format, args)
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.record(&m.InfoCalls, format, args)
}

func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.record(&m.WarningCalls, format, args)
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.record(&m.ErrorCalls, format, args)
}

func (m *MockLogger) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseCalled = true
	return nil
}

var _ Logger = (*MockLogger)(nil)
