package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, recording).
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

const timeLayout = "2006-01-02 15:04:05"

// ConsoleLogger writes human-readable, timestamped logs.
// Info and Debug go to stdout, Warn and Error to stderr. Debug is only
// written in verbose mode.
type ConsoleLogger struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
	now     func() time.Time
}

func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return &ConsoleLogger{
		out:     os.Stdout,
		errOut:  os.Stderr,
		verbose: verbose,
		now:     time.Now,
	}
}

// NewWriterLogger sends every level to w.
func NewWriterLogger(w io.Writer, verbose bool) *ConsoleLogger {
	return &ConsoleLogger{out: w, errOut: w, verbose: verbose, now: time.Now}
}

func (c *ConsoleLogger) write(w io.Writer, level, msg string, args []interface{}) {
	fmt.Fprintf(w, "%s %9s "+msg+"\n", append([]interface{}{c.now().Format(timeLayout), level}, args...)...)
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	c.write(c.out, "INFO", msg, args)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	c.write(c.errOut, "WARNING", msg, args)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	c.write(c.errOut, "ERROR", msg, args)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if c.verbose {
		c.write(c.out, "DEBUG", msg, args)
	}
}

// SilentLogger discards all log messages.
// Used when running in TUI or MCP mode to keep stdout clean.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// Entry is a single message captured by RecordingLogger.
type Entry struct {
	Level   string
	Message string
}

// RecordingLogger keeps every message in memory. Tests use it to assert on
// warnings such as duplicate build numbers.
type RecordingLogger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (r *RecordingLogger) record(level, msg string, args []interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Message: fmt.Sprintf(msg, args...)})
}

func (r *RecordingLogger) Info(msg string, args ...interface{})  { r.record("INFO", msg, args) }
func (r *RecordingLogger) Warn(msg string, args ...interface{})  { r.record("WARNING", msg, args) }
func (r *RecordingLogger) Error(msg string, args ...interface{}) { r.record("ERROR", msg, args) }
func (r *RecordingLogger) Debug(msg string, args ...interface{}) { r.record("DEBUG", msg, args) }

// Entries returns the recorded messages of the given level, or all of them
// when level is empty.
func (r *RecordingLogger) Entries(level string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Entry
	for _, e := range r.entries {
		if level == "" || e.Level == level {
			out = append(out, e)
		}
	}
	return out
}
