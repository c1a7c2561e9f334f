package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestConsoleLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, false)
	log.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

	log.Info("wrote %s", "a/b/10.1-passed.txt")

	want := "2024-03-01 12:30:00      INFO wrote a/b/10.1-passed.txt\n"
	if buf.String() != want {
		t.Errorf("Info() wrote %q, want %q", buf.String(), want)
	}
}

func TestConsoleLogger_DebugGatedByVerbose(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    bool
	}{
		{name: "quiet", verbose: false, want: false},
		{name: "verbose", verbose: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWriterLogger(&buf, tt.verbose)
			log.Debug("fetched %d builds", 25)

			got := strings.Contains(buf.String(), "fetched 25 builds")
			if got != tt.want {
				t.Errorf("Debug() written = %v, want %v (output %q)", got, tt.want, buf.String())
			}
		})
	}
}

func TestRecordingLogger_Entries(t *testing.T) {
	log := NewRecordingLogger()
	log.Info("one")
	log.Warn("duplicate build %d", 80)
	log.Error("three")

	warnings := log.Entries("WARNING")
	if len(warnings) != 1 {
		t.Fatalf("Entries(WARNING) = %d entries, want 1", len(warnings))
	}
	if warnings[0].Message != "duplicate build 80" {
		t.Errorf("warning message = %q", warnings[0].Message)
	}
	if got := len(log.Entries("")); got != 3 {
		t.Errorf("Entries(\"\") = %d entries, want 3", got)
	}
}

func TestSilentLogger(t *testing.T) {
	var log Logger = NewSilentLogger()
	log.Info("ignored")
	log.Warn("ignored")
	log.Error("ignored")
	log.Debug("ignored")
}
