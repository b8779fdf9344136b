package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"", log.InfoLevel},
		{"loud", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_QuietSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "info", Quiet: true})
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info should be suppressed in quiet mode: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn should be logged: %q", out)
	}
}

func TestNew_DebugWins(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Level: "error", Debug: true, Quiet: true})
	logger.Debug("details", "task_id", 42)

	out := buf.String()
	if !strings.Contains(out, "details") || !strings.Contains(out, "task_id=42") {
		t.Errorf("expected debug line with fields, got %q", out)
	}
}

func TestNew_JSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Options{Format: "json"})
	logger.Info("hello")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("expected JSON output, got %q", buf.String())
	}
}
