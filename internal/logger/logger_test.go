package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{" info ", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetAndGetLevel(t *testing.T) {
	defer SetLevel("info")

	SetLevel("debug")
	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel() = %q, want debug", got)
	}
	SetLevel("error")
	if got := GetLevel(); got != "error" {
		t.Errorf("GetLevel() = %q, want error", got)
	}
}

func TestHandlerFormatsBracketedLine(t *testing.T) {
	defer SetLevel("info")

	var buf bytes.Buffer
	InitLogger(&buf)
	SetLevel("info")

	slog.Info("[Test] Something happened", "call_id", "call-1", "count", 3)

	line := buf.String()
	if !strings.Contains(line, "[INFO]") {
		t.Errorf("line %q missing level tag", line)
	}
	if !strings.Contains(line, "[Test] Something happened") {
		t.Errorf("line %q missing message", line)
	}
	if !strings.Contains(line, "call_id=call-1") || !strings.Contains(line, "count=3") {
		t.Errorf("line %q missing attributes", line)
	}
}

func TestHandlerFiltersBelowLevel(t *testing.T) {
	defer SetLevel("info")

	var buf bytes.Buffer
	InitLogger(&buf)
	SetLevel("warn")

	slog.Info("should be dropped")
	slog.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Error("info line was written at warn level")
	}
	if !strings.Contains(out, "should appear") {
		t.Error("warn line was filtered at warn level")
	}
}
