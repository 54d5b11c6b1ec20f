package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNextLevel_Cycles(t *testing.T) {
	level := slog.LevelDebug
	want := []slog.Level{slog.LevelInfo, slog.LevelWarn, slog.LevelError, slog.LevelDebug}
	for i, w := range want {
		level = NextLevel(level)
		if level != w {
			t.Fatalf("step %d: got %v, want %v", i, level, w)
		}
	}
}

func TestSetLevel_FiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: slog.LevelInfo, Output: &buf})

	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug to be filtered, got %q", buf.String())
	}

	log.SetLevel(slog.LevelDebug)
	log.Debug("shown", "week", "W2")
	if !strings.Contains(buf.String(), "shown") || !strings.Contains(buf.String(), "week=W2") {
		t.Errorf("expected debug output after SetLevel, got %q", buf.String())
	}
	if log.GetLevel() != slog.LevelDebug {
		t.Errorf("GetLevel() = %v", log.GetLevel())
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOptions(Options{Level: slog.LevelInfo, Format: "json", Output: &buf})

	log.Warn("persist failed", "kind", "draw_result")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "persist failed" || entry["kind"] != "draw_result" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestHTTPLoggingToggle(t *testing.T) {
	log := Discard()
	if log.IsHTTPLoggingEnabled() {
		t.Fatal("expected HTTP logging disabled by default")
	}
	log.EnableHTTPLogging()
	if !log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging enabled")
	}
	log.DisableHTTPLogging()
	if log.IsHTTPLoggingEnabled() {
		t.Error("expected HTTP logging disabled")
	}
}

var _ Logger = (*SlogLogger)(nil)
