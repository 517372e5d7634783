package observability

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
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"Info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"xyzzy", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInitLoggerJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Level: "debug", ServiceName: "fundd", Output: &buf})

	logger.Info("payment approved", "member_id", "m-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output by default, got %q: %v", buf.String(), err)
	}
	if record["service"] != "fundd" {
		t.Errorf("service attribute = %v, want fundd", record["service"])
	}
	if record["member_id"] != "m-1" {
		t.Errorf("member_id attribute = %v, want m-1", record["member_id"])
	}
}

func TestInitLoggerTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Level: "warn", Format: "text", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "msg=shown") {
		t.Errorf("expected text handler output, got %q", out)
	}
}

func TestInitLoggerSetsDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := InitLogger(LogConfig{Output: &buf})

	if logger.Handler() != slog.Default().Handler() {
		t.Error("InitLogger did not set the default logger")
	}
}
