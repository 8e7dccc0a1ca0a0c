package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestInit_Text(t *testing.T) {
	Reset()
	buf := &bytes.Buffer{}
	Init(Config{Level: "info", Format: "text", Output: buf})
	defer Reset()

	Info("snapshot delivered", "attempt", 1)
	output := buf.String()
	if !strings.Contains(output, "snapshot delivered") {
		t.Errorf("expected message in output, got: %s", output)
	}
	if !strings.Contains(output, "attempt=1") {
		t.Errorf("expected attempt attribute in output, got: %s", output)
	}
}

func TestInit_JSON(t *testing.T) {
	Reset()
	buf := &bytes.Buffer{}
	Init(Config{Level: "info", Format: "json", Output: buf})
	defer Reset()

	Error("failed to connect to broker", "attempt", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["msg"] != "failed to connect to broker" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
}

func TestInit_OnlyCalledOnce(t *testing.T) {
	Reset()
	buf1 := &bytes.Buffer{}
	buf2 := &bytes.Buffer{}

	Init(Config{Level: "info", Format: "text", Output: buf1})
	Init(Config{Level: "info", Format: "text", Output: buf2})
	defer Reset()

	Info("only once")

	if buf1.Len() == 0 {
		t.Error("expected buf1 to have output")
	}
	if buf2.Len() != 0 {
		t.Error("expected buf2 to be empty (second Init is a no-op)")
	}
}

func TestLevelFiltering(t *testing.T) {
	Reset()
	buf := &bytes.Buffer{}
	Init(Config{Level: "warn", Format: "text", Output: buf})
	defer Reset()

	Info("hidden")
	Warn("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Errorf("info message should be filtered at warn level: %s", output)
	}
	if !strings.Contains(output, "shown") {
		t.Errorf("expected warn message: %s", output)
	}
}

func TestDefault_BeforeInit(t *testing.T) {
	Reset()
	if Default() == nil {
		t.Error("Default() should never return nil")
	}
}

func TestNew_DoesNotReplaceDefault(t *testing.T) {
	Reset()
	buf := &bytes.Buffer{}
	l := New(Config{Level: "debug", Format: "text", Output: buf})
	l.Debug("local only")

	if !strings.Contains(buf.String(), "local only") {
		t.Errorf("expected debug output, got: %s", buf.String())
	}
	if Default() == l {
		t.Error("New must not install the logger as default")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithContext_CycleID(t *testing.T) {
	Reset()
	buf := &bytes.Buffer{}
	Init(Config{Level: "info", Format: "text", Output: buf})
	defer Reset()

	ctx := SetCycleID(context.Background(), "cycle-123")
	WithContext(ctx).Info("context test")

	if !strings.Contains(buf.String(), "cycle_id=cycle-123") {
		t.Errorf("expected cycle_id in output: %s", buf.String())
	}
}

func TestGetCycleID_Missing(t *testing.T) {
	if got := GetCycleID(context.Background()); got != "" {
		t.Errorf("GetCycleID() = %q, want empty string", got)
	}
}
