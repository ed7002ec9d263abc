package logger

import (
	"bytes"
	"context"
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
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestGetInitializesOnce(t *testing.T) {
	defaultLogger = nil
	defer func() { defaultLogger = nil }()

	first := Get()
	if first == nil {
		t.Fatal("Get() should return a logger")
	}
	if second := Get(); first != second {
		t.Error("Get() should return the same logger instance")
	}
}

func TestLoggingFunctions(t *testing.T) {
	defaultLogger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	defer func() { defaultLogger = nil }()

	var buf bytes.Buffer
	defaultLogger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Debug("debug message", "key", "value")
	if !strings.Contains(buf.String(), "debug message") {
		t.Error("Debug message not logged")
	}
	buf.Reset()

	Info("info message")
	if !strings.Contains(buf.String(), "info message") {
		t.Error("Info message not logged")
	}
	buf.Reset()

	Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Error("Error message not logged")
	}
}

func TestContextLogging(t *testing.T) {
	var buf bytes.Buffer
	defaultLogger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	defer func() { defaultLogger = nil }()

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-123")

	InfoContext(ctx, "scoped message")
	out := buf.String()
	if !strings.Contains(out, "scoped message") {
		t.Error("InfoContext message not logged")
	}
	if !strings.Contains(out, "req-123") {
		t.Error("Request ID not included in log")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	defaultLogger = slog.New(slog.NewTextHandler(&buf, nil))
	defer func() { defaultLogger = nil }()

	WithComponent("simulation").Info("hello")
	if !strings.Contains(buf.String(), "component=simulation") {
		t.Error("component label not included in log")
	}
}
