package sink

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestWithLogging_Success(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	mem := NewMemorySink()
	out := WithLogging(mem, logger)

	if err := out.WriteFile(context.Background(), "dist/lib.js", []byte("exports.A = 1;\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := string(mem.Get("dist/lib.js")); got != "exports.A = 1;\n" {
		t.Errorf("content = %q", got)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "write completed") {
		t.Error("expected 'write completed' in log output")
	}
	if !strings.Contains(logOutput, `"path":"dist/lib.js"`) {
		t.Error("expected path in log output")
	}
	if !strings.Contains(logOutput, `"bytes":15`) {
		t.Error("expected size in log output")
	}
}

func TestWithLogging_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	out := WithLogging(NewMemorySink(), logger)

	err := out.WriteFile(context.Background(), "../escape.ts", []byte("x"))
	if err == nil {
		t.Fatal("expected error")
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "write failed") {
		t.Error("expected 'write failed' in log output")
	}
	if strings.Contains(logOutput, "write completed") {
		t.Error("did not expect 'write completed' in log output")
	}
}
