package logger

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if Named("ingest") == nil {
		t.Fatal("named logger is nil")
	}
}

func TestLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &zapLogger{z: zap.New(core)}

	ctx := WithRunID(context.Background(), "run-1")
	l.Named("grading").With(String("sheet", "Submissions")).Warn(ctx, "row skipped",
		Int("row", 7), Error(errors.New("bad timestamp")))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["run_id"] != "run-1" {
		t.Errorf("run_id = %v", fields["run_id"])
	}
	if fields["sheet"] != "Submissions" {
		t.Errorf("sheet = %v", fields["sheet"])
	}
	if fields["row"] != int64(7) {
		t.Errorf("row = %v", fields["row"])
	}
	if fields["error"] != "bad timestamp" {
		t.Errorf("error = %v", fields["error"])
	}
	if entries[0].LoggerName != "grading" {
		t.Errorf("logger name = %q", entries[0].LoggerName)
	}
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("SetLevelString(%q): %v", lvl, err)
		}
	}
	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
	_ = SetLevelString("info")
}
