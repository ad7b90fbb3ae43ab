package enginelog

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestDefaultIsSilent(t *testing.T) {
	l := Default()
	if l == nil {
		t.Fatal("Default() returned nil")
	}
	if l.Enabled(nil, slog.LevelError) {
		t.Error("default logger should report all levels disabled")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	SetLogger(slog.New(h))
	t.Cleanup(func() { SetLogger(nil) })

	Default().Info("hello", "k", "v")
	if buf.Len() == 0 {
		t.Error("expected log output after SetLogger")
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	SetLogger(nil)

	Default().Error("should not appear")
	if buf.Len() != 0 {
		t.Error("SetLogger(nil) should restore the silent default")
	}
}
