package logx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesConsoleAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer

	logger, closer, err := New(dir, "bootstrap", &console, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("Using existing Qt at /opt/Qt/6.5.3/gcc_64")
	logger.Debug("hidden")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(console.String(), "Using existing Qt") {
		t.Fatalf("console output missing entry: %q", console.String())
	}

	matches, err := filepath.Glob(filepath.Join(dir, "bootstrap-*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one log file, got %v (%v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Using existing Qt") {
		t.Fatalf("log file missing entry: %q", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatal("debug entry written without verbose")
	}
	if strings.Contains(string(data), "\x1b[") {
		t.Fatal("log file contains colour codes")
	}
}

func TestNewConsoleVerbose(t *testing.T) {
	var console bytes.Buffer
	logger := NewConsole(&console, true)
	logger.Debug("detail")
	if !strings.Contains(console.String(), "detail") {
		t.Fatalf("verbose logger dropped debug entry: %q", console.String())
	}
}
