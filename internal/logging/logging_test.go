package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewWriterFormatsAndFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, zerolog.WarnLevel)

	log.Info().Msg("hidden")
	log.Warn().Str("component", "service").Msg("backend unavailable")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("output %q contains a filtered info line", out)
	}
	if !strings.Contains(out, "backend unavailable") || !strings.Contains(out, "component=service") {
		t.Fatalf("output = %q, want message and component field", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("output %q contains colour codes", out)
	}
}

func TestNewCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dictate.log")
	log, closer, err := New(Options{Path: path, Level: zerolog.DebugLevel})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	log.Debug().Msg("hello file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("log file = %q, want hello file", data)
	}
}

func TestNewRejectsEmptyPath(t *testing.T) {
	if _, _, err := New(Options{}); err == nil {
		t.Fatal("New() error = nil, want error for empty path")
	}
}
