package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_WritesJSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := WithProject(WithComponent(New(&buf, "info"), "timeline"), "/srv/drafts/a")

	logger.Debug("hidden")
	logger.Info("timeline synced", "segments", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug filtered): %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["component"] != "timeline" || rec["project"] != "/srv/drafts/a" || rec["segments"] != float64(3) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNewLoggerWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "capgenie.log")
	logger, closer, err := NewLoggerWithFile("info", path)
	if err != nil {
		t.Fatalf("NewLoggerWithFile error: %v", err)
	}
	logger.Info("hello file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello file"`) {
		t.Errorf("log file missing record: %q", data)
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) returned nil")
	}
	l := Discard()
	if OrDiscard(l) != l {
		t.Error("OrDiscard should return a non-nil logger unchanged")
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("short"); got != "****" {
		t.Errorf("SanitizeToken(short) = %q", got)
	}
	if got := SanitizeToken("abcd1234efgh5678"); got != "abcd...5678" {
		t.Errorf("SanitizeToken = %q, want abcd...5678", got)
	}
}

func TestSanitizePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("cannot determine home dir")
	}
	if got := SanitizePath(filepath.Join(home, "drafts", "a")); got != "~"+string(filepath.Separator)+filepath.Join("drafts", "a") {
		t.Errorf("SanitizePath = %q", got)
	}
	if got := SanitizePath(home + "other"); got != home+"other" {
		t.Errorf("SanitizePath should not mask sibling prefix, got %q", got)
	}
}
