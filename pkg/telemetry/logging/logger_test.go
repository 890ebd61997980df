package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup("info", "json", &buf); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	slog.Info("hello", "profile", "dev")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "hello" || entry["profile"] != "dev" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup("warn", "text", &buf); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	slog.Info("quiet")
	slog.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Error("info line emitted at warn level")
	}
	if !strings.Contains(out, "loud") {
		t.Error("warn line missing")
	}
}

func TestSetup_RejectsUnknown(t *testing.T) {
	if err := Setup("loud", "text", nil); err == nil {
		t.Error("want error for unknown level")
	}
	if err := Setup("info", "xml", nil); err == nil {
		t.Error("want error for unknown format")
	}
}
