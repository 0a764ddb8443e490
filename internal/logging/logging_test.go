package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("info", FormatJSON, &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.Debug().Msg("hidden")
	l.Info().Str("game", "g1").Msg("created")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatal(err)
	}
	if rec["message"] != "created" || rec["game"] != "g1" || rec["level"] != "info" {
		t.Fatalf("record = %v", rec)
	}
	if _, ok := rec["time"]; !ok {
		t.Fatal("record has no timestamp")
	}
}

func TestNewConsoleWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("debug", FormatConsole, &buf)
	if err != nil {
		t.Fatal(err)
	}
	l.Debug().Msg("shot")
	out := buf.String()
	if !strings.Contains(out, "shot") || strings.Contains(out, "\x1b[") {
		t.Fatalf("console output %q", out)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New("loud", FormatJSON, &bytes.Buffer{}); err == nil {
		t.Fatal("bad level accepted")
	}
	if _, err := New("info", "xml", &bytes.Buffer{}); err == nil {
		t.Fatal("bad format accepted")
	}
}
