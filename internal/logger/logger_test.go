package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(false, false)
	l.SetOutput(&buf)
	l.Info("connected", map[string]any{"db": "mysql"})
	got := buf.String()
	if !strings.HasPrefix(got, "[INFO] connected") || !strings.Contains(got, `"db":"mysql"`) {
		t.Fatalf("unexpected output: %q", got)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(true, false)
	l.SetOutput(&buf)
	l.Error("copy failed", map[string]any{"table": "auth_user"})
	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["level"] != "ERROR" || payload["table"] != "auth_user" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestDebugGatedByVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := New(false, false)
	l.SetOutput(&buf)
	l.Debug("resync", nil)
	if buf.Len() != 0 {
		t.Fatal("debug should be silent without verbose")
	}
	l = New(false, true)
	l.SetOutput(&buf)
	l.Debug("resync", nil)
	if buf.Len() == 0 {
		t.Fatal("debug should log in verbose mode")
	}
}

func TestJSONEnabled(t *testing.T) {
	if New(false, false).JSONEnabled() {
		t.Fatal("expected false")
	}
	if !New(true, false).JSONEnabled() {
		t.Fatal("expected true")
	}
}
