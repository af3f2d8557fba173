package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestInfoWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info("recommend.cache_hit", map[string]any{"query": "space opera", "items": 5})

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log json: %v (%q)", err, buf.String())
	}
	for _, key := range []string{"ts", "level", "msg", "query", "items"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field %q in %v", key, payload)
		}
	}
	if payload["msg"] != "recommend.cache_hit" || payload["level"] != "info" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestLevelFiltersLowerSeverity(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Debug("dropped", nil)
	Info("dropped", nil)
	Error("kept", map[string]any{"err": errors.New("boom")})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"err":"boom"`) {
		t.Fatalf("expected error field, got %s", lines[0])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"":        "info",
		"DEBUG":   "debug",
		"warning": "warn",
		"error":   "error",
		"bogus":   "info",
	}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q)=%s want %s", in, got, want)
		}
	}
}
