package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf, Component: ComponentApp})
	l.With(FieldRequestID, "req_1").WithComponent(ComponentLedger).Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentLedger {
		t.Fatalf("component=%v", rec[FieldComponent])
	}
	if rec[FieldRequestID] != "req_1" {
		t.Fatalf("request id lost: %v", rec)
	}
	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Fatalf("component repeated: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().WithOperation(OpAppend).WithCount(2).WithError(nil)
	if _, ok := f[FieldError]; ok {
		t.Fatalf("nil error should be skipped")
	}
	if len(f.ToSlice()) != 4 {
		t.Fatalf("slice=%v", f.ToSlice())
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf, Component: ComponentHTTP}).With(FieldRequestID, "req_ctx")
	ctx := NewContext(context.Background(), l)

	FromContext(ctx).Info("scoped")
	if !strings.Contains(buf.String(), `"request_id":"req_ctx"`) {
		t.Fatalf("request logger not returned: %s", buf.String())
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a fallback logger")
	}
}

func TestStatusLevel(t *testing.T) {
	cases := map[int]slog.Level{200: slog.LevelInfo, 303: slog.LevelInfo, 422: slog.LevelWarn, 503: slog.LevelError}
	for code, want := range cases {
		if got := StatusLevel(code); got != want {
			t.Errorf("StatusLevel(%d) = %v, want %v", code, got, want)
		}
	}
}
