package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestConfigure_WritesJSONWithServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "usher-test"})
	t.Cleanup(func() { Configure(Config{Output: &bytes.Buffer{}}) })

	logger := WithComponent("paging")
	logger.Debug().Str(FieldPage, "3").Msg("fetched")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if entry[FieldService] != "usher-test" {
		t.Fatalf("service = %v, want usher-test", entry[FieldService])
	}
	if entry[FieldComponent] != "paging" {
		t.Fatalf("component = %v, want paging", entry[FieldComponent])
	}
	if entry["message"] != "fetched" {
		t.Fatalf("message = %v, want fetched", entry["message"])
	}
}

func TestConfigure_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Configure(Config{Output: &bytes.Buffer{}}) })

	logger := Base()
	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %q", buf.String())
	}
}

func TestConfigure_EnvLevelFallback(t *testing.T) {
	t.Setenv("USHER_LOG_LEVEL", "error")
	var buf bytes.Buffer
	Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{Output: &bytes.Buffer{}}) })

	logger := Base()
	logger.Warn().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("warn line written at env error level: %q", buf.String())
	}
}

func TestWithContext_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := Configure(Config{Output: &buf})
	t.Cleanup(func() { Configure(Config{Output: &bytes.Buffer{}}) })

	ctx := ContextWithRequestID(context.Background(), "abc")
	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry[FieldRequestID] != "abc" {
		t.Fatalf("request_id = %v, want abc", entry[FieldRequestID])
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("RequestIDFromContext = %q, want empty", got)
	}
}
