package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewFromZap(zap.New(core)), logs
}

func TestLogger_RedactsSensitiveKeys(t *testing.T) {
	log, logs := observed()
	log.Info("connecting",
		"redis_url", "redis://:pw@localhost:6379",
		"mailto", "me@example.org",
		"api_key", "abc",
		"empty_token", "",
		"host", "localhost",
	)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()

	tests := []struct {
		key  string
		want interface{}
	}{
		{"redis_url", Redacted},
		{"mailto", Redacted},
		{"api_key", Redacted},
		{"empty_token", ""},
		{"host", "localhost"},
	}
	for _, tt := range tests {
		if got := fields[tt.key]; got != tt.want {
			t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestLogger_With(t *testing.T) {
	log, logs := observed()
	log.With("component", "index", "password", "hunter2").Warn("degraded")

	fields := logs.All()[0].ContextMap()
	if fields["component"] != "index" {
		t.Errorf("component = %v, want index", fields["component"])
	}
	if fields["password"] != Redacted {
		t.Errorf("password = %v, want redacted", fields["password"])
	}
	if logs.All()[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", logs.All()[0].Level)
	}
}

func TestSanitizeValue_NestedMap(t *testing.T) {
	got := sanitizeValue("config", map[string]interface{}{"token": "x", "name": "y"})
	m, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("sanitizeValue() = %T, want map", got)
	}
	if m["token"] != Redacted || m["name"] != "y" {
		t.Errorf("sanitizeValue() = %v", m)
	}
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"prod", "dev", ""} {
		l, err := New(mode)
		if err != nil {
			t.Errorf("New(%q) error = %v", mode, err)
			continue
		}
		l.Sync()
	}
}
