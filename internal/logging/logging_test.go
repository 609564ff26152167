package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func contextFields(entry observer.LoggedEntry) map[string]interface{} {
	fields := map[string]interface{}{}
	for _, field := range entry.Context {
		fields[field.Key] = field.Interface
		if field.Type == zapcore.StringType {
			fields[field.Key] = field.String
		}
	}
	return fields
}

func TestForSessionAddsLogFields(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	service.Store("")

	SetService("wit")
	ForSession("abc-123", "speech").Infow("request started")

	logs := recorded.All()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}

	fields := contextFields(logs[0])
	if fields["service"] != "wit" {
		t.Fatalf("expected service to be wit, got %v", fields["service"])
	}
	if fields["session_id"] != "abc-123" {
		t.Fatalf("expected session_id to be abc-123, got %v", fields["session_id"])
	}
	if fields["kind"] != "speech" {
		t.Fatalf("expected kind to be speech, got %v", fields["kind"])
	}
}

func TestPackageHelpersWithoutService(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	service.Store("")

	Debugf("dropped")
	Warnf("careful %d", 1)

	logs := recorded.All()
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	if logs[0].Message != "careful 1" {
		t.Fatalf("unexpected message %q", logs[0].Message)
	}
	if len(logs[0].Context) != 0 {
		t.Fatalf("expected no context fields, got %v", logs[0].Context)
	}
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	if err := Init(Config{Format: "xml"}); err == nil {
		t.Fatalf("expected invalid format error")
	}
	if err := Init(Config{Level: "loud"}); err == nil {
		t.Fatalf("expected invalid level error")
	}
}
