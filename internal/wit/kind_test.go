package wit

import (
	"net/http"
	"testing"
)

func TestKindForPath(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"message", KindMessage},
		{"/message", KindMessage},
		{"speech", KindSpeech},
		{"entities", KindEntities},
		{"entities/wit$datetime", KindEntities},
		{"app", KindApp},
		{"apps", KindApps},
		{"apps/1234/settings", KindApps},
		{"intents", KindGeneric},
		{"", KindGeneric},
		{"generic", KindGeneric},
	}

	for _, tt := range tests {
		if got := KindForPath(tt.path); got != tt.want {
			t.Errorf("KindForPath(%q) = %s, want %s", tt.path, got, tt.want)
		}
	}
}

func TestKindPolicies(t *testing.T) {
	for _, kind := range Kinds() {
		switch kind {
		case KindEntities, KindApp, KindApps:
			if !kind.Privileged() || kind.Auth() != AuthServer {
				t.Errorf("%s should use the server credential", kind)
			}
			if kind.StreamsBody() || kind.Method() != http.MethodGet {
				t.Errorf("%s should be a single-shot GET", kind)
			}
		case KindSpeech:
			if kind.Privileged() {
				t.Errorf("%s should use the client credential", kind)
			}
			if !kind.StreamsBody() || kind.Method() != http.MethodPost {
				t.Errorf("%s should be a streamed POST", kind)
			}
			if kind.Content().ContentType() != "audio/raw;encoding=signed-integer;bits=16;rate=16000;endian=little" {
				t.Errorf("unexpected content type %q", kind.Content().ContentType())
			}
		case KindMessage, KindGeneric:
			if kind.Privileged() || kind.StreamsBody() {
				t.Errorf("%s should be a client GET", kind)
			}
			if kind.Content().ContentType() != "" {
				t.Errorf("%s should not set a content type", kind)
			}
		default:
			t.Errorf("unhandled kind %s", kind)
		}
	}
}
