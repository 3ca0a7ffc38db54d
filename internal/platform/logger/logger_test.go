package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValue(t *testing.T) {
	cases := []struct {
		key  string
		val  interface{}
		want func(got interface{}) bool
	}{
		{key: "api_key", val: "sk-123", want: func(got interface{}) bool { return got == "[REDACTED]" }},
		{key: "authorization", val: "Bearer x", want: func(got interface{}) bool { return got == "[REDACTED]" }},
		{key: "sender", val: "whatsapp:+521000", want: func(got interface{}) bool {
			s, ok := got.(string)
			return ok && strings.HasPrefix(s, "hash:") && len(s) == len("hash:")+12
		}},
		{key: "status", val: "ok", want: func(got interface{}) bool { return got == "ok" }},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			if got := sanitizeValue(tc.key, tc.val); !tc.want(got) {
				t.Fatalf("sanitizeValue(%q, %v) = %v", tc.key, tc.val, got)
			}
		})
	}
}

func TestHashValueIsStable(t *testing.T) {
	a := hashValue("+521000")
	b := hashValue("+521000")
	if a != b {
		t.Fatalf("hash not stable: %q vs %q", a, b)
	}
	if hashValue("+521001") == a {
		t.Fatalf("distinct senders hashed to the same value")
	}
	if hashValue("") != "" {
		t.Fatalf("empty value should hash to empty string")
	}
}

func TestNewTestModeIsNop(t *testing.T) {
	log, err := New("test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("discarded", "sender", "+521000")
	log.With("component", "x").Warn("discarded")
}
