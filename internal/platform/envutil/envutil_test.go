package envutil

import (
	"testing"
	"time"
)

func TestInt(t *testing.T) {
	t.Setenv("ENVUTIL_INT", " 42 ")
	if got := Int("ENVUTIL_INT", 1); got != 42 {
		t.Fatalf("Int=%d want 42", got)
	}
	t.Setenv("ENVUTIL_INT", "nope")
	if got := Int("ENVUTIL_INT", 7); got != 7 {
		t.Fatalf("Int fallback=%d want 7", got)
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{"1": true, "TRUE": true, "on": true, "0": false, "off": false, "garbage": true}
	for raw, want := range cases {
		t.Setenv("ENVUTIL_BOOL", raw)
		if got := Bool("ENVUTIL_BOOL", true); got != want {
			t.Fatalf("Bool(%q)=%v want %v", raw, got, want)
		}
	}
}

func TestSeconds(t *testing.T) {
	t.Setenv("ENVUTIL_SECONDS", "15")
	if got := Seconds("ENVUTIL_SECONDS", time.Second); got != 15*time.Second {
		t.Fatalf("Seconds=%s", got)
	}
	t.Setenv("ENVUTIL_SECONDS", "0")
	if got := Seconds("ENVUTIL_SECONDS", 3*time.Second); got != 3*time.Second {
		t.Fatalf("Seconds fallback=%s", got)
	}
}

func TestString(t *testing.T) {
	t.Setenv("ENVUTIL_STRING", "  ")
	if got := String("ENVUTIL_STRING", "def"); got != "def" {
		t.Fatalf("String=%q", got)
	}
}
