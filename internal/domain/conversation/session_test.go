package conversation

import (
	"testing"
	"time"
)

func TestNewSessionSeedsIdentityAndHistory(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	s, err := NewSession("whatsapp:+521000", now)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.Identity.FirstSeen.Equal(now) || snap.Identity.HasName() {
		t.Fatalf("identity seed = %+v", snap.Identity)
	}
	if snap.History == nil || len(snap.History) != 0 {
		t.Fatalf("history seed = %#v", snap.History)
	}
	if string(s.History) != "[]" {
		t.Fatalf("history json = %s", s.History)
	}
}

func TestIdentityMergeIsAdditive(t *testing.T) {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := Identity{Name: "Ana", FirstSeen: first}

	merged := base.Merge(Identity{Name: "Beatriz", ProfileName: "Ana G", FirstSeen: first.Add(time.Hour)})
	if merged.Name != "Ana" || !merged.FirstSeen.Equal(first) {
		t.Fatalf("known facts regressed: %+v", merged)
	}
	if merged.ProfileName != "Ana G" {
		t.Fatalf("new fact not merged: %+v", merged)
	}

	if got := merged.Merge(Identity{}); got != merged {
		t.Fatalf("merging empty identity changed facts: %+v", got)
	}
}

func TestDecodeTolerantOfEmptyColumns(t *testing.T) {
	s := &Session{SenderKey: "k"}
	if _, err := s.DecodeIdentity(); err != nil {
		t.Fatalf("DecodeIdentity: %v", err)
	}
	h, err := s.DecodeHistory()
	if err != nil || len(h) != 0 {
		t.Fatalf("DecodeHistory: %v %v", h, err)
	}
	s.History = []byte("not json")
	if _, err := s.DecodeHistory(); err == nil {
		t.Fatalf("expected decode error")
	}
}
