package conversation

import (
	"fmt"
	"testing"
	"time"
)

func makeTurns(n int) []Turn {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	out := make([]Turn, n)
	for i := range out {
		out[i] = Turn{
			Utterance: fmt.Sprintf("u%d", i),
			Reply:     fmt.Sprintf("r%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

func TestAppendTurnEvictsOldest(t *testing.T) {
	for _, size := range []int{20, 21, 35} {
		t.Run(fmt.Sprintf("len_%d", size), func(t *testing.T) {
			h := makeTurns(size)
			next := Turn{Utterance: "new", Reply: "reply"}
			got := AppendTurn(h, next, DefaultHistoryCap)
			if len(got) != DefaultHistoryCap {
				t.Fatalf("len=%d want %d", len(got), DefaultHistoryCap)
			}
			for i := 0; i < DefaultHistoryCap-1; i++ {
				if got[i] != h[size-(DefaultHistoryCap-1)+i] {
					t.Fatalf("entry %d = %+v, want %+v", i, got[i], h[size-(DefaultHistoryCap-1)+i])
				}
			}
			if got[len(got)-1] != next {
				t.Fatalf("last entry = %+v, want appended turn", got[len(got)-1])
			}
		})
	}
}

func TestAppendTurnDoesNotMutateInput(t *testing.T) {
	h := makeTurns(3)
	h = h[:2:3]
	_ = AppendTurn(h, Turn{Utterance: "x"}, 20)
	full := h[:3]
	if full[2].Utterance != "u2" {
		t.Fatalf("AppendTurn wrote into the caller's backing array")
	}
}

func TestAppendTurnGrowsUnderCap(t *testing.T) {
	got := AppendTurn(nil, Turn{Utterance: "first"}, 20)
	if len(got) != 1 || got[0].Utterance != "first" {
		t.Fatalf("got %+v", got)
	}
	got = AppendTurn(got, Turn{Utterance: "second"}, 0)
	if len(got) != 2 || got[1].Utterance != "second" {
		t.Fatalf("got %+v", got)
	}
}

func TestRecentSlice(t *testing.T) {
	h := makeTurns(8)
	got := RecentSlice(h, 5)
	if len(got) != 5 || got[0].Utterance != "u3" || got[4].Utterance != "u7" {
		t.Fatalf("RecentSlice=%+v", got)
	}
	if short := RecentSlice(h[:2], 5); len(short) != 2 {
		t.Fatalf("short history len=%d", len(short))
	}
	if empty := RecentSlice(nil, 5); len(empty) != 0 {
		t.Fatalf("empty history len=%d", len(empty))
	}
}
