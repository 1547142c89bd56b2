package sessionize

import (
	"testing"
	"time"

	"github.com/eyalbz/wacal/internal/store"
)

const minute = int64(60_000)

func msgAt(id string, ts int64, fromMe bool) store.Message {
	return store.Message{MsgID: id, Timestamp: ts, FromMe: fromMe, Body: "hi"}
}

func TestSplitEmpty(t *testing.T) {
	if got := Split(nil, time.Hour); got != nil {
		t.Errorf("Split(nil) = %v, want nil", got)
	}
}

func TestSplitSingleMessage(t *testing.T) {
	sessions := Split([]store.Message{msgAt("m1", 5000, false)}, time.Hour)
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	s := sessions[0]
	if s.StartTS != 5000 || s.EndTS != 5000 {
		t.Errorf("start=%d end=%d, want both 5000", s.StartTS, s.EndTS)
	}
	if s.InboundCount != 1 || s.OutboundCount != 0 {
		t.Errorf("counts = %d/%d, want 1/0", s.InboundCount, s.OutboundCount)
	}
}

func TestSplitTwoSessions(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	msgs := []store.Message{
		msgAt("m1", t0, false),
		msgAt("m2", t0+10*minute, false),
		msgAt("m3", t0+70*minute, false), // 60 min after m2: > gap
		msgAt("m4", t0+80*minute, false),
	}
	sessions := Split(msgs, time.Hour)
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].StartTS != t0 || sessions[0].EndTS != t0+10*minute {
		t.Errorf("session 1 bounds = [%d,%d]", sessions[0].StartTS, sessions[0].EndTS)
	}
	if sessions[1].StartTS != t0+70*minute || sessions[1].EndTS != t0+80*minute {
		t.Errorf("session 2 bounds = [%d,%d]", sessions[1].StartTS, sessions[1].EndTS)
	}
}

// A conversation with steady 30-minute spacing under a 60-minute gap stays
// one session. Regression guard against only advancing the gap clock at
// session heads, which would split (or worse, merge) such runs incorrectly.
func TestSplitSteadyGapsStayOneSession(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	var msgs []store.Message
	for i := int64(0); i < 10; i++ {
		msgs = append(msgs, msgAt("m", t0+i*30*minute, false))
	}
	sessions := Split(msgs, time.Hour)
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if len(sessions[0].Messages) != 10 {
		t.Errorf("session has %d messages, want 10", len(sessions[0].Messages))
	}
}

func TestSplitBoundaryGapExactlyEqualIncluded(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	msgs := []store.Message{
		msgAt("m1", t0, false),
		msgAt("m2", t0+60*minute, false), // gap == 60 min: same session
		msgAt("m3", t0+60*minute+60*minute+1, false), // gap > 60 min: new session
	}
	sessions := Split(msgs, time.Hour)
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if len(sessions[0].Messages) != 2 {
		t.Errorf("session 1 has %d messages, want 2", len(sessions[0].Messages))
	}
}

func TestSplitEqualTimestampsShareSession(t *testing.T) {
	msgs := []store.Message{
		msgAt("a", 1000, false),
		msgAt("b", 1000, true),
		msgAt("c", 1000, false),
	}
	sessions := Split(msgs, time.Hour)
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	got := sessions[0].Messages
	if got[0].MsgID != "a" || got[1].MsgID != "b" || got[2].MsgID != "c" {
		t.Errorf("input order not preserved: %v", got)
	}
	if sessions[0].InboundCount != 2 || sessions[0].OutboundCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", sessions[0].InboundCount, sessions[0].OutboundCount)
	}
}

// Totality: sessions are non-empty, disjoint, and cover the input exactly.
func TestSplitTotality(t *testing.T) {
	t0 := int64(1_700_000_000_000)
	msgs := []store.Message{
		msgAt("m1", t0, false),
		msgAt("m2", t0+5*minute, true),
		msgAt("m3", t0+200*minute, false),
		msgAt("m4", t0+205*minute, false),
		msgAt("m5", t0+500*minute, true),
	}
	sessions := Split(msgs, time.Hour)

	var flat []store.Message
	for _, s := range sessions {
		if len(s.Messages) == 0 {
			t.Fatal("empty session produced")
		}
		flat = append(flat, s.Messages...)
	}
	if len(flat) != len(msgs) {
		t.Fatalf("concatenation has %d messages, want %d", len(flat), len(msgs))
	}
	for i := range msgs {
		if flat[i].MsgID != msgs[i].MsgID {
			t.Errorf("flat[%d] = %q, want %q", i, flat[i].MsgID, msgs[i].MsgID)
		}
	}

	// Gap bound: inside a session gaps <= 60 min, across boundaries > 60 min.
	for _, s := range sessions {
		for i := 1; i < len(s.Messages); i++ {
			if s.Messages[i].Timestamp-s.Messages[i-1].Timestamp > 60*minute {
				t.Errorf("in-session gap exceeds bound")
			}
		}
	}
	for i := 1; i < len(sessions); i++ {
		gap := sessions[i].StartTS - sessions[i-1].Messages[len(sessions[i-1].Messages)-1].Timestamp
		if gap <= 60*minute {
			t.Errorf("boundary gap %d ms is within bound", gap)
		}
	}
}

func TestSplitMediaMessagesStillCounted(t *testing.T) {
	msgs := []store.Message{
		{MsgID: "m1", Timestamp: 1000, FromMe: false, Body: "", MediaKind: "image"},
		{MsgID: "m2", Timestamp: 2000, FromMe: true, Body: "nice"},
	}
	sessions := Split(msgs, time.Hour)
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].InboundCount != 1 || sessions[0].OutboundCount != 1 {
		t.Errorf("counts = %d/%d, want 1/1 (media counted)", sessions[0].InboundCount, sessions[0].OutboundCount)
	}
}
