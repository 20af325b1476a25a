package mods

import (
	"testing"
	"time"
)

func TestBackoffRecord_DoublesWait(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var rec backoffRecord

	rec.Fail(base)
	firstDeadline := rec.deadline
	if firstDeadline != base.Add(1*time.Second) {
		t.Fatalf("expected first deadline 1s out, got %v", firstDeadline.Sub(base))
	}

	rec.Fail(base)
	secondDeadline := rec.deadline
	if secondDeadline != base.Add(2*time.Second) {
		t.Fatalf("expected second deadline 2s out, got %v", secondDeadline.Sub(base))
	}
}

func TestBackoffRecord_ClearsOnSuccess(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var rec backoffRecord
	rec.Fail(base)
	rec.Fail(base)
	rec.Succeed()

	if !rec.Ready(base) {
		t.Fatal("expected backoff to be cleared after success")
	}

	rec.Fail(base)
	if rec.deadline != base.Add(1*time.Second) {
		t.Fatalf("expected sequence to restart at 1s, got %v", rec.deadline.Sub(base))
	}
}

func TestBackoffSet_ReadyBeforeAnyFailure(t *testing.T) {
	s := newBackoffSet()
	if !s.Ready("unknown-key", time.Now()) {
		t.Fatal("a key with no recorded failures should always be ready")
	}
}

func TestBackoffSet_NotReadyUntilDeadline(t *testing.T) {
	s := newBackoffSet()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Fail("k", base)

	if s.Ready("k", base) {
		t.Fatal("expected not ready immediately after failure")
	}
	if !s.Ready("k", base.Add(2*time.Second)) {
		t.Fatal("expected ready after deadline passes")
	}
}
