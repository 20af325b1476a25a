package mods

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestTargetSelector_OverrideTakesPriorityOverPriority(t *testing.T) {
	s := newTargetSelector()
	s.SetPriority(1)
	s.SetOverride(2)

	if id, ok := s.Current(); !ok || id != 2 {
		t.Fatalf("expected override 2 to win, got %d ok=%v", id, ok)
	}

	s.ClearOverride()
	if id, ok := s.Current(); !ok || id != 1 {
		t.Fatalf("expected priority 1 after clearing override, got %d ok=%v", id, ok)
	}
}

func TestTargetSelector_DrainWaitingEmptiesSet(t *testing.T) {
	s := newTargetSelector()
	s.Enqueue(1)
	s.Enqueue(2)

	if ids := s.DrainWaiting(); len(ids) != 2 {
		t.Fatalf("expected 2 queued ids, got %d", len(ids))
	}
	if ids := s.DrainWaiting(); len(ids) != 0 {
		t.Fatalf("expected waiting set to be empty after drain, got %v", ids)
	}
}

// fakeRowsFor encodes an instance id into a placeholder metadata
// row so a fake enrich func can report which instance it was asked to
// work on without needing the real Store plumbing.
func fakeRowsFor(instanceID int64) []*ModMetadata {
	return []*ModMetadata{{SHA512: fmt.Sprintf("%d", instanceID)}}
}

func rowsInstanceID(rows []*ModMetadata) int64 {
	var id int64
	fmt.Sscanf(rows[0].SHA512, "%d", &id)
	return id
}

// TestRemoteLoop_InterruptsOnTargetChange verifies spec.md §4.5's
// interrupting variant: when the watched target changes to a different
// instance mid-run, the in-flight enrichment is aborted, not left to
// finish, and a fresh run starts against the new target.
func TestRemoteLoop_InterruptsOnTargetChange(t *testing.T) {
	s := newTargetSelector()
	started := make(chan int64, 16)
	cancelledVia := make(chan int64, 16)

	enrich := func(ctx context.Context, now nowFunc, rows []*ModMetadata) error {
		id := rowsInstanceID(rows)
		started <- id
		<-ctx.Done()
		cancelledVia <- id
		return ctx.Err()
	}

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()

	loop := newRemoteLoop(s, fakeRowsFor, enrich, func() time.Time { return time.Unix(0, 0) })
	done := make(chan error, 1)
	go func() { done <- loop.Run(loopCtx) }()

	s.SetPriority(1)
	select {
	case id := <-started:
		if id != 1 {
			t.Fatalf("expected first run to target instance 1, got %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first run to start")
	}

	s.SetPriority(2)
	select {
	case id := <-cancelledVia:
		if id != 1 {
			t.Fatalf("expected instance 1's run to be the one interrupted, got %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first run to be interrupted")
	}

	select {
	case id := <-started:
		if id != 2 {
			t.Fatalf("expected the restart to target instance 2, got %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the restarted run")
	}

	cancelLoop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to return after context cancellation")
	}
}

// TestRemoteLoop_LetsMatchingTargetFinish verifies the other half of the
// interrupting variant: re-notifying watchers without actually changing
// the watched instance must not abort the in-flight run.
func TestRemoteLoop_LetsMatchingTargetFinish(t *testing.T) {
	s := newTargetSelector()
	cancelledVia := make(chan int64, 16)
	finished := make(chan int64, 16)
	release := make(chan struct{})

	enrich := func(ctx context.Context, now nowFunc, rows []*ModMetadata) error {
		id := rowsInstanceID(rows)
		select {
		case <-ctx.Done():
			cancelledVia <- id
			return ctx.Err()
		case <-release:
			finished <- id
			return nil
		}
	}

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()

	loop := newRemoteLoop(s, fakeRowsFor, enrich, func() time.Time { return time.Unix(0, 0) })
	done := make(chan error, 1)
	go func() { done <- loop.Run(loopCtx) }()

	s.SetPriority(1)
	// Re-announce the same target; this must not interrupt the run.
	s.SetPriority(1)

	select {
	case <-cancelledVia:
		t.Fatal("run was interrupted despite the target staying the same")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	select {
	case id := <-finished:
		if id != 1 {
			t.Fatalf("expected instance 1's run to finish, got %d", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the run to finish")
	}

	cancelLoop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to return after context cancellation")
	}
}

func TestCache_AwaitOverridesFocus(t *testing.T) {
	store := NewStore()
	cache := NewCache(store, func(int64) string { return "" }, nil, nil, nil, func() time.Time { return time.Unix(0, 0) })

	cache.Focus(1)
	release := cache.Await(2)

	if id, ok := cache.selector.Current(); !ok || id != 2 {
		t.Fatalf("expected Await(2) to override the focused instance, got %d ok=%v", id, ok)
	}

	release()
	if id, ok := cache.selector.Current(); !ok || id != 1 {
		t.Fatalf("expected focus to resume after releasing the override, got %d ok=%v", id, ok)
	}
}
