package task

import (
	"context"
	"testing"
)

func TestTask_ProgressRollup(t *testing.T) {
	tk := New(context.Background(), 1, "install", map[string]Weight{
		"download": WeightHigh,
		"extract":  WeightLow,
	})

	tk.Subtask("download").SetProgress(50, 100)
	tk.Subtask("extract").SetProgress(0, 1)

	// download: 5 * 0.5 = 2.5, extract: 2 * 0 = 0, total weight 7 -> 2.5/7
	got := tk.Progress()
	want := 2.5 / 7
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Progress() = %v, want %v", got, want)
	}
}

func TestTask_DeferredSubtaskExcludedUntilActivated(t *testing.T) {
	tk := New(context.Background(), 1, "install", map[string]Weight{
		"download": WeightHigh,
	})

	managedJava := tk.Subtask("managed-java")
	tk.Subtask("download").Complete()

	if got := tk.Progress(); got != 1 {
		t.Errorf("expected deferred subtask to be excluded, got progress %v", got)
	}

	managedJava.Activate(WeightHigh)
	managedJava.SetProgress(0, 1)

	if got := tk.Progress(); got != 0.5 {
		t.Errorf("expected progress 0.5 after activating managed-java, got %v", got)
	}
}

func TestTask_CancelStopsContext(t *testing.T) {
	tk := New(context.Background(), 1, "install", nil)
	tk.Cancel()

	select {
	case <-tk.Context().Done():
	default:
		t.Fatal("expected context to be cancelled")
	}
	if tk.State() != StateCancelled {
		t.Errorf("expected Cancelled state, got %v", tk.State())
	}
}

func TestTask_Complete(t *testing.T) {
	tk := New(context.Background(), 1, "install", nil)
	tk.Complete()
	if tk.State() != StateCompleted {
		t.Errorf("expected Completed state, got %v", tk.State())
	}
}

func TestTask_Dismiss_RejectsWhileRunning(t *testing.T) {
	tk := New(context.Background(), 1, "install", nil)
	if err := tk.Dismiss(); err == nil {
		t.Fatal("expected Dismiss to fail while the task is still running")
	}
}

func TestTask_Dismiss_AllowedAfterFailure(t *testing.T) {
	tk := New(context.Background(), 1, "install", nil)
	_ = tk.Fail(context.DeadlineExceeded)

	if err := tk.Dismiss(); err != nil {
		t.Fatalf("expected Dismiss to succeed on a failed task: %v", err)
	}
	if tk.State() != StateDismissed {
		t.Errorf("expected Dismissed state, got %v", tk.State())
	}
}

func TestTask_Dismiss_AllowedAfterComplete(t *testing.T) {
	tk := New(context.Background(), 1, "install", nil)
	tk.Complete()
	if err := tk.Dismiss(); err != nil {
		t.Fatalf("expected Dismiss to succeed on a completed task: %v", err)
	}
}

func TestTask_Watch_NotifiesOnStateChange(t *testing.T) {
	tk := New(context.Background(), 1, "install", nil)
	ch, cancel := tk.Watch()
	defer cancel()

	tk.Complete()

	select {
	case <-ch:
	default:
		t.Fatal("expected a watch notification after Complete")
	}
}

func TestTask_Watch_CancelStopsFurtherDelivery(t *testing.T) {
	tk := New(context.Background(), 1, "install", nil)
	ch, cancel := tk.Watch()
	cancel()

	tk.Fail(context.Canceled)

	select {
	case <-ch:
		t.Fatal("expected no notification after the watch was cancelled")
	default:
	}
}
