package instance

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/quasar/mclauncher-core/internal/launch"
)

func TestLifecycle_StateMonotonicity(t *testing.T) {
	l := New(1, nil)

	if got := l.Current().Kind; got != StateInactive {
		t.Fatalf("expected Inactive initially, got %s", got)
	}

	if err := l.BeginPreparing(42); err != nil {
		t.Fatalf("BeginPreparing: %v", err)
	}
	if got := l.Current().Kind; got != StatePreparing {
		t.Fatalf("expected Preparing, got %s", got)
	}

	// A second prepare while already Preparing must be rejected.
	if err := l.BeginPreparing(43); err == nil {
		t.Fatal("expected a second concurrent BeginPreparing to fail")
	}

	if err := l.BeginRunning(7); err != nil {
		t.Fatalf("BeginRunning: %v", err)
	}
	if got := l.Current().Kind; got != StateRunning {
		t.Fatalf("expected Running, got %s", got)
	}

	// Preparing can never be re-entered without an intervening terminal
	// state (spec.md §8's launch state monotonicity property).
	if err := l.BeginPreparing(44); err == nil {
		t.Fatal("expected BeginPreparing from Running to fail")
	}

	l.EndRunning()
	if got := l.Current().Kind; got != StateInactive {
		t.Fatalf("expected Inactive after EndRunning, got %s", got)
	}
	if l.Current().FailedTask != nil {
		t.Fatal("expected no failed task after a clean run")
	}
}

func TestLifecycle_PrepareFailedCarriesError(t *testing.T) {
	l := New(1, nil)
	if err := l.BeginPreparing(1); err != nil {
		t.Fatalf("BeginPreparing: %v", err)
	}

	sentinel := context.DeadlineExceeded
	l.PrepareFailed(sentinel)

	state := l.Current()
	if state.Kind != StateInactive {
		t.Fatalf("expected Inactive after PrepareFailed, got %s", state.Kind)
	}
	if state.FailedTask != sentinel {
		t.Fatalf("expected FailedTask to carry the failure, got %v", state.FailedTask)
	}

	// A fresh prepare is allowed once the failed task is effectively
	// dismissed by starting a new one.
	if err := l.BeginPreparing(2); err != nil {
		t.Fatalf("expected BeginPreparing to succeed after a failed prepare: %v", err)
	}
}

func TestLifecycle_PrepareSucceededNoAccount(t *testing.T) {
	l := New(1, nil)
	if err := l.BeginPreparing(1); err != nil {
		t.Fatalf("BeginPreparing: %v", err)
	}
	if err := l.PrepareSucceededNoAccount(); err != nil {
		t.Fatalf("PrepareSucceededNoAccount: %v", err)
	}
	state := l.Current()
	if state.Kind != StateInactive {
		t.Fatalf("expected Inactive, got %s", state.Kind)
	}
	if state.FailedTask != nil {
		t.Fatal("expected no failed task on the no-account success path")
	}
}

func TestLifecycle_BeginRunning_RejectsFromInactive(t *testing.T) {
	l := New(1, nil)
	if err := l.BeginRunning(1); err == nil {
		t.Fatal("expected BeginRunning to fail from Inactive")
	}
}

func TestLifecycle_BeginDeleting_RejectsWhileRunning(t *testing.T) {
	l := New(1, nil)
	if err := l.BeginPreparing(1); err != nil {
		t.Fatalf("BeginPreparing: %v", err)
	}
	if err := l.BeginRunning(1); err != nil {
		t.Fatalf("BeginRunning: %v", err)
	}
	if err := l.BeginDeleting(); err == nil {
		t.Fatal("expected BeginDeleting to fail while Running")
	}

	l.EndRunning()
	if err := l.BeginDeleting(); err != nil {
		t.Fatalf("expected BeginDeleting to succeed once Inactive: %v", err)
	}
	if got := l.Current().Kind; got != StateDeleting {
		t.Fatalf("expected Deleting, got %s", got)
	}
}

func TestLifecycle_RunSession_CapturesOutputAndExitCode(t *testing.T) {
	l := New(1, nil)
	if err := l.BeginPreparing(1); err != nil {
		t.Fatalf("BeginPreparing: %v", err)
	}
	if err := l.BeginRunning(1); err != nil {
		t.Fatalf("BeginRunning: %v", err)
	}

	cmd := exec.Command("sh", "-c", "echo hello; echo world 1>&2; exit 3")
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}

	proc := &launch.Process{Cmd: cmd, Stdout: stdout, Stderr: stderr}

	done := make(chan error, 1)
	go func() { done <- l.RunSession(context.Background(), proc) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunSession did not return in time")
	}

	if got := l.Current().Kind; got != StateInactive {
		t.Fatalf("expected Inactive after the process exits, got %s", got)
	}

	entries := l.Log().Entries()
	if len(entries) == 0 {
		t.Fatal("expected captured log entries")
	}
	last := entries[len(entries)-1]
	if last.Stream != "system" {
		t.Fatalf("expected the final entry to be a system exit-code entry, got %q", last.Stream)
	}
	if !l.Log().Closed() {
		t.Fatal("expected the log buffer to be closed after the process exits")
	}
}

func TestLifecycle_Kill_IsNoOpWhenNotRunning(t *testing.T) {
	l := New(1, nil)
	l.Kill() // must not panic
	if got := l.Current().Kind; got != StateInactive {
		t.Fatalf("expected Inactive, got %s", got)
	}
}
