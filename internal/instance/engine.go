package instance

import (
	"context"
	"fmt"

	"github.com/quasar/mclauncher-core/internal/config"
	"github.com/quasar/mclauncher-core/internal/core"
	"github.com/quasar/mclauncher-core/internal/launch"
	"github.com/quasar/mclauncher-core/internal/prepare"
)

// Engine is the Instance Lifecycle Engine (spec.md §4.3, §2's control
// flow): it drives one instance's Lifecycle state machine by running the
// Prepare Pipeline and, on success, composing and spawning the game
// process. A user action (launch) is exactly a call to Prepare followed
// by Launch.
type Engine struct {
	lifecycle  *Lifecycle
	pipeline   *prepare.Pipeline
	nextTaskID func() int64
}

// NewEngine creates an Engine for one instance, wrapping a fresh Lifecycle
// around the given prepare Pipeline. nextTaskID mints task/log ids; the
// caller owns id allocation (e.g. a database sequence) since this package
// has no persistence of its own.
func NewEngine(instanceID int64, persist PersistFunc, pipeline *prepare.Pipeline, nextTaskID func() int64) *Engine {
	return &Engine{
		lifecycle:  New(instanceID, persist),
		pipeline:   pipeline,
		nextTaskID: nextTaskID,
	}
}

// Lifecycle exposes the underlying state machine for callers that need to
// observe state (e.g. an instance listing) without driving it.
func (e *Engine) Lifecycle() *Lifecycle {
	return e.lifecycle
}

// Prepare transitions Inactive -> Preparing and runs the Prepare Pipeline
// to completion. On failure the lifecycle lands on
// Inactive{failed_task: Some(id)}; a caller may then Dismiss the
// underlying task and retry. On success the lifecycle remains Preparing
// until the caller invokes Launch (or PrepareSucceededNoAccount via
// Launch with a nil session), per spec.md §4.3's three-way Preparing exit.
func (e *Engine) Prepare(ctx context.Context, inst *core.Instance) (*prepare.Result, error) {
	taskID := e.nextTaskID()
	if err := e.lifecycle.BeginPreparing(taskID); err != nil {
		return nil, err
	}

	t := prepare.NewTask(ctx, taskID, inst.Shortpath)
	result, err := e.pipeline.Run(ctx, t, inst)
	if err != nil {
		e.lifecycle.PrepareFailed(err)
		return nil, err
	}
	return result, nil
}

// Launch composes the JVM command line from a completed Prepare result
// and spawns the game process, transitioning Preparing -> Running. A nil
// session (no account to launch with) instead takes the "no account"
// branch straight to Inactive without spawning anything. The running
// session is driven to completion (log capture, playtime persistence, and
// the final Running -> Inactive transition) in a background goroutine;
// Launch itself returns as soon as the process has started.
func (e *Engine) Launch(ctx context.Context, inst *core.Instance, result *prepare.Result, cfg *config.Config, session *launch.SessionInfo, features core.Features) error {
	if session == nil {
		return e.lifecycle.PrepareSucceededNoAccount()
	}

	composer := launch.NewComposer(cfg, inst, result.Version, *session, features)
	args := composer.BuildArguments()

	proc, err := launch.Spawn(ctx, result.JavaPath, args, inst)
	if err != nil {
		e.lifecycle.PrepareFailed(err)
		return fmt.Errorf("spawning game process: %w", err)
	}

	logID := e.nextTaskID()
	if err := e.lifecycle.BeginRunning(logID); err != nil {
		_ = proc.Cmd.Process.Kill()
		return err
	}

	go func() {
		_ = e.lifecycle.RunSession(ctx, proc)
	}()
	return nil
}
