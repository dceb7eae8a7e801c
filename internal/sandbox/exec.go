// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrRuntimeNotFound is returned when the container runtime binary is
// not installed.
var ErrRuntimeNotFound = errors.New("container runtime not found")

// ExecResult is the outcome of one subprocess invocation.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration

	// TimedOut marks that the per-stage deadline killed the process.
	// A timed-out stage is a failed stage, not an orchestrator error.
	TimedOut bool
}

// Success reports a clean zero exit.
func (r ExecResult) Success() bool { return r.ExitCode == 0 && !r.TimedOut }

// Output returns the combined stdout and stderr text.
func (r ExecResult) Output() string {
	if r.Stdout == "" {
		return r.Stderr
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	return r.Stdout + "\n" + r.Stderr
}

// CommandRunner abstracts subprocess execution so the orchestrator can
// be driven by a fake in tests.
type CommandRunner interface {
	// Run executes name with args under a timeout. A non-zero exit or a
	// timeout is reported through the result; the error return is
	// reserved for failures to execute at all (missing binary,
	// cancelled parent context).
	Run(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (ExecResult, error)
}

type execRunner struct{}

// NewExecRunner returns the real exec-backed CommandRunner.
func NewExecRunner() CommandRunner { return execRunner{} }

func (execRunner) Run(ctx context.Context, timeout time.Duration, dir, name string, args ...string) (ExecResult, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if cmdCtx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return res, fmt.Errorf("%w: %s", ErrRuntimeNotFound, name)
		}
		return res, fmt.Errorf("run %s: %w", name, err)
	}
	return res, nil
}

// StageError carries the context of a failed sandbox stage.
type StageError struct {
	Stage    string
	ExitCode int
	Log      string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("sandbox stage %s failed (exit %d)", e.Stage, e.ExitCode)
}
