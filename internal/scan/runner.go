// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/rectifyhq/rectify/internal/engine"
	"github.com/rectifyhq/rectify/internal/lang"
	"github.com/rectifyhq/rectify/pkg/logging"
)

// FileResult pairs a scanned file with its analysis outcome.
type FileResult struct {
	Path       string
	Result     engine.Result
	Skipped    bool
	SkipReason string
}

// Runner analyzes the files a Scanner selected, bounded by a worker
// limit.
type Runner struct {
	engine  *engine.Engine
	workers int
	log     *logging.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithWorkers bounds concurrent file analyses.
func WithWorkers(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithRunLogger sets the runner logger.
func WithRunLogger(log *logging.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// NewRunner builds a Runner over an engine.
func NewRunner(e *engine.Engine, opts ...RunnerOption) *Runner {
	r := &Runner{engine: e, workers: 4}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logging.Default()
	}
	return r
}

// Run analyzes every entry. Results come back indexed by entry order,
// so the output order is the scanner's lexicographic order no matter
// how the workers interleave. Binary and unreadable files become
// skipped results rather than failures; only context cancellation
// aborts the run.
func (r *Runner) Run(ctx context.Context, entries []FileEntry) ([]FileResult, error) {
	results := make([]FileResult, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = r.analyzeOne(entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan aborted: %w", err)
	}
	return results, nil
}

func (r *Runner) analyzeOne(entry FileEntry) FileResult {
	data, err := os.ReadFile(entry.AbsPath)
	if err != nil {
		r.log.Warn("skipping unreadable file", "path", entry.Path, "error", err)
		return FileResult{Path: entry.Path, Skipped: true, SkipReason: SkipUnread}
	}
	if IsBinary(data) {
		return FileResult{Path: entry.Path, Skipped: true, SkipReason: SkipBinary}
	}
	content := string(data)
	language := lang.Detect(content, entry.Path)
	return FileResult{
		Path:   entry.Path,
		Result: r.engine.Analyze(content, language, entry.Path),
	}
}

// WriteFixed rewrites changed files in place under root.
//
// Only files whose analysis applied at least one fix are touched; the
// scan itself never mutates the tree. The caller is expected to be the
// only writer of the project during the rewrite.
func WriteFixed(root string, results []FileResult, log *logging.Logger) (int, error) {
	if log == nil {
		log = logging.Default()
	}
	written := 0
	for _, fr := range results {
		if fr.Skipped || !fr.Result.Changed() {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(fr.Path))
		info, err := os.Stat(target)
		if err != nil {
			return written, fmt.Errorf("stat %s: %w", fr.Path, err)
		}
		if err := os.WriteFile(target, []byte(fr.Result.FixedCode), info.Mode().Perm()); err != nil {
			return written, fmt.Errorf("write fixed %s: %w", fr.Path, err)
		}
		log.Info("rewrote file in place", "path", fr.Path, "fixes", len(fr.Result.Fixes))
		written++
	}
	return written, nil
}
