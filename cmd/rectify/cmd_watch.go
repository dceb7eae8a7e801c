// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/rectifyhq/rectify/internal/config"
	"github.com/rectifyhq/rectify/internal/sandbox"
	"github.com/rectifyhq/rectify/internal/scan"
	"github.com/rectifyhq/rectify/pkg/logging"
)

// runWatch re-scans the project whenever a watched file changes.
// Events are debounced so a burst of writes triggers one scan.
func runWatch(cmd *cobra.Command, args []string) error {
	configureColor()
	log := newLogger("cli")
	defer log.Close()

	root, err := filepath.Abs(watchPath)
	if err != nil {
		return fmt.Errorf("resolve watch path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("watch path %s is not a directory", root)
	}

	cfg, err := config.FromDir(root)
	if err != nil {
		return err
	}
	if scanWorkers > 0 {
		cfg.Workers = scanWorkers
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	exclusions := append(append([]string(nil), scan.DefaultExclusions...), cfg.Exclusions...)
	if err := addWatchDirs(watcher, root, exclusions); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial scan before the first change arrives.
	watchScan(ctx, root, cfg, log)

	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	log.Info("watching for changes", "root", root)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event, root) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if !watchExcluded(filepath.Base(event.Name), exclusions) {
						_ = watcher.Add(event.Name)
					}
				}
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			watchScan(ctx, root, cfg, log)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}

// relevantEvent drops chmod noise and everything under the sandbox
// directory, whose artifacts would otherwise re-trigger the scan that
// wrote them.
func relevantEvent(event fsnotify.Event, root string) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == sandbox.WorkDirName || strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}

// watchScan runs one scan cycle; failures are logged, not fatal, so a
// transient error does not kill the watch loop.
func watchScan(ctx context.Context, root string, cfg *config.Config, log *logging.Logger) {
	report, _, err := executeScan(ctx, root, cfg, log)
	if err != nil {
		log.Error("scan failed", "error", err)
		return
	}
	reportPath := filepath.Join(root, sandbox.WorkDirName, "report.json")
	if err := scan.WriteReport(reportPath, report); err != nil {
		log.Error("report write failed", "error", err)
		return
	}
	fmt.Printf("[%s] ", time.Now().Format("15:04:05"))
	printReportSummary(report)
}

func addWatchDirs(watcher *fsnotify.Watcher, root string, exclusions []string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && (strings.HasPrefix(name, ".") || watchExcluded(name, exclusions)) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func watchExcluded(name string, exclusions []string) bool {
	for _, pattern := range exclusions {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
