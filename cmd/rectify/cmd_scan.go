// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rectifyhq/rectify/internal/config"
	"github.com/rectifyhq/rectify/internal/engine"
	"github.com/rectifyhq/rectify/internal/rules"
	"github.com/rectifyhq/rectify/internal/sandbox"
	"github.com/rectifyhq/rectify/internal/scan"
	"github.com/rectifyhq/rectify/pkg/logging"
)

// runScan scans a project directory, persists the report and
// optionally rewrites fixed files or validates them in the sandbox.
func runScan(cmd *cobra.Command, args []string) error {
	configureColor()
	log := newLogger("cli")
	defer log.Close()

	root, err := filepath.Abs(scanPath)
	if err != nil {
		return fmt.Errorf("resolve scan path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("scan path %s is not a directory", root)
	}

	cfg, err := config.FromDir(root)
	if err != nil {
		return err
	}
	if scanWorkers > 0 {
		cfg.Workers = scanWorkers
	}

	report, results, err := executeScan(cmd.Context(), root, cfg, log)
	if err != nil {
		return err
	}

	reportPath := filepath.Join(root, sandbox.WorkDirName, "report.json")
	if err := scan.WriteReport(reportPath, report); err != nil {
		return err
	}
	log.Info("report written", "path", reportPath)

	if scanComment && !scanSandboxOnly {
		n, err := scan.WriteFixed(root, results, log)
		if err != nil {
			return fmt.Errorf("rewrite fixed files: %w", err)
		}
		log.Info("files rewritten in place", "count", n)
	}

	sandboxFailed := false
	if scanSandbox || scanSandboxOnly || scanWithTest {
		status, err := runSandbox(cmd.Context(), root, cfg, results, log)
		if err != nil {
			return err
		}
		sandboxFailed = status.FailedStage != ""
	}

	if outputJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		fmt.Println(string(out))
	} else {
		printReportSummary(report)
	}

	if report.HasErrors() || sandboxFailed {
		return errIssuesRemain
	}
	return nil
}

// executeScan walks root and analyzes every eligible file.
func executeScan(ctx context.Context, root string, cfg *config.Config, log *logging.Logger) (*scan.ProjectReport, []scan.FileResult, error) {
	scanner := scan.NewScanner(
		scan.WithExclusions(cfg.Exclusions...),
		scan.WithScanLogger(log))
	entries, skipped, err := scanner.Walk(root)
	if err != nil {
		return nil, nil, fmt.Errorf("walk %s: %w", root, err)
	}

	eng := engine.New(rules.DefaultRegistry(), engine.WithLogger(log))
	runner := scan.NewRunner(eng,
		scan.WithWorkers(cfg.Workers),
		scan.WithRunLogger(log))
	results, err := runner.Run(ctx, entries)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze %s: %w", root, err)
	}

	projectLang, _ := sandbox.DetectProjectLanguage(root)
	builder := &scan.ReportBuilder{IncludeDetails: outputJSON}
	return builder.Build(projectLang, results, skipped), results, nil
}

// runSandbox stages the fixed files and executes the container
// pipeline. The returned status always exists; stage failures live in
// it, the error covers infrastructure problems only.
func runSandbox(ctx context.Context, root string, cfg *config.Config, results []scan.FileResult, log *logging.Logger) (*sandbox.Status, error) {
	orch := sandbox.NewOrchestrator(root,
		sandbox.WithSandboxConfig(cfg.Sandbox),
		sandbox.WithTestStage(scanWithTest),
		sandbox.WithSandboxLogger(log))
	if err := orch.GenerateArtifacts(); err != nil {
		return nil, fmt.Errorf("sandbox artifacts: %w", err)
	}

	fixed := make(map[string]string)
	for _, r := range results {
		if !r.Skipped && r.Result.Changed() {
			fixed[r.Path] = r.Result.FixedCode
		}
	}
	if err := orch.StageFixedFiles(fixed); err != nil {
		return nil, fmt.Errorf("stage fixed files: %w", err)
	}

	status, err := orch.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("sandbox run: %w", err)
	}

	if !outputJSON {
		if status.FailedStage == "" {
			successColor.Printf("sandbox: build ok, run ok")
			if status.TestRequested {
				successColor.Printf(", test ok")
			}
			fmt.Println()
		} else {
			errorColor.Printf("sandbox: %s stage failed\n", status.FailedStage)
		}
		dimColor.Printf("  status: %s\n", filepath.Join(orch.WorkDir(), sandbox.StatusFileName))
	}
	return status, nil
}
