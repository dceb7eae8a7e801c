// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/rectifyhq/rectify/internal/engine"
	"github.com/rectifyhq/rectify/internal/scan"
	"github.com/rectifyhq/rectify/pkg/logging"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow)
	successColor = color.New(color.FgGreen)
	dimColor     = color.New(color.Faint)
)

// configureColor disables colored output for pipes and JSON mode.
func configureColor() {
	if outputJSON {
		color.NoColor = true
		return
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// newLogger builds the command logger, honoring --log-dir.
func newLogger(service string) *logging.Logger {
	level := logging.LevelInfo
	if serveDebug {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: service,
	})
}

// printResultSummary renders a single-file result for the console.
func printResultSummary(res engine.Result) {
	fmt.Printf("%s (%s)\n", res.Filename, res.Language)
	for _, issue := range res.Errors {
		errorColor.Printf("  error  ")
		fmt.Printf("line %-4d %s  %s\n", issue.Line, issue.Code, issue.Message)
	}
	for _, issue := range res.Warnings {
		warnColor.Printf("  warn   ")
		fmt.Printf("line %-4d %s  %s\n", issue.Line, issue.Code, issue.Message)
	}
	for _, fix := range res.Fixes {
		successColor.Printf("  fixed  ")
		fmt.Printf("line %-4d %s  %s\n", fix.Line, fix.Code, fix.Message)
	}
	if len(res.Errors) == 0 && len(res.Warnings) == 0 {
		successColor.Println("  clean")
	}
	if res.Unapplied > 0 {
		dimColor.Printf("  %d fix(es) skipped: content changed since detection\n", res.Unapplied)
	}
}

// printReportSummary renders the project totals for the console.
func printReportSummary(rep *scan.ProjectReport) {
	fmt.Printf("project language: %s, %d file(s)\n", rep.Language, len(rep.Files))
	for _, f := range rep.Files {
		if f.Skipped {
			dimColor.Printf("  skip   %s (%s)\n", f.Path, f.SkipReason)
			continue
		}
		if f.Errors == 0 && f.Warnings == 0 {
			continue
		}
		fmt.Printf("  %-40s %s %s %s\n", f.Path,
			errorColor.Sprintf("%d error(s)", f.Errors),
			warnColor.Sprintf("%d warning(s)", f.Warnings),
			successColor.Sprintf("%d fix(es)", f.Fixes))
	}
	fmt.Printf("totals: %s, %s, %s\n",
		errorColor.Sprintf("%d error(s)", rep.TotalErrors),
		warnColor.Sprintf("%d warning(s)", rep.TotalWarnings),
		successColor.Sprintf("%d fix(es)", rep.TotalFixes))
}
