// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
)

// errIssuesRemain signals that the run finished but error-severity
// issues remain. main turns it into exit code 1 without reprinting.
var errIssuesRemain = errors.New("unresolved errors remain")

// --- Global Command Variables ---
var (
	outputJSON bool
	logDir     string

	analyzeOutput   string
	analyzeLanguage string
	analyzeNoFix    bool

	scanPath        string
	scanComment     bool
	scanSandbox     bool
	scanSandboxOnly bool
	scanWithTest    bool
	scanWorkers     int

	servePort  int
	serveDebug bool

	initOutput string

	watchPath     string
	watchDebounce time.Duration

	rootCmd = &cobra.Command{
		Use:   "rectify",
		Short: "Analyze, fix and validate application and infrastructure code",
		Long: `Rectify statically analyzes source and configuration files across
many languages, applies deterministic fixes with trailing annotations,
and can validate the fixed project inside a container sandbox.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// --- Single File Analysis ---
	analyzeCmd = &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze a single file and write the fixed copy",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze, // Defined in cmd_analyze.go
	}

	// --- Project Scan ---
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Scan a project directory and write a report under .rectify/",
		RunE:  runScan, // Defined in cmd_scan.go
	}

	// --- HTTP Service ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP service",
		RunE:  runServe, // Defined in cmd_serve.go
	}

	// --- Utilities ---
	languagesCmd = &cobra.Command{
		Use:   "languages",
		Short: "List the supported language tags",
		RunE:  runLanguages, // Defined in cmd_languages.go
	}

	initDockerfilesCmd = &cobra.Command{
		Use:   "init-dockerfiles",
		Short: "Write the sandbox Dockerfile templates to a directory",
		RunE:  runInitDockerfiles, // Defined in cmd_init.go
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-scan a project whenever its files change",
		RunE:  runWatch, // Defined in cmd_watch.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false,
		"Emit machine-readable JSON instead of the console summary")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "",
		"Directory to write JSON log files to (disabled when empty)")

	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "",
		"Path for the fixed copy (default <name>_fixed.<ext>)")
	analyzeCmd.Flags().StringVar(&analyzeLanguage, "language", "",
		"Force the language instead of detecting it")
	analyzeCmd.Flags().BoolVar(&analyzeNoFix, "no-fix", false,
		"Report issues only, do not write a fixed copy")

	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanPath, "path", ".",
		"Project directory to scan")
	scanCmd.Flags().BoolVar(&scanComment, "comment", false,
		"Rewrite fixed files in place with trailing FIXED annotations")
	scanCmd.Flags().BoolVar(&scanSandbox, "sandbox", false,
		"Validate the fixed project in a container sandbox")
	scanCmd.Flags().BoolVar(&scanSandboxOnly, "sandbox-only", false,
		"Run the sandbox without rewriting any project file")
	scanCmd.Flags().BoolVar(&scanWithTest, "test", false,
		"Also run the language test suite inside the sandbox")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0,
		"Concurrent file analyses (0 = configured default)")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0,
		"Listen port (0 = configured default)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false,
		"Enable debug logging and Gin debug mode")

	rootCmd.AddCommand(languagesCmd)

	rootCmd.AddCommand(initDockerfilesCmd)
	initDockerfilesCmd.Flags().StringVar(&initOutput, "output", ".",
		"Directory to write Dockerfile.<language> files to")

	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPath, "path", ".",
		"Project directory to watch")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond,
		"Quiet period before a change triggers a re-scan")
}
