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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rectifyhq/rectify/internal/scan"
)

// resetCommandState restores the flag globals between executions since
// the cobra tree is shared across tests.
func resetCommandState() {
	outputJSON = false
	logDir = ""
	analyzeOutput = ""
	analyzeLanguage = ""
	analyzeNoFix = false
	scanPath = "."
	scanComment = false
	scanSandbox = false
	scanSandboxOnly = false
	scanWithTest = false
	scanWorkers = 0
	servePort = 0
	serveDebug = false
	initOutput = "."
	watchPath = "."
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	resetCommandState()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestFixedPath(t *testing.T) {
	cases := map[string]string{
		"deploy.sh":        "deploy_fixed.sh",
		"app/main.py":      "app/main_fixed.py",
		"Dockerfile":       "Dockerfile_fixed",
		"config.test.yaml": "config.test_fixed.yaml",
	}
	for in, want := range cases {
		if got := fixedPath(in); got != want {
			t.Errorf("fixedPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAnalyzeCommand(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "deploy.sh")
	if err := os.WriteFile(script, []byte("#!/bin/bash\ncp $SRC /backup\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "analyze", script); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	fixed, err := os.ReadFile(filepath.Join(dir, "deploy_fixed.sh"))
	if err != nil {
		t.Fatalf("fixed copy: %v", err)
	}
	if !strings.Contains(string(fixed), `"$SRC"`) {
		t.Errorf("fixed copy = %q", fixed)
	}
}

func TestAnalyzeCommand_ErrorsExitNonzero(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "legacy.py")
	if err := os.WriteFile(source, []byte(`print "hello"`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, "analyze", source)
	if !errors.Is(err, errIssuesRemain) {
		t.Fatalf("err = %v, want errIssuesRemain", err)
	}

	fixed, readErr := os.ReadFile(filepath.Join(dir, "legacy_fixed.py"))
	if readErr != nil {
		t.Fatalf("fixed copy: %v", readErr)
	}
	if !strings.Contains(string(fixed), `print("hello")`) {
		t.Errorf("fixed copy = %q", fixed)
	}
}

func TestAnalyzeCommand_NoFix(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(script, []byte("echo $A\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "analyze", script, "--no-fix"); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "run_fixed.sh")); !os.IsNotExist(err) {
		t.Error("fixed copy written despite --no-fix")
	}
}

func TestScanCommand(t *testing.T) {
	root := t.TempDir()
	script := filepath.Join(root, "deploy.sh")
	original := "#!/bin/bash\necho $TARGET\n"
	if err := os.WriteFile(script, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "scan", "--path", root); err != nil {
		t.Fatalf("scan: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, ".rectify", "report.json"))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var report scan.ProjectReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.TotalFixes == 0 {
		t.Error("report has no fixes")
	}

	// Without --comment the original stays untouched.
	got, err := os.ReadFile(script)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != original {
		t.Errorf("original rewritten without --comment: %q", got)
	}
}

// A second --comment run over already fixed files must change nothing.
func TestScanCommand_CommentIdempotent(t *testing.T) {
	root := t.TempDir()
	script := filepath.Join(root, "deploy.sh")
	if err := os.WriteFile(script, []byte("#!/bin/bash\necho $TARGET\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "scan", "--path", root, "--comment"); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	afterFirst, err := os.ReadFile(script)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(afterFirst), `"$TARGET"`) {
		t.Fatalf("first run did not fix: %q", afterFirst)
	}

	if err := execute(t, "scan", "--path", root, "--comment"); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	afterSecond, err := os.ReadFile(script)
	if err != nil {
		t.Fatal(err)
	}
	if string(afterSecond) != string(afterFirst) {
		t.Errorf("second run changed the file:\nfirst:  %q\nsecond: %q", afterFirst, afterSecond)
	}

	data, err := os.ReadFile(filepath.Join(root, ".rectify", "report.json"))
	if err != nil {
		t.Fatal(err)
	}
	var report scan.ProjectReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatal(err)
	}
	if report.TotalFixes != 0 {
		t.Errorf("second run reported %d fixes, want 0", report.TotalFixes)
	}
}

func TestInitDockerfilesCommand(t *testing.T) {
	dir := t.TempDir()
	if err := execute(t, "init-dockerfiles", "--output", dir); err != nil {
		t.Fatalf("init-dockerfiles: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Dockerfile.python")); err != nil {
		t.Errorf("missing python template: %v", err)
	}
}

func TestLanguagesCommand(t *testing.T) {
	if err := execute(t, "languages"); err != nil {
		t.Fatalf("languages: %v", err)
	}
}
