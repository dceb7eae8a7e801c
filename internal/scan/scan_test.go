// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scan

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rectifyhq/rectify/internal/engine"
	"github.com/rectifyhq/rectify/internal/lang"
	"github.com/rectifyhq/rectify/internal/rules"
)

// writeTree lays out a small project for scan tests.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestScanner_Walk(t *testing.T) {
	root := writeTree(t, map[string]string{
		"deploy.sh":               "#!/bin/bash\necho ok\n",
		"app/main.py":             "print('ok')\n",
		"node_modules/x/index.js": "var x = 1\n",
		".git/config":             "[core]\n",
		"venv/lib/site.py":        "x = 1\n",
		".hidden":                 "secret\n",
		".gitlab-ci.yml":          "build:\n  script: make\n",
		"zz_last.sh":              "echo z\n",
	})

	entries, skipped, err := NewScanner().Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	want := []string{".gitlab-ci.yml", "app/main.py", "deploy.sh", "zz_last.sh"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
	if !sort.StringsAreSorted(paths) {
		t.Errorf("walk order not lexicographic: %v", paths)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}
}

func TestScanner_ExtraExclusions(t *testing.T) {
	root := writeTree(t, map[string]string{
		"keep.sh":          "echo keep\n",
		"generated/gen.sh": "echo gen\n",
		"app.min.js":       "var a=1\n",
	})

	s := NewScanner(WithExclusions("generated", "*.min.js"))
	entries, _, err := s.Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "keep.sh" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestScanner_OversizeRecorded(t *testing.T) {
	root := writeTree(t, map[string]string{
		"big.sh":   strings.Repeat("echo x\n", 100),
		"small.sh": "echo ok\n",
	})

	s := NewScanner(WithMaxFileSize(64))
	entries, skipped, err := s.Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "small.sh" {
		t.Errorf("entries = %+v", entries)
	}
	if len(skipped) != 1 || skipped[0].Reason != SkipOversize {
		t.Errorf("skipped = %+v", skipped)
	}
}

func TestRunner_OrderAndDeterminism(t *testing.T) {
	files := map[string]string{
		"a.sh":     "rm -rf $DIR\n",
		"b.py":     "print \"x\"\n",
		"c/d.sh":   "now=`date`\n",
		"c/e.py":   "if x == None:\n    pass\n",
		"data.bin": "\x00\x01\x02binary",
	}
	root := writeTree(t, files)

	scanner := NewScanner()
	entries, _, err := scanner.Walk(root)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	runner := NewRunner(engine.New(rules.DefaultRegistry()), WithWorkers(3))

	first, err := runner.Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := runner.Run(context.Background(), entries)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(first) != len(entries) {
		t.Fatalf("results = %d, want %d", len(first), len(entries))
	}
	for i := range first {
		if first[i].Path != entries[i].Path {
			t.Errorf("result %d path %q, want scanner order %q", i, first[i].Path, entries[i].Path)
		}
		if first[i].Path != second[i].Path ||
			first[i].Result.FixedCode != second[i].Result.FixedCode ||
			len(first[i].Result.Warnings) != len(second[i].Result.Warnings) {
			t.Errorf("run not deterministic at %s", first[i].Path)
		}
	}

	for _, fr := range first {
		if fr.Path == "data.bin" {
			if !fr.Skipped || fr.SkipReason != SkipBinary {
				t.Errorf("binary file not skipped: %+v", fr)
			}
		}
	}
}

func TestWriteFixed(t *testing.T) {
	root := writeTree(t, map[string]string{
		"fix_me.sh": "rm -rf $DIR\n",
		"clean.sh":  "echo ok\n",
	})

	scanner := NewScanner()
	entries, _, err := scanner.Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(engine.New(rules.DefaultRegistry()))
	results, err := runner.Run(context.Background(), entries)
	if err != nil {
		t.Fatal(err)
	}

	written, err := WriteFixed(root, results, nil)
	if err != nil {
		t.Fatalf("WriteFixed: %v", err)
	}
	if written != 1 {
		t.Errorf("written = %d, want 1", written)
	}

	fixed, err := os.ReadFile(filepath.Join(root, "fix_me.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(fixed), `"$DIR"`) {
		t.Errorf("file not rewritten: %q", fixed)
	}
	clean, err := os.ReadFile(filepath.Join(root, "clean.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if string(clean) != "echo ok\n" {
		t.Errorf("untouched file modified: %q", clean)
	}
}

func TestReportBuilder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.py": "print \"x\"\n",
		"b.sh": "rm -rf $DIR\n",
	})
	scanner := NewScanner()
	entries, skipped, err := scanner.Walk(root)
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(engine.New(rules.DefaultRegistry()))
	results, err := runner.Run(context.Background(), entries)
	if err != nil {
		t.Fatal(err)
	}

	b := &ReportBuilder{}
	rep := b.Build(lang.LangPython, results, skipped)

	if rep.Language != lang.LangPython {
		t.Errorf("Language = %q", rep.Language)
	}
	if rep.TotalErrors != 1 {
		t.Errorf("TotalErrors = %d, want 1 (PY001)", rep.TotalErrors)
	}
	if rep.TotalFixes != 2 {
		t.Errorf("TotalFixes = %d, want 2", rep.TotalFixes)
	}
	if len(rep.Files) != 2 || rep.Files[0].Path != "a.py" || rep.Files[1].Path != "b.sh" {
		t.Errorf("Files = %+v", rep.Files)
	}

	t.Run("serialization is deterministic", func(t *testing.T) {
		one, err := json.Marshal(rep)
		if err != nil {
			t.Fatal(err)
		}
		two, err := json.Marshal(b.Build(lang.LangPython, results, skipped))
		if err != nil {
			t.Fatal(err)
		}
		if string(one) != string(two) {
			t.Error("report JSON differs between builds of the same scan")
		}
	})

	t.Run("write and read back", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".rectify", "report.json")
		if err := WriteReport(path, rep); err != nil {
			t.Fatalf("WriteReport: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var back ProjectReport
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("report not valid JSON: %v", err)
		}
		if back.TotalErrors != rep.TotalErrors || len(back.Files) != len(rep.Files) {
			t.Errorf("round trip mismatch: %+v", back)
		}
	})
}
