// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rectifyhq/rectify/internal/engine"
	"github.com/rectifyhq/rectify/internal/lang"
)

// ErrReportWrite wraps failures to persist the project report. Report
// persistence is part of the scan contract, so callers treat this as
// fatal rather than cosmetic.
var ErrReportWrite = errors.New("write project report")

// FileReport is the per-file entry of the project report.
type FileReport struct {
	Path       string        `json:"path"`
	Language   lang.Language `json:"language,omitempty"`
	Errors     int           `json:"errors"`
	Warnings   int           `json:"warnings"`
	Fixes      int           `json:"fixes"`
	Skipped    bool          `json:"skipped,omitempty"`
	SkipReason string        `json:"skip_reason,omitempty"`

	ErrorItems []engine.Issue `json:"error_items,omitempty"`
	WarnItems  []engine.Issue `json:"warning_items,omitempty"`
	FixItems   []engine.Fix   `json:"fix_items,omitempty"`
}

// ProjectReport summarizes one scan of a project tree.
//
// The report is deterministic: files sorted by path, totals derived
// from the entries, no timestamps. Scanning the same tree twice yields
// byte-identical reports.
type ProjectReport struct {
	Language      lang.Language `json:"language"`
	TotalErrors   int           `json:"total_errors"`
	TotalWarnings int           `json:"total_warnings"`
	TotalFixes    int           `json:"total_fixes"`
	Files         []FileReport  `json:"files"`
}

// ReportBuilder accumulates scan output into a ProjectReport.
type ReportBuilder struct {
	// IncludeDetails adds per-issue detail to each file entry.
	IncludeDetails bool
}

// Build assembles the report from analysis results and skipped files.
// projectLang is the project-level language classification (see
// sandbox.DetectProjectLanguage), independent of per-file detection.
func (b *ReportBuilder) Build(projectLang lang.Language, results []FileResult, skipped []SkippedFile) *ProjectReport {
	rep := &ProjectReport{Language: projectLang}

	for _, fr := range results {
		entry := FileReport{Path: fr.Path}
		if fr.Skipped {
			entry.Skipped = true
			entry.SkipReason = fr.SkipReason
		} else {
			entry.Language = fr.Result.Language
			entry.Errors = len(fr.Result.Errors)
			entry.Warnings = len(fr.Result.Warnings)
			entry.Fixes = len(fr.Result.Fixes)
			if b.IncludeDetails {
				entry.ErrorItems = fr.Result.Errors
				entry.WarnItems = fr.Result.Warnings
				entry.FixItems = fr.Result.Fixes
			}
			rep.TotalErrors += entry.Errors
			rep.TotalWarnings += entry.Warnings
			rep.TotalFixes += entry.Fixes
		}
		rep.Files = append(rep.Files, entry)
	}
	for _, sk := range skipped {
		rep.Files = append(rep.Files, FileReport{
			Path:       sk.Path,
			Skipped:    true,
			SkipReason: sk.Reason,
		})
	}

	sort.Slice(rep.Files, func(i, j int) bool {
		return rep.Files[i].Path < rep.Files[j].Path
	})
	return rep
}

// HasErrors reports whether any file carried an error-severity issue.
func (r *ProjectReport) HasErrors() bool { return r.TotalErrors > 0 }

// WriteReport persists the report as indented JSON, creating parent
// directories as needed.
func WriteReport(path string, rep *ProjectReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrReportWrite, path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrReportWrite, path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o640); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrReportWrite, path, err)
	}
	return nil
}
