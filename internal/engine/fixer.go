// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rectifyhq/rectify/internal/rules"
)

// candidate is a fix proposed during the rule pass, in discovery order:
// ascending line number, pack rule order within a line. That order is
// the conflict-resolution priority.
type candidate struct {
	line int
	code string
	spec rules.FixSpec
}

// annotationMarker separates the rewritten code from the trailing note.
const annotationMarker = "FIXED:"

// applyFixes runs the two-phase fix pass.
//
// Phase one applies each candidate as a substring replacement on its
// own target line only, in priority order against the current (already
// partly fixed) line. A candidate whose Before substring is no longer
// present on that line has been invalidated by an earlier fix or a
// previous run; it is skipped and counted, never force-applied. Lines
// the rules never flagged are left byte-for-byte intact even when they
// happen to contain the same Before text.
//
// Phase two appends one "  <prefix> FIXED: <messages>" annotation per
// rewritten line, walking lines in descending order. A line already
// carrying the exact annotation is left alone, which makes
// fix(fix(x)) == fix(x). An empty comment prefix disables annotation.
func applyFixes(content string, candidates []candidate, prefix string) (string, []Fix, int) {
	lines := strings.Split(content, "\n")
	unapplied := 0
	var applied []Fix

	// Two rules can propose the identical rewrite for the same line;
	// replaying it would wrap the rewritten text a second time. The
	// second proposal still contributes its message to the annotation.
	done := make(map[string]bool)

	for _, c := range candidates {
		if c.spec.Before == "" || c.spec.Before == c.spec.After {
			unapplied++
			continue
		}
		if c.line < 1 || c.line > len(lines) {
			unapplied++
			continue
		}
		key := strconv.Itoa(c.line) + "\x00" + c.spec.Before + "\x00" + c.spec.After
		if !done[key] {
			if !strings.Contains(lines[c.line-1], c.spec.Before) {
				unapplied++
				continue
			}
			lines[c.line-1] = strings.ReplaceAll(lines[c.line-1], c.spec.Before, c.spec.After)
			done[key] = true
		}
		applied = append(applied, Fix{
			Line:    c.line,
			Code:    c.code,
			Message: c.spec.Message,
			Before:  c.spec.Before,
			After:   c.spec.After,
		})
	}

	current := strings.Join(lines, "\n")
	if len(applied) == 0 {
		return current, applied, unapplied
	}
	if prefix == "" {
		return current, applied, unapplied
	}

	// Collect annotation text per line, preserving apply order of the
	// messages within a line.
	notes := make(map[int][]string)
	for _, f := range applied {
		notes[f.Line] = append(notes[f.Line], f.Message)
	}
	lineNums := make([]int, 0, len(notes))
	for n := range notes {
		lineNums = append(lineNums, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(lineNums)))

	for _, n := range lineNums {
		if n < 1 || n > len(lines) {
			continue
		}
		annotation := "  " + prefix + " " + annotationMarker + " " + strings.Join(notes[n], "; ")
		if strings.HasSuffix(lines[n-1], annotation) {
			continue
		}
		lines[n-1] += annotation
	}
	return strings.Join(lines, "\n"), applied, unapplied
}
