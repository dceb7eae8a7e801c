// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"time"

	"github.com/rectifyhq/rectify/internal/lang"
	"github.com/rectifyhq/rectify/internal/rules"
)

// Issue is one finding, positioned in the original (pre-fix) content.
type Issue struct {
	Line     int            `json:"line"`
	Column   int            `json:"column"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Severity rules.Severity `json:"severity"`
}

// Fix records one applied rewrite.
type Fix struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Before  string `json:"before"`
	After   string `json:"after"`
}

// Result is the complete outcome of analyzing one piece of content.
//
// OriginalCode is always byte-identical to the input; FixedCode carries
// every applied rewrite plus trailing annotations. Issues keep their
// original line numbers even after fixing, since rewrites never insert
// or remove lines.
type Result struct {
	Language     lang.Language `json:"language"`
	Filename     string        `json:"filename,omitempty"`
	OriginalCode string        `json:"original_code"`
	FixedCode    string        `json:"fixed_code"`
	Errors       []Issue       `json:"errors"`
	Warnings     []Issue       `json:"warnings"`
	Fixes        []Fix         `json:"fixes"`

	// Unapplied counts fixes that were proposed but skipped because
	// their target text was no longer present at apply time.
	Unapplied int `json:"unapplied"`

	Timestamp time.Time `json:"timestamp"`
}

// HasErrors reports whether any error-severity issue was found.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// Changed reports whether fixing altered the content.
func (r *Result) Changed() bool { return r.FixedCode != r.OriginalCode }
