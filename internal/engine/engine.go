// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine runs rule packs over content and applies the resulting
// fixes.
//
// The engine owns the analysis loop and nothing else: language detection
// lives in lang, the rules live in rules, and walking a project tree
// lives in scan. An Engine is safe for concurrent use; all per-file
// state is local to Analyze.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rectifyhq/rectify/internal/lang"
	"github.com/rectifyhq/rectify/internal/rules"
	"github.com/rectifyhq/rectify/pkg/logging"
)

// RulePanicCode is the issue code recorded when a rule panics and is
// skipped for the rest of the file.
const RulePanicCode = "ENGINE999"

// Engine analyzes content against a rule registry.
type Engine struct {
	registry *rules.Registry
	log      *logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New builds an Engine over the given registry.
func New(registry *rules.Registry, opts ...Option) *Engine {
	e := &Engine{registry: registry}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.Default()
	}
	return e
}

// Analyze runs the pack for language over content and applies every
// generated fix.
//
// A panicking rule is disabled for the remainder of the file and
// recorded as an ENGINE999 warning; the other rules keep running. The
// input content is never modified, the rewritten text is returned in
// Result.FixedCode.
func (e *Engine) Analyze(content string, language lang.Language, filename string) Result {
	pack := e.registry.Pack(language)
	fctx := rules.NewFileContext()

	res := Result{
		Language:     language,
		Filename:     filename,
		OriginalCode: content,
		FixedCode:    content,
		Timestamp:    time.Now().UTC(),
	}

	if pack.Prepare != nil {
		if err := runProtected(func() { pack.Prepare(content, fctx) }); err != nil {
			e.log.Warn("pack prepare panicked",
				"language", string(language), "file", filename, "panic", err)
			res.Warnings = append(res.Warnings, Issue{
				Line: 1, Column: 1, Code: RulePanicCode,
				Message:  "internal: pack preparation failed, whole-file checks skipped",
				Severity: rules.SeverityWarning,
			})
		}
	}

	lines := strings.Split(content, "\n")
	disabled := make(map[string]bool)
	var candidates []candidate

	for i, text := range lines {
		line := rules.Line{Number: i + 1, Text: text, Total: len(lines)}
		for ri := range pack.Rules {
			rule := &pack.Rules[ri]
			if disabled[rule.ID] {
				continue
			}
			match, err := checkProtected(rule, line, fctx)
			if err != nil {
				disabled[rule.ID] = true
				e.log.Warn("rule panicked, disabled for file",
					"rule", rule.ID, "file", filename, "line", line.Number, "panic", err)
				res.Warnings = append(res.Warnings, Issue{
					Line: line.Number, Column: 1, Code: RulePanicCode,
					Message:  "internal: rule " + rule.ID + " failed and was skipped for this file",
					Severity: rules.SeverityWarning,
				})
				continue
			}
			if match == nil {
				continue
			}
			issue := Issue{
				Line:     line.Number,
				Column:   match.Column,
				Code:     rule.ID,
				Message:  match.Message,
				Severity: rule.Severity,
			}
			if rule.Severity == rules.SeverityError {
				res.Errors = append(res.Errors, issue)
			} else {
				res.Warnings = append(res.Warnings, issue)
			}
			if match.Fix != nil {
				candidates = append(candidates, candidate{
					line: line.Number,
					code: rule.ID,
					spec: *match.Fix,
				})
			}
		}
	}

	res.FixedCode, res.Fixes, res.Unapplied = applyFixes(content, candidates, language.CommentPrefix())

	e.log.Debug("analysis complete",
		"language", string(language), "file", filename,
		"errors", len(res.Errors), "warnings", len(res.Warnings),
		"fixes", len(res.Fixes), "unapplied", res.Unapplied)

	return res
}

// Detect is a convenience wrapper that detects the language first.
func (e *Engine) Detect(content, filename string) Result {
	return e.Analyze(content, lang.Detect(content, filename), filename)
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.v) }

func runProtected(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{v: r}
		}
	}()
	fn()
	return nil
}

func checkProtected(rule *rules.Rule, line rules.Line, fctx *rules.FileContext) (m *rules.Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = panicError{v: r}
		}
	}()
	return rule.Check(line, fctx), nil
}
