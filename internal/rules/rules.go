// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rules defines the rule model and the per-language rule packs.
//
// A rule pack is an ordered set of stateless rules for one language.
// Packs are plain data: constructed once by DefaultRegistry at startup,
// shared read-only across all analyses, and never mutated per run.
// Tests that need isolation build their own Registry from individual
// packs instead of touching any process-wide state.
package rules

import (
	"fmt"
	"sort"

	"github.com/rectifyhq/rectify/internal/lang"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity represents the severity level of an issue.
type Severity int

const (
	// SeverityWarning marks issues that should be noted but do not make
	// the run fail.
	SeverityWarning Severity = iota

	// SeverityError marks issues that cause a nonzero exit code.
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON serializes the severity as its string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the string form back into a Severity.
func (s *Severity) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"warning"`:
		*s = SeverityWarning
	case `"error"`:
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %s", data)
	}
	return nil
}

// =============================================================================
// RULE MODEL
// =============================================================================

// Line is one line of the file under analysis, as seen by a rule.
type Line struct {
	// Number is the 1-indexed line number.
	Number int

	// Text is the raw line content, without the trailing newline.
	Text string

	// Total is the number of lines in the file. Lets first/last-line
	// rules (shebang checks) stay stateless.
	Total int
}

// FileContext carries explicit cross-line state for one file.
//
// Rules that must match multi-line constructs (a resources: block in a
// kubernetes manifest) read and update this value; the engine threads
// one fresh FileContext through every line of a file and discards it
// afterwards. Rules never touch engine-wide or process-wide state.
type FileContext struct {
	flags    map[string]bool
	counters map[string]int
}

// NewFileContext returns an empty per-file context.
func NewFileContext() *FileContext {
	return &FileContext{
		flags:    make(map[string]bool),
		counters: make(map[string]int),
	}
}

// Flag reports whether a named flag has been set.
func (c *FileContext) Flag(name string) bool { return c.flags[name] }

// SetFlag sets a named flag.
func (c *FileContext) SetFlag(name string, v bool) { c.flags[name] = v }

// Counter returns a named counter value (zero if unset).
func (c *FileContext) Counter(name string) int { return c.counters[name] }

// AddCounter adds delta to a named counter.
func (c *FileContext) AddCounter(name string, delta int) { c.counters[name] += delta }

// FixSpec is a candidate rewrite produced by a rule together with its
// match.
//
// Before must be the exact substring of the matched line to replace;
// the fixer re-checks its presence at apply time and skips the fix if
// the text has gone stale (double application, overlapping fixes).
type FixSpec struct {
	// Before is the exact substring expected on the target line.
	Before string

	// After is the replacement text.
	After string

	// Message describes the rewrite for the trailing annotation.
	Message string
}

// Match is one finding of a rule on one line.
type Match struct {
	// Column is the 1-indexed column of the finding (0 when unknown).
	Column int

	// Message is the human-readable description.
	Message string

	// Fix is the optional candidate rewrite.
	Fix *FixSpec
}

// Rule is a single detection (and optional fix-generation) unit.
//
// Rules are stateless: Check must derive everything from the line and
// the explicit FileContext. A rule that panics is isolated by the
// engine and skipped for that file only.
type Rule struct {
	// ID is the stable rule code (e.g. "SC2086", "PY001").
	ID string

	// Severity classifies findings of this rule.
	Severity Severity

	// Check inspects one line and returns a finding, or nil.
	Check func(line Line, fctx *FileContext) *Match
}

// Pack is the ordered, immutable rule set for one language.
//
// Order matters: the fixer resolves same-line fix conflicts in pack
// rule order (priority order).
type Pack struct {
	// Language is the tag this pack applies to.
	Language lang.Language

	// Prepare, when non-nil, runs once per file before line iteration.
	// It seeds the FileContext with whole-file facts (e.g. YAML
	// validity) that individual line rules consult.
	Prepare func(content string, fctx *FileContext)

	// Rules is the ordered rule list.
	Rules []Rule
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is the immutable language → pack mapping.
//
// Built explicitly at startup and passed by parameter into the engine
// and scanner; there is no package-level mutable registry.
type Registry struct {
	packs map[lang.Language]*Pack
}

// NewRegistry builds a registry from the given packs.
//
// Later packs for the same language replace earlier ones, which lets
// tests override a single pack while keeping the rest.
func NewRegistry(packs ...*Pack) *Registry {
	r := &Registry{packs: make(map[lang.Language]*Pack, len(packs))}
	for _, p := range packs {
		r.packs[p.Language] = p
	}
	return r
}

// DefaultRegistry returns the registry with every built-in pack.
func DefaultRegistry() *Registry {
	return NewRegistry(
		BashPack(),
		PythonPack(),
		JavaScriptPack(),
		NodeJSPack(),
		TypeScriptPack(),
		PHPPack(),
		GoPack(),
		RustPack(),
		JavaPack(),
		RubyPack(),
		CSharpPack(),
		DockerfilePack(),
		DockerComposePack(),
		KubernetesPack(),
		HelmPack(),
		TerraformPack(),
		SQLPack(),
		NginxPack(),
		ApachePack(),
		GitHubActionsPack(),
		GitLabCIPack(),
		AnsiblePack(),
		JenkinsfilePack(),
		MarkdownPack(),
		YAMLPack(),
	)
}

// Pack returns the pack for a language.
//
// Dispatch is a closed lookup with exactly one fallback: a language
// with no registered pack analyzes under the bash pack, mirroring the
// detector's default.
func (r *Registry) Pack(l lang.Language) *Pack {
	if p, ok := r.packs[l]; ok {
		return p
	}
	if p, ok := r.packs[lang.DefaultLanguage]; ok {
		return p
	}
	// Registry built without the fallback pack: analyze nothing.
	return &Pack{Language: l}
}

// Languages returns the registered language tags in sorted order.
func (r *Registry) Languages() []lang.Language {
	out := make([]lang.Language, 0, len(r.packs))
	for l := range r.packs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
