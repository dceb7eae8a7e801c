// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scan walks a project tree, analyzes every eligible file and
// builds the project report.
//
// The walk is strictly lexicographic and the analysis results are
// returned in walk order regardless of worker scheduling, so two scans
// of the same tree always produce the same report.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rectifyhq/rectify/pkg/logging"
)

// DefaultExclusions are the directory names never descended into.
var DefaultExclusions = []string{
	".git", ".rectify", "_fixtures", "node_modules", "__pycache__",
	"venv", ".venv", "dist", "build", "target", ".idea", ".vscode",
}

// analyzableDotfiles are dot-prefixed files that carry analyzable
// configuration and are exempt from the hidden-file skip.
var analyzableDotfiles = map[string]bool{
	".gitlab-ci.yml":  true,
	".gitlab-ci.yaml": true,
	".htaccess":       true,
}

// DefaultMaxFileSize is the per-file size cap; larger files are skipped
// and recorded, not analyzed.
const DefaultMaxFileSize = 1 << 20

// Skip reasons recorded in the report.
const (
	SkipOversize = "file exceeds size limit"
	SkipSymlink  = "symbolic link"
	SkipBinary   = "binary content"
	SkipUnread   = "unreadable"
)

// FileEntry is one file selected by the walk.
type FileEntry struct {
	// Path is the path relative to the scan root, slash-separated.
	Path string

	// AbsPath is the filesystem path used to read the file.
	AbsPath string
}

// SkippedFile records a file the scanner refused to analyze.
type SkippedFile struct {
	Path   string
	Reason string
}

// Scanner selects the files of a project tree.
type Scanner struct {
	exclusions []string
	maxSize    int64
	log        *logging.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithExclusions appends extra exclusion patterns to the defaults.
// Patterns match path base names, filepath.Match syntax.
func WithExclusions(patterns ...string) ScannerOption {
	return func(s *Scanner) { s.exclusions = append(s.exclusions, patterns...) }
}

// WithMaxFileSize overrides the per-file size cap.
func WithMaxFileSize(n int64) ScannerOption {
	return func(s *Scanner) { s.maxSize = n }
}

// WithScanLogger sets the scanner logger.
func WithScanLogger(log *logging.Logger) ScannerOption {
	return func(s *Scanner) { s.log = log }
}

// NewScanner builds a Scanner with the default exclusions.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		exclusions: append([]string(nil), DefaultExclusions...),
		maxSize:    DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Default()
	}
	return s
}

// Walk returns the analyzable files under root in lexicographic order,
// plus the files it skipped. Hidden files (apart from well-known config
// dotfiles) and excluded directories are silently ignored; oversize
// files and symlinks are recorded.
func (s *Scanner) Walk(root string) ([]FileEntry, []SkippedFile, error) {
	var entries []FileEntry
	var skipped []SkippedFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("scan root %s: %w", root, err)
			}
			rel := s.rel(root, path)
			skipped = append(skipped, SkippedFile{Path: rel, Reason: SkipUnread})
			s.log.Warn("skipping unreadable entry", "path", rel, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (s.excluded(name) || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if (strings.HasPrefix(name, ".") && !analyzableDotfiles[name]) || s.excluded(name) {
			return nil
		}
		rel := s.rel(root, path)
		if d.Type()&fs.ModeSymlink != 0 {
			skipped = append(skipped, SkippedFile{Path: rel, Reason: SkipSymlink})
			return nil
		}
		info, err := d.Info()
		if err != nil {
			skipped = append(skipped, SkippedFile{Path: rel, Reason: SkipUnread})
			return nil
		}
		if info.Size() > s.maxSize {
			skipped = append(skipped, SkippedFile{Path: rel, Reason: SkipOversize})
			return nil
		}
		entries = append(entries, FileEntry{Path: rel, AbsPath: path})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return entries, skipped, nil
}

func (s *Scanner) excluded(name string) bool {
	for _, pattern := range s.exclusions {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) rel(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// IsBinary reports whether data looks like binary content. A NUL byte
// in the first 8000 bytes is the same heuristic git uses.
func IsBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	for _, b := range probe {
		if b == 0 {
			return true
		}
	}
	return false
}
