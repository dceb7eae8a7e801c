// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Content heuristics, compiled once. Each regexp is matched per line.
var (
	rePythonDef    = regexp.MustCompile(`^def\s+\w+\s*\(`)
	rePythonClass  = regexp.MustCompile(`^class\s+\w+.*:`)
	rePythonImport = regexp.MustCompile(`^import\s+\w+`)
	rePythonFrom   = regexp.MustCompile(`^from\s+\w+\s+import`)
	rePythonPrint  = regexp.MustCompile(`print\s*\(`)
	rePythonMain   = regexp.MustCompile(`if\s+__name__\s*==`)

	reNodeRequire = regexp.MustCompile(`\brequire\s*\(['"]`)
	reNodeExports = regexp.MustCompile(`\bmodule\.exports\b`)
	reNodeProcess = regexp.MustCompile(`\bprocess\.(env|argv|exit)\b`)

	reJSConst    = regexp.MustCompile(`\bconst\s+\w+\s*=`)
	reJSLet      = regexp.MustCompile(`\blet\s+\w+\s*=`)
	reJSVar      = regexp.MustCompile(`\bvar\s+\w+\s*=`)
	reJSFunction = regexp.MustCompile(`function\s+\w+\s*\(`)
	reJSArrow    = regexp.MustCompile(`=>\s*{`)
	reJSDocument = regexp.MustCompile(`\bdocument\.`)
	reJSWindow   = regexp.MustCompile(`\bwindow\.`)

	reBashFor  = regexp.MustCompile(`^\s*for\s+\w+\s+in\s+`)
	reBashIf   = regexp.MustCompile(`^\s*if\s+\[\s+`)
	reBashFi   = regexp.MustCompile(`^\s*fi\s*$`)
	reBashDone = regexp.MustCompile(`^\s*done\s*$`)
	reBashVar  = regexp.MustCompile(`\$\{?\w+\}?`)
	reBashEcho = regexp.MustCompile(`^\s*echo\s+`)

	reHelmValues = regexp.MustCompile(`\{\{\s*(\.Values|include|template)\b`)
)

var sqlKeywords = []string{
	"SELECT ", "INSERT ", "UPDATE ", "DELETE ", "CREATE TABLE", "DROP ", "ALTER ",
}

// Detect classifies content into a Language.
//
// Pure function: identical (content, filename) always yields the same
// tag across processes and runs. Evidence order, first match wins:
//
//  1. filename (special names, then extension table)
//  2. structural content heuristics for config formats
//  3. interpreter directive on the first line
//  4. language content heuristics, evaluated in a fixed order
//  5. DefaultLanguage
//
// filename may be empty when analyzing raw content.
func Detect(content, filename string) Language {
	if l, ok := detectByFilename(filename); ok {
		return l
	}

	lines := strings.Split(strings.TrimSpace(content), "\n")
	firstLine := ""
	if len(lines) > 0 {
		firstLine = lines[0]
	}

	// Config formats carry stronger structure than code, check first.
	if l, ok := detectConfigContent(content, lines); ok {
		return l
	}

	// Interpreter directive.
	if strings.HasPrefix(firstLine, "#!") {
		lower := strings.ToLower(firstLine)
		switch {
		case strings.Contains(lower, "python"):
			return LangPython
		case strings.Contains(firstLine, "bash"), strings.Contains(firstLine, "sh"):
			return LangBash
		case strings.Contains(firstLine, "node"):
			return LangNodeJS
		}
	}

	if strings.Contains(content, "<?php") || strings.Contains(content, "<?=") {
		return LangPHP
	}

	for _, re := range []*regexp.Regexp{
		rePythonDef, rePythonClass, rePythonImport, rePythonFrom,
		rePythonPrint, rePythonMain,
	} {
		if anyLineMatches(lines, re) {
			return LangPython
		}
	}

	for _, re := range []*regexp.Regexp{reNodeRequire, reNodeExports, reNodeProcess} {
		if anyLineMatches(lines, re) {
			return LangNodeJS
		}
	}

	for _, re := range []*regexp.Regexp{
		reJSConst, reJSLet, reJSVar, reJSFunction, reJSArrow,
		reJSDocument, reJSWindow,
	} {
		if anyLineMatches(lines, re) {
			return LangJavaScript
		}
	}

	for _, re := range []*regexp.Regexp{
		reBashFor, reBashIf, reBashFi, reBashDone, reBashVar, reBashEcho,
	} {
		if anyLineMatches(lines, re) {
			return LangBash
		}
	}

	return DefaultLanguage
}

// detectByFilename resolves languages that are keyed on well-known
// filenames before falling back to the extension table.
func detectByFilename(filename string) (Language, bool) {
	if filename == "" {
		return DefaultLanguage, false
	}
	base := strings.ToLower(filepath.Base(filename))
	full := strings.ToLower(filepath.ToSlash(filename))

	switch {
	case base == "dockerfile" || strings.HasPrefix(base, "dockerfile."):
		return LangDockerfile, true
	case base == "docker-compose.yml", base == "docker-compose.yaml",
		base == "compose.yml", base == "compose.yaml":
		return LangDockerCompose, true
	case base == "jenkinsfile":
		return LangJenkinsfile, true
	case base == "chart.yaml", base == "chart.yml":
		return LangHelm, true
	case base == "nginx.conf" || strings.HasSuffix(base, ".nginx"):
		return LangNginx, true
	case base == "httpd.conf", base == "apache2.conf", base == ".htaccess":
		return LangApache, true
	case base == ".gitlab-ci.yml", base == ".gitlab-ci.yaml":
		return LangGitLabCI, true
	case base == "makefile":
		// No dedicated pack; treated as generic shell-adjacent content.
		return LangBash, true
	}

	if strings.HasSuffix(base, ".yml") || strings.HasSuffix(base, ".yaml") {
		switch {
		case strings.Contains(full, ".github/workflows/") || strings.Contains(base, "workflow"):
			return LangGitHubActions, true
		case strings.Contains(full, "templates/") && strings.Contains(full, "chart"):
			return LangHelm, true
		case strings.Contains(base, "playbook") || strings.Contains(full, "ansible"):
			return LangAnsible, true
		}
		// Plain YAML is resolved by content heuristics (compose,
		// kubernetes, ansible) before defaulting to the yaml pack.
		return DefaultLanguage, false
	}

	l, ok := FromExtension(filepath.Ext(base))
	return l, ok
}

// detectConfigContent applies the structural config-format heuristics in
// a fixed order.
func detectConfigContent(content string, lines []string) (Language, bool) {
	upper := strings.ToUpper(content)

	// Dockerfile: directive-shaped leading lines plus a FROM somewhere.
	head := lines
	if len(head) > 20 {
		head = head[:20]
	}
	for _, line := range head {
		t := strings.ToUpper(strings.TrimSpace(line))
		if strings.HasPrefix(t, "FROM ") || strings.HasPrefix(t, "RUN ") ||
			strings.HasPrefix(t, "COPY ") || strings.HasPrefix(t, "ENTRYPOINT ") ||
			strings.HasPrefix(t, "CMD ") {
			if strings.Contains(upper, "FROM ") {
				return LangDockerfile, true
			}
		}
	}

	if strings.Contains(content, "services:") &&
		(strings.Contains(content, "image:") || strings.Contains(content, "build:")) {
		return LangDockerCompose, true
	}

	if reHelmValues.MatchString(content) {
		return LangHelm, true
	}

	if strings.Contains(content, "apiVersion:") && strings.Contains(content, "kind:") {
		return LangKubernetes, true
	}

	if strings.Contains(content, `resource "`) || strings.Contains(content, `provider "`) ||
		strings.Contains(content, `variable "`) {
		return LangTerraform, true
	}

	for _, kw := range sqlKeywords {
		if strings.Contains(upper, kw) {
			return LangSQL, true
		}
	}

	if strings.Contains(content, "on:") &&
		(strings.Contains(content, "push:") || strings.Contains(content, "pull_request:") ||
			strings.Contains(content, "workflow_dispatch:")) {
		if strings.Contains(content, "jobs:") || strings.Contains(content, "steps:") {
			return LangGitHubActions, true
		}
	}

	if strings.Contains(content, "- hosts:") ||
		(strings.Contains(content, "- name:") &&
			(strings.Contains(content, "tasks:") || strings.Contains(content, "become:"))) {
		return LangAnsible, true
	}

	if strings.Contains(content, "pipeline {") && strings.Contains(content, "stages {") {
		return LangJenkinsfile, true
	}

	if strings.Contains(content, "server {") || strings.Contains(content, "location ") ||
		strings.Contains(content, "upstream ") {
		return LangNginx, true
	}

	return DefaultLanguage, false
}

func anyLineMatches(lines []string, re *regexp.Regexp) bool {
	for _, line := range lines {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
