// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package lang defines the closed set of language tags rectify analyzes
// and the static per-language lookup tables (file extensions, special
// filenames, comment prefixes) shared by the detector, the fixer and the
// sandbox.
//
// Everything in this package is immutable data. Detection is a pure
// function of (content, filename); see Detect.
package lang

import "strings"

// Language is the closed identifier naming a supported analyzed
// language or configuration format.
//
// The set is fixed at compile time. Dispatch over languages is always an
// exhaustive lookup with LangBash as the explicit fallback, never
// reflection.
type Language string

const (
	LangBash          Language = "bash"
	LangPython        Language = "python"
	LangPHP           Language = "php"
	LangJavaScript    Language = "javascript"
	LangNodeJS        Language = "nodejs"
	LangTypeScript    Language = "typescript"
	LangGo            Language = "go"
	LangRust          Language = "rust"
	LangJava          Language = "java"
	LangRuby          Language = "ruby"
	LangCSharp        Language = "csharp"
	LangDockerfile    Language = "dockerfile"
	LangDockerCompose Language = "docker-compose"
	LangKubernetes    Language = "kubernetes"
	LangHelm          Language = "helm"
	LangTerraform     Language = "terraform"
	LangSQL           Language = "sql"
	LangNginx         Language = "nginx"
	LangApache        Language = "apache"
	LangGitHubActions Language = "github-actions"
	LangGitLabCI      Language = "gitlab-ci"
	LangAnsible       Language = "ansible"
	LangJenkinsfile   Language = "jenkinsfile"
	LangMarkdown      Language = "markdown"
	LangYAML          Language = "yaml"
	LangGeneric       Language = "generic"
)

// DefaultLanguage is returned when no detection evidence matches.
const DefaultLanguage = LangBash

// All returns every supported language tag in a fixed order.
//
// The order is stable across processes so that list-languages output
// and serialized reports are reproducible.
func All() []Language {
	return []Language{
		LangBash, LangPython, LangPHP, LangJavaScript, LangNodeJS,
		LangTypeScript, LangGo, LangRust, LangJava, LangRuby, LangCSharp,
		LangDockerfile, LangDockerCompose, LangKubernetes, LangHelm,
		LangTerraform, LangSQL, LangNginx, LangApache, LangGitHubActions,
		LangGitLabCI, LangAnsible, LangJenkinsfile, LangMarkdown, LangYAML,
	}
}

// Parse maps a user-supplied string to a Language.
//
// Returns (DefaultLanguage, false) when the string names no supported
// tag. Matching is case-insensitive.
func Parse(s string) (Language, bool) {
	needle := Language(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range All() {
		if l == needle {
			return l, true
		}
	}
	if needle == LangGeneric {
		return LangGeneric, true
	}
	return DefaultLanguage, false
}

// String returns the tag as a plain string.
func (l Language) String() string { return string(l) }

// CommentPrefix returns the trailing-comment prefix used when the fixer
// annotates a rewritten line.
//
// An empty prefix means the format has no safe line-comment syntax; the
// fixer still applies rewrites for such languages but skips annotation.
func (l Language) CommentPrefix() string {
	switch l {
	case LangBash, LangPython, LangRuby, LangDockerfile, LangDockerCompose,
		LangKubernetes, LangHelm, LangTerraform, LangNginx, LangApache,
		LangGitHubActions, LangGitLabCI, LangAnsible, LangYAML:
		return "#"
	case LangJavaScript, LangNodeJS, LangTypeScript, LangGo, LangRust,
		LangJava, LangCSharp, LangPHP, LangJenkinsfile:
		return "//"
	case LangSQL:
		return "--"
	case LangMarkdown, LangGeneric:
		return ""
	default:
		return "#"
	}
}

// extensionTable maps file extensions (lowercase, with dot) to a
// language. First evidence consulted by Detect.
var extensionTable = map[string]Language{
	".py":       LangPython,
	".sh":       LangBash,
	".bash":     LangBash,
	".zsh":      LangBash,
	".ksh":      LangBash,
	".php":      LangPHP,
	".js":       LangJavaScript,
	".jsx":      LangJavaScript,
	".mjs":      LangJavaScript,
	".cjs":      LangNodeJS,
	".ts":       LangTypeScript,
	".tsx":      LangTypeScript,
	".go":       LangGo,
	".rs":       LangRust,
	".java":     LangJava,
	".rb":       LangRuby,
	".cs":       LangCSharp,
	".tf":       LangTerraform,
	".sql":      LangSQL,
	".md":       LangMarkdown,
	".markdown": LangMarkdown,
}

// FromExtension returns the language mapped to a file extension.
func FromExtension(ext string) (Language, bool) {
	l, ok := extensionTable[strings.ToLower(ext)]
	return l, ok
}
