// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sandbox

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rectifyhq/rectify/internal/lang"
)

// languageIndicator scores a project language from the files present.
type languageIndicator struct {
	language   lang.Language
	markers    []string
	extensions []string
}

// Marker files score 10, matching extensions 1 each. tsconfig.json adds
// 20 to typescript so mixed JS/TS trees classify as typescript. The
// indicator order is the deterministic tie-break.
var projectIndicators = []languageIndicator{
	{lang.LangPython, []string{"requirements.txt", "setup.py", "pyproject.toml", "Pipfile"}, []string{".py"}},
	{lang.LangNodeJS, []string{"package.json"}, []string{".js", ".mjs"}},
	{lang.LangTypeScript, []string{"tsconfig.json", "package.json"}, []string{".ts", ".tsx"}},
	{lang.LangGo, []string{"go.mod", "go.sum"}, []string{".go"}},
	{lang.LangRust, []string{"Cargo.toml", "Cargo.lock"}, []string{".rs"}},
	{lang.LangJava, []string{"pom.xml", "build.gradle", "build.gradle.kts"}, []string{".java"}},
	{lang.LangPHP, []string{"composer.json", "composer.lock"}, []string{".php"}},
	{lang.LangRuby, []string{"Gemfile", "Gemfile.lock", "Rakefile"}, []string{".rb"}},
	{lang.LangCSharp, nil, []string{".cs", ".csproj", ".sln"}},
	{lang.LangBash, nil, []string{".sh"}},
	{lang.LangDockerfile, []string{"Dockerfile"}, nil},
	{lang.LangTerraform, nil, []string{".tf"}},
	{lang.LangAnsible, []string{"playbook.yml", "ansible.cfg", "inventory"}, nil},
}

const (
	markerWeight   = 10
	tsconfigWeight = 20
)

// ProjectStats explains a project language classification.
type ProjectStats struct {
	Detected   lang.Language         `json:"detected_language"`
	Confidence int                   `json:"confidence"`
	FileCounts map[lang.Language]int `json:"file_counts,omitempty"`
	Scores     map[lang.Language]int `json:"all_scores,omitempty"`
}

// DetectProjectLanguage classifies a whole project tree by weighing
// marker files and extensions. A tree with no evidence at all comes
// back generic.
func DetectProjectLanguage(root string) (lang.Language, ProjectStats) {
	weights := make(map[lang.Language]int, len(projectIndicators))
	fileCounts := make(map[lang.Language]int)
	hasTsconfig := false

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "_fixtures") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		lower := strings.ToLower(name)
		ext := strings.ToLower(filepath.Ext(name))
		if lower == "tsconfig.json" {
			hasTsconfig = true
		}
		for _, ind := range projectIndicators {
			for _, marker := range ind.markers {
				if lower == strings.ToLower(marker) {
					weights[ind.language] += markerWeight
				}
			}
			for _, e := range ind.extensions {
				if ext == e {
					weights[ind.language]++
					fileCounts[ind.language]++
				}
			}
		}
		return nil
	})

	if hasTsconfig && weights[lang.LangTypeScript] > 0 && weights[lang.LangNodeJS] > 0 {
		weights[lang.LangTypeScript] += tsconfigWeight
	}

	best := lang.LangGeneric
	bestWeight := 0
	for _, ind := range projectIndicators {
		if w := weights[ind.language]; w > bestWeight {
			best = ind.language
			bestWeight = w
		}
	}

	stats := ProjectStats{
		Detected:   best,
		Confidence: bestWeight,
		FileCounts: fileCounts,
		Scores:     weights,
	}
	return best, stats
}
