// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rectifyhq/rectify/internal/engine"
	"github.com/rectifyhq/rectify/internal/lang"
	"github.com/rectifyhq/rectify/internal/rules"
)

// runAnalyze analyzes one file and writes the fixed copy next to it.
func runAnalyze(cmd *cobra.Command, args []string) error {
	configureColor()
	log := newLogger("cli")
	defer log.Close()

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	content := string(data)

	language := lang.Detect(content, path)
	if analyzeLanguage != "" {
		l, ok := lang.Parse(analyzeLanguage)
		if !ok {
			return fmt.Errorf("unknown language %q", analyzeLanguage)
		}
		language = l
	}

	eng := engine.New(rules.DefaultRegistry(), engine.WithLogger(log))
	res := eng.Analyze(content, language, filepath.Base(path))

	if !analyzeNoFix && res.Changed() {
		target := analyzeOutput
		if target == "" {
			target = fixedPath(path)
		}
		if err := os.WriteFile(target, []byte(res.FixedCode), 0o644); err != nil {
			return fmt.Errorf("write fixed copy %s: %w", target, err)
		}
		log.Info("fixed copy written", "path", target, "fixes", len(res.Fixes))
	}

	if outputJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Println(string(out))
	} else {
		printResultSummary(res)
	}

	if res.HasErrors() {
		return errIssuesRemain
	}
	return nil
}

// fixedPath derives the default output path: deploy.sh becomes
// deploy_fixed.sh.
func fixedPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return stem + "_fixed" + ext
}
