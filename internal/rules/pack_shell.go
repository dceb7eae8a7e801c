// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rules

import (
	"regexp"
	"strings"

	"github.com/rectifyhq/rectify/internal/lang"
)

// Shell rule patterns, compiled once. Rule codes follow the ShellCheck
// numbering for familiarity.
var (
	reMisplacedQuote    = regexp.MustCompile(`"\$\([^)]*"\)`)
	reMisplacedQuoteFix = regexp.MustCompile(`("\$\([^)]*)(")(\))`)
	reUnquotedVar       = regexp.MustCompile(`\$\{?[A-Za-z_][A-Za-z0-9_]*\}?`)
	reCdNoGuard         = regexp.MustCompile(`^\s*cd\s+[^&|;]+$`)
	reReadCmd           = regexp.MustCompile(`(^|[;&|]\s*)read\s+`)
	reBacktickSub       = regexp.MustCompile("`([^`]*)`")
)

// BashPack returns the shell-script rule pack.
func BashPack() *Pack {
	return &Pack{
		Language: lang.LangBash,
		Rules: []Rule{
			{
				ID:       "SC1073",
				Severity: SeverityError,
				Check:    checkMisplacedQuote,
			},
			{
				ID:       "SC2086",
				Severity: SeverityWarning,
				Check:    checkUnquotedVariable,
			},
			{
				ID:       "SC2006",
				Severity: SeverityWarning,
				Check:    checkBacktickSubstitution,
			},
			{
				ID:       "SC2164",
				Severity: SeverityWarning,
				Check:    checkCdWithoutGuard,
			},
			{
				ID:       "SC2162",
				Severity: SeverityWarning,
				Check:    checkReadWithoutR,
			},
			{
				ID:       "SC2239",
				Severity: SeverityWarning,
				Check:    checkShebangPortability,
			},
		},
	}
}

// checkMisplacedQuote flags `"$(cmd")` where the closing quote landed
// inside the command substitution.
func checkMisplacedQuote(line Line, _ *FileContext) *Match {
	loc := reMisplacedQuote.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	fixed := reMisplacedQuoteFix.ReplaceAllString(line.Text, "${1}${3}${2}")
	m := &Match{
		Column:  loc[0] + 1,
		Message: "closing quote is misplaced, it belongs after the )",
	}
	if fixed != line.Text {
		m.Fix = &FixSpec{
			Before:  strings.TrimSpace(line.Text),
			After:   strings.TrimSpace(fixed),
			Message: "moved the closing quote after the command substitution",
		}
	}
	return m
}

// checkUnquotedVariable flags a bare $VAR in command position and
// proposes quoting it. A variable already inside double quotes (odd
// count of unescaped quotes to its left) is not flagged.
func checkUnquotedVariable(line Line, _ *FileContext) *Match {
	stripped := strings.TrimSpace(line.Text)
	if strings.HasPrefix(stripped, "#") {
		return nil
	}
	for _, loc := range reUnquotedVar.FindAllStringIndex(line.Text, -1) {
		before := line.Text[:loc[0]]
		// Anything after a trailing comment marker is not code.
		if strings.Contains(before, "#") {
			continue
		}
		// Assignments (VAR=$OTHER) are safe from word splitting.
		if strings.Contains(before, "=") {
			continue
		}
		quotes := strings.Count(before, `"`) - strings.Count(before, `\"`)
		if quotes%2 != 0 {
			continue
		}
		left := byte(' ')
		if loc[0] > 0 {
			left = line.Text[loc[0]-1]
		}
		right := byte(' ')
		if loc[1] < len(line.Text) {
			right = line.Text[loc[1]]
		}
		if left != ' ' && left != '\t' {
			continue
		}
		if right != ' ' && right != '\t' && !strings.ContainsRune(";|&", rune(right)) {
			continue
		}
		token := line.Text[loc[0]:loc[1]]
		return &Match{
			Column:  loc[0] + 1,
			Message: "variable " + token + " should be double quoted to prevent word splitting",
			Fix: &FixSpec{
				Before:  token,
				After:   `"` + token + `"`,
				Message: "quoted " + token,
			},
		}
	}
	return nil
}

// checkBacktickSubstitution flags legacy `cmd` substitution and
// rewrites it to $(cmd).
func checkBacktickSubstitution(line Line, _ *FileContext) *Match {
	stripped := strings.TrimSpace(line.Text)
	if strings.HasPrefix(stripped, "#") {
		return nil
	}
	loc := reBacktickSub.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	fixed := reBacktickSub.ReplaceAllString(line.Text, `$($1)`)
	return &Match{
		Column:  loc[0] + 1,
		Message: "use $(...) instead of legacy backticks",
		Fix: &FixSpec{
			Before:  strings.TrimSpace(line.Text),
			After:   strings.TrimSpace(fixed),
			Message: "replaced backticks with $(...)",
		},
	}
}

func checkCdWithoutGuard(line Line, _ *FileContext) *Match {
	if !reCdNoGuard.MatchString(line.Text) || strings.Contains(line.Text, "||") {
		return nil
	}
	return &Match{
		Column:  1,
		Message: "use cd ... || exit in case cd fails",
	}
}

func checkReadWithoutR(line Line, _ *FileContext) *Match {
	stripped := strings.TrimSpace(line.Text)
	if strings.HasPrefix(stripped, "#") {
		return nil
	}
	if !strings.HasPrefix(stripped, "read ") && !reReadCmd.MatchString(line.Text) {
		return nil
	}
	if strings.Contains(line.Text, " -r") {
		return nil
	}
	return &Match{
		Column:  1,
		Message: "use read -r to prevent backslash mangling",
	}
}

func checkShebangPortability(line Line, _ *FileContext) *Match {
	if line.Number != 1 {
		return nil
	}
	if !strings.HasPrefix(strings.TrimSpace(line.Text), "#!/usr/bin/bash") {
		return nil
	}
	return &Match{
		Column:  1,
		Message: "prefer #!/bin/bash or #!/usr/bin/env bash for portability",
	}
}
