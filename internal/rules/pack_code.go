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

// =============================================================================
// PYTHON
// =============================================================================

var (
	rePyPrintStmt    = regexp.MustCompile(`^print\s+[^(]`)
	rePyPrintFix     = regexp.MustCompile(`^(\s*)print\s+(.+)$`)
	rePyBareExcept   = regexp.MustCompile(`^\s*except\s*:`)
	rePyMutableArg   = regexp.MustCompile(`def\s+\w+\s*\([^)]*=\s*(\[\]|\{\})`)
	rePyNoneEquality = regexp.MustCompile(`(==|!=)\s*None`)
)

// PythonPack returns the python rule pack.
func PythonPack() *Pack {
	return &Pack{
		Language: lang.LangPython,
		Rules: []Rule{
			{
				ID:       "PY001",
				Severity: SeverityError,
				Check: func(line Line, _ *FileContext) *Match {
					stripped := strings.TrimSpace(line.Text)
					if !rePyPrintStmt.MatchString(stripped) {
						return nil
					}
					fixed := rePyPrintFix.ReplaceAllString(line.Text, "${1}print(${2})")
					m := &Match{Column: 1, Message: "print is a function in Python 3, use print(...)"}
					if fixed != line.Text {
						m.Fix = &FixSpec{
							Before:  strings.TrimSpace(line.Text),
							After:   strings.TrimSpace(fixed),
							Message: "added parentheses to print()",
						}
					}
					return m
				},
			},
			{
				ID:       "PY002",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					if !rePyBareExcept.MatchString(line.Text) {
						return nil
					}
					return &Match{Column: 1, Message: "avoid bare except:, catch a specific exception"}
				},
			},
			{
				ID:       "PY003",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := rePyMutableArg.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "mutable default argument is shared between calls"}
				},
			},
			{
				ID:       "PY004",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := rePyNoneEquality.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					snippet := line.Text[loc[0]:loc[1]]
					after := "is None"
					if strings.HasPrefix(snippet, "!=") {
						after = "is not None"
					}
					return &Match{
						Column:  loc[0] + 1,
						Message: `use "is None" instead of comparing with ==`,
						Fix: &FixSpec{
							Before:  snippet,
							After:   after,
							Message: "replaced None equality with identity check",
						},
					}
				},
			},
		},
	}
}

// =============================================================================
// JAVASCRIPT / NODE
// =============================================================================

var (
	reJSVarDecl   = regexp.MustCompile(`\bvar\s+\w+`)
	reLooseEq     = regexp.MustCompile(`[^=!<>]==[^=]`)
	reConsoleLog  = regexp.MustCompile(`\bconsole\.(log|debug|info)\s*\(`)
	reEvalCall    = regexp.MustCompile(`\beval\s*\(`)
	reRequireCall = regexp.MustCompile(`\brequire\s*\(['"]`)
	reSyncIO      = regexp.MustCompile(`\b(readFileSync|writeFileSync)\b`)
	reVarKeyword  = regexp.MustCompile(`\bvar\b`)
	reTSAnyType   = regexp.MustCompile(`:\s*any\b`)
	reTSIgnore    = regexp.MustCompile(`@ts-ignore`)
)

func javascriptRules() []Rule {
	return []Rule{
		{
			ID:       "JS001",
			Severity: SeverityWarning,
			Check: func(line Line, _ *FileContext) *Match {
				loc := reJSVarDecl.FindStringIndex(line.Text)
				if loc == nil {
					return nil
				}
				fixed := reVarKeyword.ReplaceAllString(line.Text, "let")
				return &Match{
					Column:  loc[0] + 1,
					Message: "use let or const instead of var",
					Fix: &FixSpec{
						Before:  strings.TrimSpace(line.Text),
						After:   strings.TrimSpace(fixed),
						Message: "replaced var with let",
					},
				}
			},
		},
		{
			ID:       "JS002",
			Severity: SeverityWarning,
			Check: func(line Line, _ *FileContext) *Match {
				loc := reLooseEq.FindStringIndex(line.Text)
				if loc == nil {
					return nil
				}
				return &Match{Column: loc[0] + 1, Message: "use === instead of =="}
			},
		},
		{
			ID:       "JS003",
			Severity: SeverityWarning,
			Check: func(line Line, _ *FileContext) *Match {
				loc := reConsoleLog.FindStringIndex(line.Text)
				if loc == nil {
					return nil
				}
				return &Match{Column: loc[0] + 1, Message: "console.log left in code, remove before production"}
			},
		},
		{
			ID:       "JS004",
			Severity: SeverityError,
			Check: func(line Line, _ *FileContext) *Match {
				loc := reEvalCall.FindStringIndex(line.Text)
				if loc == nil {
					return nil
				}
				return &Match{Column: loc[0] + 1, Message: "eval() executes arbitrary code and is unsafe"}
			},
		},
	}
}

func nodeRules() []Rule {
	return []Rule{
		{
			ID:       "NODE001",
			Severity: SeverityWarning,
			Check: func(line Line, _ *FileContext) *Match {
				loc := reRequireCall.FindStringIndex(line.Text)
				if loc == nil {
					return nil
				}
				return &Match{Column: loc[0] + 1, Message: "consider ES modules instead of require()"}
			},
		},
		{
			ID:       "NODE002",
			Severity: SeverityWarning,
			Check: func(line Line, _ *FileContext) *Match {
				loc := reSyncIO.FindStringIndex(line.Text)
				if loc == nil {
					return nil
				}
				return &Match{Column: loc[0] + 1, Message: "synchronous I/O blocks the event loop"}
			},
		},
	}
}

// JavaScriptPack returns the browser/ES javascript rule pack.
func JavaScriptPack() *Pack {
	return &Pack{Language: lang.LangJavaScript, Rules: javascriptRules()}
}

// NodeJSPack returns the node rule pack: the javascript rules plus the
// node-specific ones, in that priority order.
func NodeJSPack() *Pack {
	return &Pack{Language: lang.LangNodeJS, Rules: append(javascriptRules(), nodeRules()...)}
}

// TypeScriptPack returns the typescript rule pack.
func TypeScriptPack() *Pack {
	rules := javascriptRules()
	rules = append(rules,
		Rule{
			ID:       "TS001",
			Severity: SeverityWarning,
			Check: func(line Line, _ *FileContext) *Match {
				loc := reTSAnyType.FindStringIndex(line.Text)
				if loc == nil {
					return nil
				}
				return &Match{Column: loc[0] + 1, Message: "explicit any defeats type checking"}
			},
		},
		Rule{
			ID:       "TS002",
			Severity: SeverityWarning,
			Check: func(line Line, _ *FileContext) *Match {
				loc := reTSIgnore.FindStringIndex(line.Text)
				if loc == nil {
					return nil
				}
				return &Match{
					Column:  loc[0] + 1,
					Message: "@ts-ignore suppresses all errors, prefer @ts-expect-error",
					Fix: &FixSpec{
						Before:  "@ts-ignore",
						After:   "@ts-expect-error",
						Message: "replaced @ts-ignore with @ts-expect-error",
					},
				}
			},
		},
	)
	return &Pack{Language: lang.LangTypeScript, Rules: rules}
}

// =============================================================================
// PHP
// =============================================================================

var (
	reMysqlFunc   = regexp.MustCompile(`\bmysql_\w+\s*\(`)
	reExtractCall = regexp.MustCompile(`\bextract\s*\(`)
	reAtSuppress  = regexp.MustCompile(`@\w+`)
)

// PHPPack returns the php rule pack.
func PHPPack() *Pack {
	return &Pack{
		Language: lang.LangPHP,
		Rules: []Rule{
			{
				ID:       "PHP002",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reLooseEq.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "use === instead of =="}
				},
			},
			{
				ID:       "PHP003",
				Severity: SeverityError,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reMysqlFunc.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "mysql_* functions were removed in PHP 7, use mysqli or PDO"}
				},
			},
			{
				ID:       "PHP004",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reExtractCall.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "extract() can overwrite variables, avoid it"}
				},
			},
			{
				ID:       "PHP005",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					stripped := strings.TrimSpace(line.Text)
					if strings.HasPrefix(stripped, "//") {
						return nil
					}
					loc := reAtSuppress.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "the @ operator silences errors"}
				},
			},
			{
				ID:       "PHP006",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					stripped := strings.TrimSpace(line.Text)
					short := strings.Contains(line.Text, "<?=") ||
						(strings.HasPrefix(stripped, "<?") && !strings.HasPrefix(stripped, "<?php"))
					if !short {
						return nil
					}
					return &Match{Column: 1, Message: "use the full <?php tag"}
				},
			},
		},
	}
}

// =============================================================================
// COMPILED LANGUAGES
// =============================================================================

var (
	reGoDiscardedErr = regexp.MustCompile(`^\s*_\s*=\s*err\b`)
	reGoFmtPrintln   = regexp.MustCompile(`\bfmt\.Print(ln|f)?\s*\(`)
	reRustUnwrap     = regexp.MustCompile(`\.unwrap\(\)`)
	reRustTodo       = regexp.MustCompile(`\b(todo|unimplemented)!\s*\(`)
	reJavaSysOut     = regexp.MustCompile(`\bSystem\.out\.print`)
	reJavaBroadCatch = regexp.MustCompile(`catch\s*\(\s*(Exception|Throwable)\b`)
	reRubyBacktick   = regexp.MustCompile("`[^`]+`")
	reRubyRescueAll  = regexp.MustCompile(`\brescue\s+Exception\b`)
	reCSConsoleOut   = regexp.MustCompile(`\bConsole\.Write`)
	reCSAsyncVoid    = regexp.MustCompile(`\basync\s+void\b`)
)

// GoPack returns the go rule pack.
func GoPack() *Pack {
	return &Pack{
		Language: lang.LangGo,
		Rules: []Rule{
			{
				ID:       "GO001",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					if !reGoDiscardedErr.MatchString(line.Text) {
						return nil
					}
					return &Match{Column: 1, Message: "error value discarded with _ ="}
				},
			},
			{
				ID:       "GO002",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reGoFmtPrintln.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "fmt print call left in code, use a logger"}
				},
			},
		},
	}
}

// RustPack returns the rust rule pack.
func RustPack() *Pack {
	return &Pack{
		Language: lang.LangRust,
		Rules: []Rule{
			{
				ID:       "RS001",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reRustUnwrap.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: ".unwrap() panics on Err, handle the error"}
				},
			},
			{
				ID:       "RS002",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reRustTodo.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "todo!/unimplemented! left in code"}
				},
			},
		},
	}
}

// JavaPack returns the java rule pack.
func JavaPack() *Pack {
	return &Pack{
		Language: lang.LangJava,
		Rules: []Rule{
			{
				ID:       "JAVA001",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reJavaSysOut.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "System.out left in code, use a logger"}
				},
			},
			{
				ID:       "JAVA002",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reJavaBroadCatch.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "catching Exception/Throwable hides failures"}
				},
			},
		},
	}
}

// RubyPack returns the ruby rule pack.
func RubyPack() *Pack {
	return &Pack{
		Language: lang.LangRuby,
		Rules: []Rule{
			{
				ID:       "RB001",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					stripped := strings.TrimSpace(line.Text)
					if strings.HasPrefix(stripped, "#") {
						return nil
					}
					loc := reRubyBacktick.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "backtick shell execution, prefer Open3"}
				},
			},
			{
				ID:       "RB002",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reRubyRescueAll.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "rescue Exception catches interrupts, rescue StandardError instead"}
				},
			},
		},
	}
}

// CSharpPack returns the csharp rule pack.
func CSharpPack() *Pack {
	return &Pack{
		Language: lang.LangCSharp,
		Rules: []Rule{
			{
				ID:       "CS001",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reCSConsoleOut.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "Console output left in code, use a logger"}
				},
			},
			{
				ID:       "CS002",
				Severity: SeverityWarning,
				Check: func(line Line, _ *FileContext) *Match {
					loc := reCSAsyncVoid.FindStringIndex(line.Text)
					if loc == nil {
						return nil
					}
					return &Match{Column: loc[0] + 1, Message: "async void swallows exceptions, return Task"}
				},
			},
		},
	}
}
