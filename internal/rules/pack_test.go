// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rules

import (
	"strings"
	"testing"
)

// runRule drives a single rule over content the way the engine does,
// returning every match in line order.
func runRule(t *testing.T, p *Pack, id, content string) []*Match {
	t.Helper()
	var rule *Rule
	for i := range p.Rules {
		if p.Rules[i].ID == id {
			rule = &p.Rules[i]
			break
		}
	}
	if rule == nil {
		t.Fatalf("pack %s has no rule %s", p.Language, id)
	}
	fctx := NewFileContext()
	if p.Prepare != nil {
		p.Prepare(content, fctx)
	}
	lines := strings.Split(content, "\n")
	var out []*Match
	for i, text := range lines {
		if m := rule.Check(Line{Number: i + 1, Text: text, Total: len(lines)}, fctx); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func TestBashPack(t *testing.T) {
	p := BashPack()

	t.Run("SC2086 unquoted variable gets a quoting fix", func(t *testing.T) {
		ms := runRule(t, p, "SC2086", "#!/bin/bash\nrm -rf $TARGET_DIR\n")
		if len(ms) != 1 {
			t.Fatalf("got %d matches, want 1", len(ms))
		}
		fix := ms[0].Fix
		if fix == nil {
			t.Fatal("no fix attached")
		}
		if fix.Before != "$TARGET_DIR" || fix.After != `"$TARGET_DIR"` {
			t.Errorf("fix = %q -> %q", fix.Before, fix.After)
		}
	})

	t.Run("SC2086 skips quoted and assigned variables", func(t *testing.T) {
		content := "echo \"$HOME\"\nDIR=$BASE\n# comment $VAR\n"
		if ms := runRule(t, p, "SC2086", content); len(ms) != 0 {
			t.Errorf("got %d matches, want 0", len(ms))
		}
	})

	t.Run("SC2006 rewrites backticks", func(t *testing.T) {
		ms := runRule(t, p, "SC2006", "now=`date +%s`\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "now=$(date +%s)" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("SC1073 moves a misplaced closing quote", func(t *testing.T) {
		ms := runRule(t, p, "SC1073", `files="$(ls -la")`+"\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != `files="$(ls -la)"` {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("SC2164 flags unguarded cd", func(t *testing.T) {
		if ms := runRule(t, p, "SC2164", "cd /tmp\n"); len(ms) != 1 {
			t.Errorf("got %d matches, want 1", len(ms))
		}
		if ms := runRule(t, p, "SC2164", "cd /tmp || exit 1\n"); len(ms) != 0 {
			t.Errorf("guarded cd flagged")
		}
	})

	t.Run("SC2239 fires only on line one", func(t *testing.T) {
		if ms := runRule(t, p, "SC2239", "#!/usr/bin/bash\necho hi"); len(ms) != 1 {
			t.Errorf("got %d matches, want 1", len(ms))
		}
		if ms := runRule(t, p, "SC2239", "echo hi\n#!/usr/bin/bash"); len(ms) != 0 {
			t.Errorf("non-shebang line flagged")
		}
	})
}

func TestPythonPack(t *testing.T) {
	p := PythonPack()

	t.Run("PY001 rewrites print statement", func(t *testing.T) {
		ms := runRule(t, p, "PY001", `print "hello"`)
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != `print("hello")` {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("PY001 ignores print call", func(t *testing.T) {
		if ms := runRule(t, p, "PY001", `print("hello")`); len(ms) != 0 {
			t.Errorf("print call flagged")
		}
	})

	t.Run("PY004 rewrites None comparison", func(t *testing.T) {
		ms := runRule(t, p, "PY004", "if x == None:\n    pass")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if !strings.Contains(ms[0].Fix.After, "is None") {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("PY002 flags bare except", func(t *testing.T) {
		if ms := runRule(t, p, "PY002", "try:\n    f()\nexcept:\n    pass"); len(ms) != 1 {
			t.Errorf("got %d matches, want 1", len(ms))
		}
	})
}

func TestJavaScriptPack(t *testing.T) {
	p := JavaScriptPack()

	t.Run("JS001 rewrites var to let", func(t *testing.T) {
		ms := runRule(t, p, "JS001", "var count = 0;")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "let count = 0;" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("JS004 eval is an error", func(t *testing.T) {
		var sev Severity
		for _, r := range p.Rules {
			if r.ID == "JS004" {
				sev = r.Severity
			}
		}
		if sev != SeverityError {
			t.Errorf("JS004 severity = %s, want error", sev)
		}
	})
}

func TestDockerfilePack(t *testing.T) {
	p := DockerfilePack()

	t.Run("DOCKER001 pins known images", func(t *testing.T) {
		ms := runRule(t, p, "DOCKER001", "FROM python:latest\nRUN true")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "python:3.11" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("DOCKER001 falls back to placeholder tag", func(t *testing.T) {
		ms := runRule(t, p, "DOCKER001", "FROM internal/service")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "internal/service:1.0.0" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("DOCKER001 accepts pinned and scratch", func(t *testing.T) {
		if ms := runRule(t, p, "DOCKER001", "FROM alpine:3.19\nFROM scratch"); len(ms) != 0 {
			t.Errorf("pinned image flagged")
		}
	})

	t.Run("DOCKER003 adds -y to apt-get install", func(t *testing.T) {
		ms := runRule(t, p, "DOCKER003", "RUN apt-get update && apt-get install curl")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if !strings.Contains(ms[0].Fix.After, "apt-get install -y curl") {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("DOCKER004 reports missing USER once at end of file", func(t *testing.T) {
		ms := runRule(t, p, "DOCKER004", "FROM alpine:3.19\nRUN true\nCMD [\"app\"]")
		if len(ms) != 1 {
			t.Fatalf("got %d matches, want 1", len(ms))
		}
		if ms := runRule(t, p, "DOCKER004", "FROM alpine:3.19\nUSER app\nCMD [\"app\"]"); len(ms) != 0 {
			t.Errorf("USER present but still flagged")
		}
	})

	t.Run("DOCKER005 keeps ADD for archives and urls", func(t *testing.T) {
		content := "ADD rootfs.tar.gz /\nADD https://example.com/x /x\nADD config.json /etc/"
		ms := runRule(t, p, "DOCKER005", content)
		if len(ms) != 1 {
			t.Fatalf("got %d matches, want 1", len(ms))
		}
		if ms[0].Fix.After != "COPY config.json /etc/" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})
}

func TestDockerComposePack(t *testing.T) {
	p := DockerComposePack()

	t.Run("COMPOSE999 fires once on invalid yaml", func(t *testing.T) {
		ms := runRule(t, p, "COMPOSE999", "services:\n\tweb:\n  image: x")
		if len(ms) != 1 {
			t.Fatalf("got %d matches, want 1", len(ms))
		}
	})

	t.Run("line rules stay quiet on invalid yaml", func(t *testing.T) {
		ms := runRule(t, p, "COMPOSE001", "services:\n\tweb:\n  image: nginx:latest")
		if len(ms) != 0 {
			t.Errorf("got %d matches on invalid yaml", len(ms))
		}
	})

	t.Run("COMPOSE001 pins service image", func(t *testing.T) {
		ms := runRule(t, p, "COMPOSE001", "services:\n  web:\n    image: nginx\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "image: nginx:1.25" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("COMPOSE002 disables privileged", func(t *testing.T) {
		ms := runRule(t, p, "COMPOSE002", "services:\n  web:\n    privileged: true\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "privileged: false" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})
}

func TestKubernetesPack(t *testing.T) {
	p := KubernetesPack()

	manifest := `apiVersion: apps/v1
kind: Deployment
spec:
  template:
    spec:
      containers:
        - name: app
          image: app:latest
`

	t.Run("K8S002 reports missing resources once", func(t *testing.T) {
		ms := runRule(t, p, "K8S002", manifest)
		if len(ms) != 1 {
			t.Fatalf("got %d matches, want 1", len(ms))
		}
	})

	t.Run("K8S002 quiet when resources declared", func(t *testing.T) {
		withRes := manifest + "          resources:\n            limits:\n              cpu: 500m\n"
		if ms := runRule(t, p, "K8S002", withRes); len(ms) != 0 {
			t.Errorf("resources present but still flagged")
		}
	})

	t.Run("K8S001 pins container image", func(t *testing.T) {
		ms := runRule(t, p, "K8S001", manifest)
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "image: app:1.0.0" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})
}

func TestConfigPacks(t *testing.T) {
	t.Run("TF001 hardcoded secret is an error", func(t *testing.T) {
		ms := runRule(t, TerraformPack(), "TF001", `password = "hunter2"`)
		if len(ms) != 1 {
			t.Fatalf("got %d matches, want 1", len(ms))
		}
		if ms := runRule(t, TerraformPack(), "TF001", `password = var.db_password`); len(ms) != 0 {
			t.Errorf("variable reference flagged")
		}
	})

	t.Run("SQL002 unbounded delete", func(t *testing.T) {
		if ms := runRule(t, SQLPack(), "SQL002", "DELETE FROM users;"); len(ms) != 1 {
			t.Errorf("got %d matches, want 1", len(ms))
		}
		if ms := runRule(t, SQLPack(), "SQL002", "DELETE FROM users WHERE id = 1;"); len(ms) != 0 {
			t.Errorf("bounded delete flagged")
		}
	})

	t.Run("NGINX001 rewrites server_tokens", func(t *testing.T) {
		ms := runRule(t, NginxPack(), "NGINX001", "server_tokens on;")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "server_tokens off;" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("GHA001 unpinned action", func(t *testing.T) {
		content := "steps:\n  - uses: actions/checkout@main\n  - uses: actions/setup-go@v5\n"
		ms := runRule(t, GitHubActionsPack(), "GHA001", content)
		if len(ms) != 1 {
			t.Fatalf("got %d matches, want 1", len(ms))
		}
	})

	t.Run("ANS003 normalizes become", func(t *testing.T) {
		ms := runRule(t, AnsiblePack(), "ANS003", "- hosts: all\n  become: yes\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "become: true" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("JENKINS001 missing timeout reported on pipeline header", func(t *testing.T) {
		content := "pipeline {\n  stages {\n  }\n}\n"
		if ms := runRule(t, JenkinsfilePack(), "JENKINS001", content); len(ms) != 1 {
			t.Errorf("got %d matches, want 1", len(ms))
		}
		withTimeout := "pipeline {\n  options { timeout(time: 30, unit: 'MINUTES') }\n}\n"
		if ms := runRule(t, JenkinsfilePack(), "JENKINS001", withTimeout); len(ms) != 0 {
			t.Errorf("timeout present but still flagged")
		}
	})

	t.Run("MD010 replaces hard tabs", func(t *testing.T) {
		ms := runRule(t, MarkdownPack(), "MD010", "col1\tcol2")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "col1    col2" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("YAML001 fixes tab indentation", func(t *testing.T) {
		ms := runRule(t, YAMLPack(), "YAML001", "key:\n\tvalue: 1")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "  value: 1" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})
}

func TestApachePack(t *testing.T) {
	p := ApachePack()

	t.Run("APACHE001 rewrites ServerTokens", func(t *testing.T) {
		ms := runRule(t, p, "APACHE001", "ServerTokens Full\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "ServerTokens Prod" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
		if ms := runRule(t, p, "APACHE001", "ServerTokens Prod\n"); len(ms) != 0 {
			t.Errorf("Prod flagged")
		}
		if ms := runRule(t, p, "APACHE001", "# ServerTokens Full\n"); len(ms) != 0 {
			t.Errorf("comment flagged")
		}
	})

	t.Run("APACHE002 rewrites ServerSignature", func(t *testing.T) {
		ms := runRule(t, p, "APACHE002", "ServerSignature On\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "ServerSignature Off" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("APACHE003 TraceEnable is an error", func(t *testing.T) {
		ms := runRule(t, p, "APACHE003", "TraceEnable On\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "TraceEnable Off" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("APACHE004 removes +Indexes", func(t *testing.T) {
		ms := runRule(t, p, "APACHE004", "    Options +Indexes +FollowSymLinks\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "Options +FollowSymLinks" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("APACHE005 keeps the rewritten directive quiet", func(t *testing.T) {
		ms := runRule(t, p, "APACHE005", "AllowOverride All\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "AllowOverride None" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
		if ms := runRule(t, p, "APACHE005", "AllowOverride None\n"); len(ms) != 0 {
			t.Errorf("None flagged")
		}
	})

	t.Run("APACHE007 restricts weak protocols", func(t *testing.T) {
		ms := runRule(t, p, "APACHE007", "SSLProtocol all -SSLv3\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "SSLProtocol -all +TLSv1.2 +TLSv1.3" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
		if ms := runRule(t, p, "APACHE007", "SSLProtocol -all +TLSv1.2 +TLSv1.3\n"); len(ms) != 0 {
			t.Errorf("hardened protocol line flagged")
		}
	})

	t.Run("APACHE008 rewritten cipher suite is not re-flagged", func(t *testing.T) {
		ms := runRule(t, p, "APACHE008", "SSLCipherSuite RC4:HIGH\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if again := runRule(t, p, "APACHE008", ms[0].Fix.After+"\n"); len(again) != 0 {
			t.Errorf("replacement suite flagged")
		}
	})
}

func TestGitLabCIPack(t *testing.T) {
	p := GitLabCIPack()

	t.Run("GL001 replaces tabs", func(t *testing.T) {
		ms := runRule(t, p, "GL001", "build:\n\tscript: make\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "  script: make" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("GL002 strips trailing whitespace", func(t *testing.T) {
		ms := runRule(t, p, "GL002", "stages:  \n  - build\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "stages:" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
	})

	t.Run("GL003 pins known images", func(t *testing.T) {
		ms := runRule(t, p, "GL003", "image: python:latest\n")
		if len(ms) != 1 || ms[0].Fix == nil {
			t.Fatalf("matches = %v", ms)
		}
		if ms[0].Fix.After != "python:3.11" {
			t.Errorf("After = %q", ms[0].Fix.After)
		}
		if ms := runRule(t, p, "GL003", "image: python:3.11\n"); len(ms) != 0 {
			t.Errorf("pinned image flagged")
		}
	})

	t.Run("GL004 piped install", func(t *testing.T) {
		content := "  script:\n    - curl -sSL https://example.com/install | bash\n"
		if ms := runRule(t, p, "GL004", content); len(ms) != 1 {
			t.Errorf("got %d matches, want 1", len(ms))
		}
	})

	t.Run("GL005 hardcoded secret is an error, variables pass", func(t *testing.T) {
		if ms := runRule(t, p, "GL005", "  password: hunter2\n"); len(ms) != 1 {
			t.Errorf("got %d matches, want 1", len(ms))
		}
		if ms := runRule(t, p, "GL005", "  password: $DB_PASSWORD\n"); len(ms) != 0 {
			t.Errorf("variable reference flagged")
		}
	})
}
