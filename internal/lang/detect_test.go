// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package lang

import "testing"

func TestDetect_Filename(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		content  string
		want     Language
	}{
		{"dockerfile", "Dockerfile", "", LangDockerfile},
		{"dockerfile variant", "Dockerfile.prod", "", LangDockerfile},
		{"compose", "docker-compose.yml", "", LangDockerCompose},
		{"compose short", "compose.yaml", "", LangDockerCompose},
		{"jenkinsfile", "Jenkinsfile", "", LangJenkinsfile},
		{"chart", "Chart.yaml", "", LangHelm},
		{"nginx", "nginx.conf", "", LangNginx},
		{"apache httpd", "httpd.conf", "", LangApache},
		{"apache debian", "apache2.conf", "", LangApache},
		{"htaccess", ".htaccess", "", LangApache},
		{"gitlab ci", ".gitlab-ci.yml", "", LangGitLabCI},
		{"gitlab ci nested", "repo/.gitlab-ci.yml", "", LangGitLabCI},
		{"workflow path", ".github/workflows/ci.yml", "", LangGitHubActions},
		{"playbook name", "playbook.yml", "", LangAnsible},
		{"python ext", "app.py", "", LangPython},
		{"shell ext", "deploy.sh", "", LangBash},
		{"typescript ext", "main.ts", "", LangTypeScript},
		{"terraform ext", "main.tf", "", LangTerraform},
		{"markdown ext", "README.md", "", LangMarkdown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect(tc.content, tc.filename); got != tc.want {
				t.Errorf("Detect(%q) = %q, want %q", tc.filename, got, tc.want)
			}
		})
	}
}

func TestDetect_Content(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    Language
	}{
		{"python shebang", "#!/usr/bin/env python3\nx = 1", LangPython},
		{"bash shebang", "#!/bin/bash\necho hi", LangBash},
		{"node shebang", "#!/usr/bin/env node\nfoo()", LangNodeJS},
		{"python def", "def main():\n    pass", LangPython},
		{"python main guard", "if __name__ == '__main__':\n    run()", LangPython},
		{"php open tag", "<?php\necho 'x';", LangPHP},
		{"node require", "const fs = require('fs')", LangNodeJS},
		{"js arrow", "items.forEach(x => {\n  render(x)\n})", LangJavaScript},
		{"bash loop", "for f in *.txt\ndo\n  cat $f\ndone", LangBash},
		{"dockerfile content", "FROM alpine:3.19\nRUN apk add curl", LangDockerfile},
		{"compose content", "services:\n  web:\n    image: nginx", LangDockerCompose},
		{"kubernetes content", "apiVersion: v1\nkind: Pod\nmetadata: {}", LangKubernetes},
		{"helm template", "image: {{ .Values.image.repo }}", LangHelm},
		{"terraform content", `resource "aws_instance" "web" {}`, LangTerraform},
		{"sql content", "SELECT id FROM users;", LangSQL},
		{"workflow content", "on:\n  push:\njobs:\n  build:\n    steps: []", LangGitHubActions},
		{"ansible content", "- hosts: all\n  tasks: []", LangAnsible},
		{"jenkins content", "pipeline {\n  stages {\n  }\n}", LangJenkinsfile},
		{"nginx content", "server {\n  listen 80;\n}", LangNginx},
		{"empty falls back", "", DefaultLanguage},
		{"plain text falls back", "hello world", DefaultLanguage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect(tc.content, ""); got != tc.want {
				t.Errorf("Detect(%q) = %q, want %q", tc.content, got, tc.want)
			}
		})
	}
}

// Detection is a pure function: the same input must classify the same
// way on every call.
func TestDetect_Deterministic(t *testing.T) {
	content := "services:\n  app:\n    image: redis\nkind: x"
	first := Detect(content, "")
	for i := 0; i < 50; i++ {
		if got := Detect(content, ""); got != first {
			t.Fatalf("Detect unstable: run %d got %q, first run got %q", i, got, first)
		}
	}
}

func TestParse(t *testing.T) {
	if l, ok := Parse("Python"); !ok || l != LangPython {
		t.Errorf("Parse(Python) = %q, %v", l, ok)
	}
	if l, ok := Parse(" bash "); !ok || l != LangBash {
		t.Errorf("Parse(bash) = %q, %v", l, ok)
	}
	if l, ok := Parse("generic"); !ok || l != LangGeneric {
		t.Errorf("Parse(generic) = %q, %v", l, ok)
	}
	if l, ok := Parse("cobol"); ok || l != DefaultLanguage {
		t.Errorf("Parse(cobol) = %q, %v, want default and false", l, ok)
	}
}

func TestCommentPrefix(t *testing.T) {
	cases := map[Language]string{
		LangBash:        "#",
		LangPython:      "#",
		LangJavaScript:  "//",
		LangPHP:         "//",
		LangSQL:         "--",
		LangMarkdown:    "",
		LangGeneric:     "",
		LangJenkinsfile: "//",
	}
	for l, want := range cases {
		if got := l.CommentPrefix(); got != want {
			t.Errorf("CommentPrefix(%s) = %q, want %q", l, got, want)
		}
	}
}

func TestAll_StableOrder(t *testing.T) {
	a, b := All(), All()
	if len(a) != len(b) {
		t.Fatalf("All() length unstable: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("All() order unstable at %d: %q vs %q", i, a[i], b[i])
		}
	}
}
