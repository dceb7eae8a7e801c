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

	"gopkg.in/yaml.v3"

	"github.com/rectifyhq/rectify/internal/lang"
)

var (
	reDockerFrom    = regexp.MustCompile(`(?i)^\s*FROM\s+(\S+)`)
	reAptGetInstall = regexp.MustCompile(`apt-get\s+install\b`)
	reDockerAdd     = regexp.MustCompile(`(?i)^\s*ADD\s+(\S+)`)
	reDockerUser    = regexp.MustCompile(`(?i)^\s*USER\s+(\S+)`)

	reYAMLImage      = regexp.MustCompile(`(image\s*:\s*)['"]?([A-Za-z0-9._/-]+(?::[A-Za-z0-9._-]+)?)['"]?`)
	rePrivilegedTrue = regexp.MustCompile(`privileged\s*:\s*true`)

	reHelmValuesRef = regexp.MustCompile(`\{\{\s*\.Values\.[A-Za-z0-9_.-]+\s*\}\}`)
	reHelmPullAlways = regexp.MustCompile(`(?i)^\s*imagePullPolicy\s*:\s*Always\s*$`)
)

// imagePins maps well-known image names to a concrete recent tag,
// used when rewriting :latest or untagged references.
var imagePins = map[string]string{
	"alpine":   "alpine:3.19",
	"python":   "python:3.11",
	"node":     "node:20",
	"nginx":    "nginx:1.25",
	"redis":    "redis:7.2",
	"postgres": "postgres:15.4",
	"mysql":    "mysql:8.1",
	"ubuntu":   "ubuntu:22.04",
	"debian":   "debian:12",
	"busybox":  "busybox:1.36",
}

// needsImagePin reports whether an image reference is :latest or has no
// tag at all.
func needsImagePin(image string) bool {
	return strings.HasSuffix(image, ":latest") || !strings.Contains(image, ":")
}

// pinImage rewrites an unpinned image reference to a concrete tag,
// preferring the known-image table and falling back to :1.0.0 as a
// placeholder the author must adjust.
func pinImage(image string) string {
	base := strings.TrimSuffix(image, ":latest")
	for name, pinned := range imagePins {
		if base == name || strings.HasSuffix(base, "/"+name) {
			return pinned
		}
	}
	return base + ":1.0.0"
}

// =============================================================================
// DOCKERFILE
// =============================================================================

// DockerfilePack returns the Dockerfile rule pack.
//
// Whole-file facts (presence of USER and WORKDIR directives) are seeded
// by Prepare so the missing-directive rules stay line-local.
func DockerfilePack() *Pack {
	return &Pack{
		Language: lang.LangDockerfile,
		Prepare: func(content string, fctx *FileContext) {
			for _, line := range strings.Split(content, "\n") {
				t := strings.ToUpper(strings.TrimSpace(line))
				if strings.HasPrefix(t, "USER ") {
					fctx.SetFlag("docker.has_user", true)
				}
				if strings.HasPrefix(t, "WORKDIR ") {
					fctx.SetFlag("docker.has_workdir", true)
				}
			}
		},
		Rules: []Rule{
			{ID: "DOCKER001", Severity: SeverityWarning, Check: checkDockerLatestImage},
			{ID: "DOCKER002", Severity: SeverityWarning, Check: checkDockerMissingWorkdir},
			{ID: "DOCKER003", Severity: SeverityWarning, Check: checkAptGetWithoutYes},
			{ID: "DOCKER004", Severity: SeverityWarning, Check: checkDockerRootUser},
			{ID: "DOCKER005", Severity: SeverityWarning, Check: checkDockerAddVsCopy},
		},
	}
}

func checkDockerLatestImage(line Line, _ *FileContext) *Match {
	m := reDockerFrom.FindStringSubmatch(line.Text)
	if m == nil {
		return nil
	}
	image := m[1]
	if image == "scratch" || !needsImagePin(image) {
		return nil
	}
	pinned := pinImage(image)
	return &Match{
		Column:  1,
		Message: "base image " + image + " is not pinned to a version",
		Fix: &FixSpec{
			Before:  image,
			After:   pinned,
			Message: "pinned base image to " + pinned,
		},
	}
}

// checkDockerMissingWorkdir reports once, on the first FROM line, when
// the file never sets a WORKDIR.
func checkDockerMissingWorkdir(line Line, fctx *FileContext) *Match {
	if fctx.Flag("docker.has_workdir") {
		return nil
	}
	if !reDockerFrom.MatchString(line.Text) {
		return nil
	}
	if fctx.Flag("docker.workdir_reported") {
		return nil
	}
	fctx.SetFlag("docker.workdir_reported", true)
	return &Match{
		Column:  1,
		Message: "no WORKDIR directive, commands run in the image root",
	}
}

func checkAptGetWithoutYes(line Line, _ *FileContext) *Match {
	loc := reAptGetInstall.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	if strings.Contains(line.Text, " -y") || strings.Contains(line.Text, "--yes") {
		return nil
	}
	before := strings.TrimSpace(line.Text)
	after := strings.Replace(before, "apt-get install", "apt-get install -y", 1)
	return &Match{
		Column:  loc[0] + 1,
		Message: "apt-get install without -y hangs on the confirmation prompt",
		Fix: &FixSpec{
			Before:  before,
			After:   after,
			Message: "added -y to apt-get install",
		},
	}
}

// checkDockerRootUser flags an explicit USER root and, on the last line,
// the absence of any USER directive.
func checkDockerRootUser(line Line, fctx *FileContext) *Match {
	if m := reDockerUser.FindStringSubmatch(line.Text); m != nil {
		if strings.EqualFold(m[1], "root") {
			return &Match{Column: 1, Message: "container runs as root via explicit USER root"}
		}
		return nil
	}
	if line.Number == line.Total && !fctx.Flag("docker.has_user") {
		return &Match{Column: 1, Message: "no USER directive, container runs as root"}
	}
	return nil
}

func checkDockerAddVsCopy(line Line, _ *FileContext) *Match {
	m := reDockerAdd.FindStringSubmatch(line.Text)
	if m == nil {
		return nil
	}
	src := m[1]
	// ADD is legitimate for remote URLs and archive extraction.
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") ||
		strings.Contains(src, ".tar") || strings.HasSuffix(src, ".tgz") {
		return nil
	}
	before := strings.TrimSpace(line.Text)
	after := strings.Replace(before, "ADD", "COPY", 1)
	return &Match{
		Column:  1,
		Message: "prefer COPY over ADD for plain files",
		Fix: &FixSpec{
			Before:  before,
			After:   after,
			Message: "replaced ADD with COPY",
		},
	}
}

// =============================================================================
// DOCKER COMPOSE
// =============================================================================

// DockerComposePack returns the compose-file rule pack. Prepare parses
// the document so malformed YAML surfaces as a single error instead of
// noise from the line rules.
func DockerComposePack() *Pack {
	return &Pack{
		Language: lang.LangDockerCompose,
		Prepare:  prepareYAMLValidity("compose.invalid"),
		Rules: []Rule{
			{ID: "COMPOSE999", Severity: SeverityError, Check: invalidYAMLCheck("compose.invalid")},
			{ID: "COMPOSE001", Severity: SeverityWarning, Check: guardedByYAML("compose.invalid", checkYAMLUnpinnedImage)},
			{ID: "COMPOSE002", Severity: SeverityError, Check: guardedByYAML("compose.invalid", checkPrivilegedTrue)},
		},
	}
}

// prepareYAMLValidity returns a Prepare func that sets flag when the
// content is not parseable YAML.
func prepareYAMLValidity(flag string) func(string, *FileContext) {
	return func(content string, fctx *FileContext) {
		var doc any
		if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
			fctx.SetFlag(flag, true)
		}
	}
}

// invalidYAMLCheck reports a single line-1 finding when the validity
// flag is set.
func invalidYAMLCheck(flag string) func(Line, *FileContext) *Match {
	return func(line Line, fctx *FileContext) *Match {
		if line.Number != 1 || !fctx.Flag(flag) {
			return nil
		}
		return &Match{Column: 1, Message: "file is not valid YAML"}
	}
}

// guardedByYAML suppresses a rule entirely when the document failed to
// parse.
func guardedByYAML(flag string, check func(Line, *FileContext) *Match) func(Line, *FileContext) *Match {
	return func(line Line, fctx *FileContext) *Match {
		if fctx.Flag(flag) {
			return nil
		}
		return check(line, fctx)
	}
}

func checkYAMLUnpinnedImage(line Line, _ *FileContext) *Match {
	m := reYAMLImage.FindStringSubmatch(line.Text)
	if m == nil {
		return nil
	}
	image := m[2]
	if !needsImagePin(image) {
		return nil
	}
	loc := reYAMLImage.FindStringIndex(line.Text)
	pinned := pinImage(image)
	return &Match{
		Column:  loc[0] + 1,
		Message: "image " + image + " is not pinned to a version",
		Fix: &FixSpec{
			Before:  m[1] + image,
			After:   m[1] + pinned,
			Message: "pinned image to " + pinned,
		},
	}
}

func checkPrivilegedTrue(line Line, _ *FileContext) *Match {
	loc := rePrivilegedTrue.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	before := strings.TrimSpace(line.Text)
	after := strings.Replace(before, "true", "false", 1)
	return &Match{
		Column:  loc[0] + 1,
		Message: "privileged mode grants full host access",
		Fix: &FixSpec{
			Before:  before,
			After:   after,
			Message: "disabled privileged mode",
		},
	}
}

// =============================================================================
// KUBERNETES
// =============================================================================

// KubernetesPack returns the kubernetes-manifest rule pack.
func KubernetesPack() *Pack {
	return &Pack{
		Language: lang.LangKubernetes,
		Prepare: func(content string, fctx *FileContext) {
			prepareYAMLValidity("k8s.invalid")(content, fctx)
			if strings.Contains(content, "resources:") {
				fctx.SetFlag("k8s.has_resources", true)
			}
		},
		Rules: []Rule{
			{ID: "K8S999", Severity: SeverityError, Check: invalidYAMLCheck("k8s.invalid")},
			{ID: "K8S001", Severity: SeverityWarning, Check: guardedByYAML("k8s.invalid", checkYAMLUnpinnedImage)},
			{ID: "K8S002", Severity: SeverityWarning, Check: guardedByYAML("k8s.invalid", checkK8SMissingResources)},
			{ID: "K8S003", Severity: SeverityError, Check: guardedByYAML("k8s.invalid", checkPrivilegedTrue)},
		},
	}
}

// checkK8SMissingResources reports once, on the containers: line, when
// the manifest declares no resource limits anywhere.
func checkK8SMissingResources(line Line, fctx *FileContext) *Match {
	if fctx.Flag("k8s.has_resources") || fctx.Flag("k8s.resources_reported") {
		return nil
	}
	if !strings.HasPrefix(strings.TrimSpace(line.Text), "containers:") {
		return nil
	}
	fctx.SetFlag("k8s.resources_reported", true)
	return &Match{
		Column:  1,
		Message: "containers declare no resource requests or limits",
	}
}

// =============================================================================
// HELM
// =============================================================================

// HelmPack returns the helm chart and template rule pack.
func HelmPack() *Pack {
	return &Pack{
		Language: lang.LangHelm,
		Rules: []Rule{
			{ID: "HELM001", Severity: SeverityWarning, Check: checkHelmBareValuesRef},
			{ID: "HELM002", Severity: SeverityWarning, Check: checkYAMLUnpinnedImage},
			{ID: "HELM003", Severity: SeverityWarning, Check: checkHelmPullAlways},
		},
	}
}

// checkHelmBareValuesRef flags {{ .Values.x }} without a default or
// required wrapper, which renders as nil when the value is unset.
func checkHelmBareValuesRef(line Line, _ *FileContext) *Match {
	loc := reHelmValuesRef.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	if strings.Contains(line.Text, "default ") || strings.Contains(line.Text, "required ") {
		return nil
	}
	return &Match{
		Column:  loc[0] + 1,
		Message: "bare .Values reference renders as nil when unset, wrap in default or required",
	}
}

func checkHelmPullAlways(line Line, _ *FileContext) *Match {
	if !reHelmPullAlways.MatchString(line.Text) {
		return nil
	}
	before := strings.TrimSpace(line.Text)
	after := strings.Replace(before, "Always", "IfNotPresent", 1)
	return &Match{
		Column:  1,
		Message: "imagePullPolicy Always refetches the image on every start",
		Fix: &FixSpec{
			Before:  before,
			After:   after,
			Message: "changed imagePullPolicy to IfNotPresent",
		},
	}
}
