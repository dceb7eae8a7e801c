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

var (
	reTFSecretAssign = regexp.MustCompile(`(?i)\b(password|secret|token|api_key|access_key)\s*=\s*"[^"$]+"`)
	reTFOpenCIDR     = regexp.MustCompile(`0\.0\.0\.0/0`)

	reSQLSelectStar = regexp.MustCompile(`(?i)\bSELECT\s+\*`)
	reSQLDelete     = regexp.MustCompile(`(?i)\bDELETE\s+FROM\b`)
	reSQLUpdate     = regexp.MustCompile(`(?i)\bUPDATE\s+\S+\s+SET\b`)

	reNginxTokensOn = regexp.MustCompile(`server_tokens\s+on\s*;`)
	reNginxListen80 = regexp.MustCompile(`\blisten\s+80\b`)
	reNginxAutoidx  = regexp.MustCompile(`autoindex\s+on\s*;`)

	reApacheOptsIdx = regexp.MustCompile(`\bOptions\b.*\+Indexes`)
	reApacheWeakTLS = regexp.MustCompile(`\bSSLv2\b|\bSSLv3\b|\bTLSv1\s`)

	reGitLabImage  = regexp.MustCompile(`^\s*image\s*:\s*([^\s#]+)\s*$`)
	reGitLabPipeSh = regexp.MustCompile(`\b(curl|wget)\b.*\|.*\b(bash|sh)\b`)
	reGitLabSecret = regexp.MustCompile(`(?i)\b(password|token|secret|key)\s*:\s*([^\s#]+)`)

	reGHAUses       = regexp.MustCompile(`\buses\s*:\s*(\S+)`)
	reGHAPRTarget   = regexp.MustCompile(`\bpull_request_target\b`)
	reAnsibleShell  = regexp.MustCompile(`^\s*(?:-\s+)?(command|shell)\s*:`)
	reAnsibleBecome = regexp.MustCompile(`^(\s*)become\s*:\s*(yes|no)\s*$`)

	reJenkinsShQuote = regexp.MustCompile(`\bsh\s+"[^"]*\$\{`)
	reJenkinsImage   = regexp.MustCompile(`\bimage\s+['"]([^'"]+)['"]`)

	reMarkdownBareURL = regexp.MustCompile(`(^|\s)(https?://\S+)`)
)

// =============================================================================
// TERRAFORM
// =============================================================================

// TerraformPack returns the terraform rule pack.
func TerraformPack() *Pack {
	return &Pack{
		Language: lang.LangTerraform,
		Rules: []Rule{
			{ID: "TF001", Severity: SeverityError, Check: checkTFHardcodedSecret},
			{ID: "TF002", Severity: SeverityWarning, Check: checkTFOpenIngress},
		},
	}
}

func checkTFHardcodedSecret(line Line, _ *FileContext) *Match {
	loc := reTFSecretAssign.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	if strings.Contains(line.Text, "var.") || strings.Contains(line.Text, "data.") {
		return nil
	}
	return &Match{
		Column:  loc[0] + 1,
		Message: "hardcoded credential, use a variable or a secrets manager",
	}
}

func checkTFOpenIngress(line Line, _ *FileContext) *Match {
	loc := reTFOpenCIDR.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	return &Match{
		Column:  loc[0] + 1,
		Message: "0.0.0.0/0 opens the resource to the whole internet",
	}
}

// =============================================================================
// SQL
// =============================================================================

// SQLPack returns the sql rule pack.
func SQLPack() *Pack {
	return &Pack{
		Language: lang.LangSQL,
		Rules: []Rule{
			{ID: "SQL001", Severity: SeverityWarning, Check: checkSQLSelectStar},
			{ID: "SQL002", Severity: SeverityError, Check: checkSQLUnboundedWrite},
		},
	}
}

func checkSQLSelectStar(line Line, _ *FileContext) *Match {
	loc := reSQLSelectStar.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	return &Match{
		Column:  loc[0] + 1,
		Message: "SELECT * couples the query to the table layout, list the columns",
	}
}

// checkSQLUnboundedWrite flags DELETE and UPDATE statements with no
// WHERE clause on the same line.
func checkSQLUnboundedWrite(line Line, _ *FileContext) *Match {
	locDel := reSQLDelete.FindStringIndex(line.Text)
	locUpd := reSQLUpdate.FindStringIndex(line.Text)
	if locDel == nil && locUpd == nil {
		return nil
	}
	if strings.Contains(strings.ToUpper(line.Text), "WHERE") {
		return nil
	}
	loc := locDel
	verb := "DELETE"
	if loc == nil {
		loc = locUpd
		verb = "UPDATE"
	}
	return &Match{
		Column:  loc[0] + 1,
		Message: verb + " without WHERE affects every row",
	}
}

// =============================================================================
// NGINX
// =============================================================================

// NginxPack returns the nginx configuration rule pack.
func NginxPack() *Pack {
	return &Pack{
		Language: lang.LangNginx,
		Rules: []Rule{
			{ID: "NGINX001", Severity: SeverityWarning, Check: checkNginxServerTokens},
			{ID: "NGINX002", Severity: SeverityWarning, Check: checkNginxPlainHTTP},
			{ID: "NGINX003", Severity: SeverityWarning, Check: checkNginxAutoindex},
		},
	}
}

func checkNginxServerTokens(line Line, _ *FileContext) *Match {
	loc := reNginxTokensOn.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	before := strings.TrimSpace(line.Text)
	after := strings.Replace(before, "on", "off", 1)
	return &Match{
		Column:  loc[0] + 1,
		Message: "server_tokens on leaks the nginx version in headers",
		Fix: &FixSpec{
			Before:  before,
			After:   after,
			Message: "disabled server_tokens",
		},
	}
}

// checkNginxPlainHTTP reports a port-80 listener in a file that
// configures no TLS at all.
func checkNginxPlainHTTP(line Line, _ *FileContext) *Match {
	loc := reNginxListen80.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	if strings.Contains(line.Text, "ssl") {
		return nil
	}
	return &Match{
		Column:  loc[0] + 1,
		Message: "plain HTTP listener on port 80, add TLS or a redirect to https",
	}
}

func checkNginxAutoindex(line Line, _ *FileContext) *Match {
	loc := reNginxAutoidx.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	before := strings.TrimSpace(line.Text)
	after := strings.Replace(before, "on", "off", 1)
	return &Match{
		Column:  loc[0] + 1,
		Message: "autoindex on exposes directory listings",
		Fix: &FixSpec{
			Before:  before,
			After:   after,
			Message: "disabled autoindex",
		},
	}
}

// =============================================================================
// APACHE
// =============================================================================

// ApachePack returns the Apache httpd configuration rule pack.
func ApachePack() *Pack {
	return &Pack{
		Language: lang.LangApache,
		Rules: []Rule{
			{ID: "APACHE001", Severity: SeverityWarning, Check: checkApacheServerTokens},
			{ID: "APACHE002", Severity: SeverityWarning, Check: checkApacheServerSignature},
			{ID: "APACHE003", Severity: SeverityError, Check: checkApacheTraceEnable},
			{ID: "APACHE004", Severity: SeverityWarning, Check: checkApacheIndexes},
			{ID: "APACHE005", Severity: SeverityWarning, Check: checkApacheAllowOverride},
			{ID: "APACHE007", Severity: SeverityError, Check: checkApacheWeakTLS},
			{ID: "APACHE008", Severity: SeverityError, Check: checkApacheWeakCiphers},
		},
	}
}

// apacheDirective returns the trimmed line when it is an uncommented
// directive starting with name (case-insensitive), "" otherwise.
func apacheDirective(text, name string) string {
	stripped := strings.TrimSpace(text)
	if stripped == "" || strings.HasPrefix(stripped, "#") {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(stripped), name) {
		return ""
	}
	return stripped
}

func checkApacheServerTokens(line Line, _ *FileContext) *Match {
	stripped := apacheDirective(line.Text, "servertokens")
	if stripped == "" {
		return nil
	}
	if strings.Contains(stripped, "Prod") || strings.Contains(stripped, "ProductOnly") {
		return nil
	}
	return &Match{
		Column:  1,
		Message: "ServerTokens leaks server details, set it to Prod",
		Fix: &FixSpec{
			Before:  stripped,
			After:   "ServerTokens Prod",
			Message: "set ServerTokens to Prod",
		},
	}
}

func checkApacheServerSignature(line Line, _ *FileContext) *Match {
	stripped := apacheDirective(line.Text, "serversignature")
	if stripped == "" || strings.Contains(stripped, "Off") {
		return nil
	}
	return &Match{
		Column:  1,
		Message: "ServerSignature appends server details to generated pages, set it to Off",
		Fix: &FixSpec{
			Before:  stripped,
			After:   "ServerSignature Off",
			Message: "set ServerSignature to Off",
		},
	}
}

// checkApacheTraceEnable flags an enabled TRACE method, usable for
// cross-site tracing.
func checkApacheTraceEnable(line Line, _ *FileContext) *Match {
	stripped := apacheDirective(line.Text, "traceenable")
	if stripped == "" || strings.Contains(stripped, "Off") {
		return nil
	}
	return &Match{
		Column:  1,
		Message: "TraceEnable on allows the TRACE method, set it to Off",
		Fix: &FixSpec{
			Before:  stripped,
			After:   "TraceEnable Off",
			Message: "set TraceEnable to Off",
		},
	}
}

func checkApacheIndexes(line Line, _ *FileContext) *Match {
	stripped := strings.TrimSpace(line.Text)
	if strings.HasPrefix(stripped, "#") {
		return nil
	}
	loc := reApacheOptsIdx.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	after := strings.TrimSpace(strings.ReplaceAll(strings.Replace(stripped, "+Indexes", "", 1), "  ", " "))
	return &Match{
		Column:  loc[0] + 1,
		Message: "+Indexes enables directory listings",
		Fix: &FixSpec{
			Before:  stripped,
			After:   after,
			Message: "removed +Indexes from Options",
		},
	}
}

func checkApacheAllowOverride(line Line, _ *FileContext) *Match {
	stripped := apacheDirective(line.Text, "allowoverride")
	if stripped == "" {
		return nil
	}
	parts := strings.Fields(stripped)
	if len(parts) < 2 || parts[1] != "All" {
		return nil
	}
	return &Match{
		Column:  1,
		Message: "AllowOverride All lets any .htaccess change the server config",
		Fix: &FixSpec{
			Before:  stripped,
			After:   "AllowOverride None",
			Message: "set AllowOverride to None",
		},
	}
}

func checkApacheWeakTLS(line Line, _ *FileContext) *Match {
	stripped := apacheDirective(line.Text, "sslprotocol")
	if stripped == "" {
		return nil
	}
	if !reApacheWeakTLS.MatchString(stripped) {
		return nil
	}
	return &Match{
		Column:  1,
		Message: "SSLProtocol permits broken protocol versions, require TLS 1.2 or newer",
		Fix: &FixSpec{
			Before:  stripped,
			After:   "SSLProtocol -all +TLSv1.2 +TLSv1.3",
			Message: "restricted SSLProtocol to TLS 1.2+",
		},
	}
}

// apacheSafeCiphers is the replacement suite; its negated entries name
// the broken ciphers, so rewritten lines must be exempt from the scan.
const apacheSafeCiphers = "SSLCipherSuite HIGH:!aNULL:!MD5:!3DES:!RC4"

func checkApacheWeakCiphers(line Line, _ *FileContext) *Match {
	stripped := apacheDirective(line.Text, "sslciphersuite")
	if stripped == "" || strings.HasPrefix(stripped, apacheSafeCiphers) {
		return nil
	}
	upper := strings.ToUpper(stripped)
	weak := false
	for _, c := range []string{"RC4", "MD5", "DES", "EXPORT", "NULL"} {
		if strings.Contains(upper, c) {
			weak = true
			break
		}
	}
	if !weak {
		return nil
	}
	return &Match{
		Column:  1,
		Message: "SSLCipherSuite includes broken ciphers",
		Fix: &FixSpec{
			Before:  stripped,
			After:   apacheSafeCiphers,
			Message: "removed broken ciphers from SSLCipherSuite",
		},
	}
}

// =============================================================================
// GITHUB ACTIONS
// =============================================================================

// GitHubActionsPack returns the workflow rule pack.
func GitHubActionsPack() *Pack {
	return &Pack{
		Language: lang.LangGitHubActions,
		Rules: []Rule{
			{ID: "GHA001", Severity: SeverityWarning, Check: checkGHAUnpinnedAction},
			{ID: "GHA002", Severity: SeverityError, Check: checkGHAPullRequestTarget},
		},
	}
}

// checkGHAUnpinnedAction flags uses: references pinned to a moving
// branch or to nothing at all.
func checkGHAUnpinnedAction(line Line, _ *FileContext) *Match {
	m := reGHAUses.FindStringSubmatch(line.Text)
	if m == nil {
		return nil
	}
	ref := m[1]
	// Local and docker references follow their own pinning rules.
	if strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "docker://") {
		return nil
	}
	_, version, found := strings.Cut(ref, "@")
	if found && version != "main" && version != "master" {
		return nil
	}
	loc := reGHAUses.FindStringIndex(line.Text)
	return &Match{
		Column:  loc[0] + 1,
		Message: "action " + ref + " is not pinned to a tag or commit",
	}
}

func checkGHAPullRequestTarget(line Line, _ *FileContext) *Match {
	loc := reGHAPRTarget.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	return &Match{
		Column:  loc[0] + 1,
		Message: "pull_request_target runs untrusted code with repository secrets",
	}
}

// =============================================================================
// GITLAB CI
// =============================================================================

// GitLabCIPack returns the .gitlab-ci.yml rule pack.
func GitLabCIPack() *Pack {
	return &Pack{
		Language: lang.LangGitLabCI,
		Rules: []Rule{
			{ID: "GL001", Severity: SeverityWarning, Check: checkGitLabTab},
			{ID: "GL002", Severity: SeverityWarning, Check: checkGitLabTrailingSpace},
			{ID: "GL003", Severity: SeverityWarning, Check: checkGitLabUnpinnedImage},
			{ID: "GL004", Severity: SeverityWarning, Check: checkGitLabPipedInstall},
			{ID: "GL005", Severity: SeverityError, Check: checkGitLabHardcodedSecret},
		},
	}
}

func checkGitLabTab(line Line, _ *FileContext) *Match {
	col := strings.IndexByte(line.Text, '\t')
	if col < 0 {
		return nil
	}
	return &Match{
		Column:  col + 1,
		Message: "tabs break YAML parsing",
		Fix: &FixSpec{
			Before:  line.Text,
			After:   strings.ReplaceAll(line.Text, "\t", "  "),
			Message: "replaced tabs with spaces",
		},
	}
}

func checkGitLabTrailingSpace(line Line, _ *FileContext) *Match {
	trimmed := strings.TrimRight(line.Text, " \t")
	if trimmed == line.Text {
		return nil
	}
	return &Match{
		Column:  len(trimmed) + 1,
		Message: "trailing whitespace",
		Fix: &FixSpec{
			Before:  line.Text,
			After:   trimmed,
			Message: "removed trailing whitespace",
		},
	}
}

func checkGitLabUnpinnedImage(line Line, _ *FileContext) *Match {
	m := reGitLabImage.FindStringSubmatch(line.Text)
	if m == nil {
		return nil
	}
	image := strings.Trim(m[1], `"'`)
	if !needsImagePin(image) {
		return nil
	}
	loc := reGitLabImage.FindStringIndex(line.Text)
	pinned := pinImage(image)
	return &Match{
		Column:  loc[0] + 1,
		Message: "image " + image + " is not pinned to a version",
		Fix: &FixSpec{
			Before:  m[1],
			After:   pinned,
			Message: "pinned image to " + pinned,
		},
	}
}

func checkGitLabPipedInstall(line Line, _ *FileContext) *Match {
	loc := reGitLabPipeSh.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	return &Match{
		Column:  loc[0] + 1,
		Message: "downloading and piping straight into a shell runs unverified code",
	}
}

func checkGitLabHardcodedSecret(line Line, _ *FileContext) *Match {
	m := reGitLabSecret.FindStringSubmatchIndex(line.Text)
	if m == nil {
		return nil
	}
	value := line.Text[m[4]:m[5]]
	if strings.HasPrefix(value, "$") {
		return nil
	}
	return &Match{
		Column:  m[0] + 1,
		Message: "hardcoded secret, use a CI/CD variable",
	}
}

// =============================================================================
// ANSIBLE
// =============================================================================

// AnsiblePack returns the ansible playbook rule pack.
func AnsiblePack() *Pack {
	return &Pack{
		Language: lang.LangAnsible,
		Prepare: func(content string, fctx *FileContext) {
			if strings.Contains(content, "become:") {
				fctx.SetFlag("ansible.has_become", true)
			}
		},
		Rules: []Rule{
			{ID: "ANS001", Severity: SeverityWarning, Check: checkAnsibleRawCommand},
			{ID: "ANS002", Severity: SeverityWarning, Check: checkAnsibleMissingBecome},
			{ID: "ANS003", Severity: SeverityWarning, Check: checkAnsibleTruthyBecome},
		},
	}
}

func checkAnsibleRawCommand(line Line, _ *FileContext) *Match {
	m := reAnsibleShell.FindStringSubmatch(line.Text)
	if m == nil {
		return nil
	}
	return &Match{
		Column:  1,
		Message: m[1] + " is not idempotent, prefer a dedicated module",
	}
}

// checkAnsibleMissingBecome reports once, on the first play header, when
// the playbook never states a become policy.
func checkAnsibleMissingBecome(line Line, fctx *FileContext) *Match {
	if fctx.Flag("ansible.has_become") || fctx.Flag("ansible.become_reported") {
		return nil
	}
	if !strings.HasPrefix(strings.TrimSpace(line.Text), "- hosts:") {
		return nil
	}
	fctx.SetFlag("ansible.become_reported", true)
	return &Match{
		Column:  1,
		Message: "play states no become policy, privilege escalation is implicit",
	}
}

// checkAnsibleTruthyBecome rewrites the legacy yes/no booleans to the
// YAML 1.2 spelling.
func checkAnsibleTruthyBecome(line Line, _ *FileContext) *Match {
	m := reAnsibleBecome.FindStringSubmatch(line.Text)
	if m == nil {
		return nil
	}
	canonical := "true"
	if m[2] == "no" {
		canonical = "false"
	}
	before := strings.TrimSpace(line.Text)
	after := "become: " + canonical
	return &Match{
		Column:  len(m[1]) + 1,
		Message: "use true/false for become, yes/no is a YAML 1.1 spelling",
		Fix: &FixSpec{
			Before:  before,
			After:   after,
			Message: "normalized become to " + canonical,
		},
	}
}

// =============================================================================
// JENKINSFILE
// =============================================================================

// JenkinsfilePack returns the Jenkins pipeline rule pack.
func JenkinsfilePack() *Pack {
	return &Pack{
		Language: lang.LangJenkinsfile,
		Prepare: func(content string, fctx *FileContext) {
			if strings.Contains(content, "timeout(") {
				fctx.SetFlag("jenkins.has_timeout", true)
			}
		},
		Rules: []Rule{
			{ID: "JENKINS001", Severity: SeverityWarning, Check: checkJenkinsMissingTimeout},
			{ID: "JENKINS002", Severity: SeverityWarning, Check: checkJenkinsShellInterpolation},
			{ID: "JENKINS003", Severity: SeverityWarning, Check: checkJenkinsUnpinnedImage},
		},
	}
}

func checkJenkinsMissingTimeout(line Line, fctx *FileContext) *Match {
	if fctx.Flag("jenkins.has_timeout") || fctx.Flag("jenkins.timeout_reported") {
		return nil
	}
	if !strings.HasPrefix(strings.TrimSpace(line.Text), "pipeline {") {
		return nil
	}
	fctx.SetFlag("jenkins.timeout_reported", true)
	return &Match{
		Column:  1,
		Message: "pipeline has no timeout, a hung stage blocks the executor forever",
	}
}

// checkJenkinsShellInterpolation flags Groovy ${} interpolation inside a
// double-quoted sh step, which injects unescaped values into the shell.
func checkJenkinsShellInterpolation(line Line, _ *FileContext) *Match {
	loc := reJenkinsShQuote.FindStringIndex(line.Text)
	if loc == nil {
		return nil
	}
	return &Match{
		Column:  loc[0] + 1,
		Message: "Groovy interpolation in sh step, use single quotes and environment variables",
	}
}

func checkJenkinsUnpinnedImage(line Line, _ *FileContext) *Match {
	m := reJenkinsImage.FindStringSubmatch(line.Text)
	if m == nil {
		return nil
	}
	image := m[1]
	if !needsImagePin(image) {
		return nil
	}
	loc := reJenkinsImage.FindStringIndex(line.Text)
	pinned := pinImage(image)
	return &Match{
		Column:  loc[0] + 1,
		Message: "agent image " + image + " is not pinned to a version",
		Fix: &FixSpec{
			Before:  image,
			After:   pinned,
			Message: "pinned agent image to " + pinned,
		},
	}
}

// =============================================================================
// MARKDOWN
// =============================================================================

// MarkdownPack returns the markdown rule pack. Markdown has no safe
// line-comment syntax so its fixes apply without annotation.
func MarkdownPack() *Pack {
	return &Pack{
		Language: lang.LangMarkdown,
		Rules: []Rule{
			{ID: "MD001", Severity: SeverityWarning, Check: checkMarkdownBareURL},
			{ID: "MD010", Severity: SeverityWarning, Check: checkMarkdownHardTab},
		},
	}
}

func checkMarkdownBareURL(line Line, _ *FileContext) *Match {
	if strings.Contains(line.Text, "](") || strings.Contains(line.Text, "`") ||
		strings.Contains(line.Text, "<http") {
		return nil
	}
	m := reMarkdownBareURL.FindStringSubmatchIndex(line.Text)
	if m == nil {
		return nil
	}
	return &Match{
		Column:  m[4] + 1,
		Message: "bare URL, wrap it in a link or angle brackets",
	}
}

func checkMarkdownHardTab(line Line, _ *FileContext) *Match {
	col := strings.IndexByte(line.Text, '\t')
	if col < 0 {
		return nil
	}
	before := line.Text
	after := strings.ReplaceAll(line.Text, "\t", "    ")
	return &Match{
		Column:  col + 1,
		Message: "hard tab renders inconsistently, use spaces",
		Fix: &FixSpec{
			Before:  before,
			After:   after,
			Message: "replaced hard tabs with spaces",
		},
	}
}

// =============================================================================
// YAML
// =============================================================================

// YAMLPack returns the plain-YAML rule pack, the fallback for .yml files
// that match no more specific format.
func YAMLPack() *Pack {
	return &Pack{
		Language: lang.LangYAML,
		Prepare:  prepareYAMLValidity("yaml.invalid"),
		Rules: []Rule{
			{ID: "YAML999", Severity: SeverityError, Check: invalidYAMLCheck("yaml.invalid")},
			{ID: "YAML001", Severity: SeverityError, Check: checkYAMLLeadingTab},
		},
	}
}

// checkYAMLLeadingTab flags tab indentation, which YAML forbids.
func checkYAMLLeadingTab(line Line, _ *FileContext) *Match {
	if !strings.HasPrefix(line.Text, "\t") {
		return nil
	}
	tabs := 0
	for tabs < len(line.Text) && line.Text[tabs] == '\t' {
		tabs++
	}
	before := line.Text
	after := strings.Repeat("  ", tabs) + line.Text[tabs:]
	return &Match{
		Column:  1,
		Message: "tab indentation is invalid YAML",
		Fix: &FixSpec{
			Before:  before,
			After:   after,
			Message: "replaced tab indentation with spaces",
		},
	}
}
