// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package sandbox validates fixed code inside a container.
//
// A sandbox run is a linear state machine: Idle, ArtifactsGenerated,
// Built, Ran, Tested, Reported, with Failed absorbing any stage error.
// Whatever happens, the run ends in Reported: the status file is
// written even when the very first stage fails, so a consumer always
// finds a complete record. The original project tree is never touched;
// everything happens under <project>/.rectify/.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rectifyhq/rectify/internal/config"
	"github.com/rectifyhq/rectify/internal/lang"
	"github.com/rectifyhq/rectify/pkg/logging"
)

// WorkDirName is the sandbox directory created inside the project.
const WorkDirName = ".rectify"

// State is the orchestrator position in the run.
type State int

const (
	StateIdle State = iota
	StateArtifactsGenerated
	StateBuilt
	StateRan
	StateTested
	StateReported
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArtifactsGenerated:
		return "artifacts-generated"
	case StateBuilt:
		return "built"
	case StateRan:
		return "ran"
	case StateTested:
		return "tested"
	case StateReported:
		return "reported"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Stage names used in status and errors.
const (
	StageArtifacts = "artifacts"
	StageBuild     = "build"
	StageRun       = "run"
	StageTest      = "test"
)

// copyExclusions are never copied into the sandbox project tree.
var copyExclusions = []string{
	".git", ".rectify", "_fixtures", "node_modules", "__pycache__",
	"*.pyc", "venv", ".venv", "dist", "build", "target", ".idea", ".vscode",
}

// Orchestrator drives one sandbox run for one project.
//
// Not safe for concurrent use; create one per run.
type Orchestrator struct {
	projectRoot string
	workDir     string
	runner      CommandRunner
	cfg         config.Sandbox
	log         *logging.Logger
	withTest    bool

	state    State
	language lang.Language
	stats    ProjectStats
	status   *Status
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithRunner replaces the subprocess runner, used by tests.
func WithRunner(r CommandRunner) OrchestratorOption {
	return func(o *Orchestrator) { o.runner = r }
}

// WithSandboxConfig sets runtime and stage timeouts.
func WithSandboxConfig(cfg config.Sandbox) OrchestratorOption {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// WithTestStage enables the Tested stage.
func WithTestStage(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) { o.withTest = enabled }
}

// WithSandboxLogger sets the logger.
func WithSandboxLogger(log *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator builds an orchestrator rooted at projectRoot.
func NewOrchestrator(projectRoot string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		projectRoot: projectRoot,
		workDir:     filepath.Join(projectRoot, WorkDirName),
		cfg:         config.Default().Sandbox,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.runner == nil {
		o.runner = NewExecRunner()
	}
	if o.log == nil {
		o.log = logging.Default()
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// WorkDir returns the sandbox directory.
func (o *Orchestrator) WorkDir() string { return o.workDir }

// Language returns the detected project language, valid once artifacts
// are generated.
func (o *Orchestrator) Language() lang.Language { return o.language }

func (o *Orchestrator) projectCopyDir() string { return filepath.Join(o.workDir, "project") }

func (o *Orchestrator) imageTag() string { return "rectify-sandbox-" + string(o.language) }

// GenerateArtifacts detects the project language, copies the project
// into the sandbox and writes the container descriptors.
func (o *Orchestrator) GenerateArtifacts() error {
	if o.state != StateIdle {
		return fmt.Errorf("generate artifacts: invalid state %s", o.state)
	}
	if err := os.MkdirAll(o.workDir, 0o750); err != nil {
		return fmt.Errorf("create sandbox dir: %w", err)
	}

	o.language, o.stats = DetectProjectLanguage(o.projectRoot)
	o.log.Info("sandbox language detected",
		"language", string(o.language), "confidence", o.stats.Confidence)

	copyDir := o.projectCopyDir()
	if err := os.RemoveAll(copyDir); err != nil {
		return fmt.Errorf("reset project copy: %w", err)
	}
	if err := copyTree(o.projectRoot, copyDir); err != nil {
		return fmt.Errorf("copy project: %w", err)
	}

	body := DockerfileFor(o.language)
	for _, path := range []string{
		filepath.Join(o.workDir, "Dockerfile"),
		filepath.Join(copyDir, "Dockerfile"),
	} {
		if err := os.WriteFile(path, []byte(body), 0o640); err != nil {
			return fmt.Errorf("write Dockerfile: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Join(o.workDir, "docker-compose.yml"),
		[]byte(composeFile(o.language)), 0o640); err != nil {
		return fmt.Errorf("write docker-compose.yml: %w", err)
	}
	if err := os.WriteFile(filepath.Join(o.workDir, ".dockerignore"),
		[]byte(dockerignore), 0o640); err != nil {
		return fmt.Errorf("write .dockerignore: %w", err)
	}

	o.status = &Status{
		InvocationID: uuid.NewString(),
		Language:     o.language,
		Logs:         make(map[string]string),
		CreatedAt:    time.Now().UTC(),
	}
	descriptor := map[string]any{
		"invocation_id": o.status.InvocationID,
		"project_path":  o.projectRoot,
		"sandbox_dir":   o.workDir,
		"language":      o.language,
		"stats":         o.stats,
		"created_at":    o.status.CreatedAt,
	}
	data, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sandbox descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(o.workDir, "sandbox.json"),
		append(data, '\n'), 0o640); err != nil {
		return fmt.Errorf("write sandbox descriptor: %w", err)
	}

	o.state = StateArtifactsGenerated
	return nil
}

// StageFixedFiles applies rewritten file contents to the sandbox copy
// and archives them under fixed/. The original project files stay
// untouched.
func (o *Orchestrator) StageFixedFiles(files map[string]string) error {
	if o.state != StateArtifactsGenerated {
		return fmt.Errorf("stage fixed files: invalid state %s", o.state)
	}
	for rel, content := range files {
		for _, base := range []string{filepath.Join(o.workDir, "fixed"), o.projectCopyDir()} {
			target := filepath.Join(base, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
				return fmt.Errorf("stage %s: %w", rel, err)
			}
			if err := os.WriteFile(target, []byte(content), 0o640); err != nil {
				return fmt.Errorf("stage %s: %w", rel, err)
			}
		}
		o.log.Debug("staged fixed file", "path", rel)
	}
	return nil
}

// Execute runs the whole pipeline and always ends with a written
// status file. The returned error reports infrastructure failures
// (artifacts or status not writable); stage failures are absorbed into
// the status.
func (o *Orchestrator) Execute(ctx context.Context) (*Status, error) {
	if o.state == StateIdle {
		if err := o.GenerateArtifacts(); err != nil {
			return nil, fmt.Errorf("%s stage: %w", StageArtifacts, err)
		}
	}
	o.status.TestRequested = o.withTest

	if o.build(ctx) && o.run(ctx) && o.withTest {
		o.test(ctx)
	}
	o.cleanup(ctx)

	if err := WriteStatus(o.workDir, o.status); err != nil {
		return o.status, err
	}
	if o.state != StateFailed {
		o.state = StateReported
	}
	o.log.Info("sandbox run finished",
		"invocation", o.status.InvocationID,
		"build", o.status.BuildSuccess,
		"run", o.status.RunSuccess,
		"test", o.status.TestSuccess,
		"failed_stage", o.status.FailedStage)
	return o.status, nil
}

func (o *Orchestrator) build(ctx context.Context) bool {
	copyDir := o.projectCopyDir()
	res, err := o.runner.Run(ctx, o.cfg.BuildTimeout.Std(), "",
		o.cfg.Runtime, "build", "-t", o.imageTag(),
		"-f", filepath.Join(copyDir, "Dockerfile"), copyDir)
	o.record(StageBuild, res, err)
	if err != nil || !res.Success() {
		o.fail(StageBuild, res)
		return false
	}
	o.status.BuildSuccess = true
	o.state = StateBuilt
	return true
}

func (o *Orchestrator) run(ctx context.Context) bool {
	outputDir := filepath.Join(o.workDir, "output")
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		o.status.Logs[StageRun] = err.Error()
		o.fail(StageRun, ExecResult{ExitCode: -1})
		return false
	}
	res, err := o.runner.Run(ctx, o.cfg.RunTimeout.Std(), "",
		o.cfg.Runtime, "run", "--rm",
		"-v", outputDir+":/output", o.imageTag())
	o.record(StageRun, res, err)
	if err != nil || !res.Success() {
		o.fail(StageRun, res)
		return false
	}
	o.status.RunSuccess = true
	o.state = StateRan
	return true
}

func (o *Orchestrator) test(ctx context.Context) bool {
	cmd, ok := TestCommandFor(o.language)
	if !ok {
		cmd = "echo 'No test command for this language'"
	}
	res, err := o.runner.Run(ctx, o.cfg.TestTimeout.Std(), "",
		o.cfg.Runtime, "run", "--rm", o.imageTag(), "sh", "-c", cmd)
	o.record(StageTest, res, err)
	if err != nil || !res.Success() {
		o.fail(StageTest, res)
		return false
	}
	o.status.TestSuccess = true
	o.state = StateTested
	return true
}

// cleanup removes the sandbox image, best effort. Nothing to remove
// when the build never succeeded.
func (o *Orchestrator) cleanup(ctx context.Context) {
	if !o.status.BuildSuccess {
		return
	}
	_, err := o.runner.Run(ctx, 30*time.Second, "",
		o.cfg.Runtime, "rmi", "-f", o.imageTag())
	if err != nil {
		o.log.Debug("image cleanup skipped", "error", err)
	}
}

// maxStageLogBytes caps the per-stage excerpt kept in the status file.
// The full output still lands in sandbox.log.
const maxStageLogBytes = 4096

func truncateStageLog(out string) string {
	if len(out) <= maxStageLogBytes {
		return out
	}
	return "[log truncated]\n" + out[len(out)-maxStageLogBytes:]
}

func (o *Orchestrator) record(stage string, res ExecResult, err error) {
	out := res.Output()
	if res.TimedOut {
		out = strings.TrimSpace(out + "\n" + stage + " timed out")
	}
	if err != nil {
		out = strings.TrimSpace(out + "\n" + err.Error())
	}
	o.status.Logs[stage] = truncateStageLog(out)
	o.appendRawLog(stage, out)
}

func (o *Orchestrator) fail(stage string, res ExecResult) {
	if o.status.FailedStage == "" {
		o.status.FailedStage = stage
	}
	o.state = StateFailed
	err := &StageError{Stage: stage, ExitCode: res.ExitCode, Log: o.status.Logs[stage]}
	o.log.Warn("sandbox stage failed", "error", err)
}

// appendRawLog persists stage output to the raw run log next to the
// status file.
func (o *Orchestrator) appendRawLog(stage, out string) {
	f, err := os.OpenFile(filepath.Join(o.workDir, "sandbox.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		o.log.Warn("cannot append sandbox log", "error", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "==== %s ====\n%s\n", stage, out)
}

// copyTree copies src into dst, skipping the exclusion patterns and
// symlinks.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != src && excludedFromCopy(name) {
				return filepath.SkipDir
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o750)
		}
		if excludedFromCopy(name) || d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return copyFile(path, filepath.Join(dst, rel))
	})
}

func excludedFromCopy(name string) bool {
	for _, pattern := range copyExclusions {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// InitDockerfiles writes every language Dockerfile template into
// outputDir as Dockerfile.<language>.
func InitDockerfiles(outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	var written []string
	for _, l := range TemplateLanguages() {
		path := filepath.Join(outputDir, "Dockerfile."+string(l))
		if err := os.WriteFile(path, []byte(DockerfileFor(l)), 0o640); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
