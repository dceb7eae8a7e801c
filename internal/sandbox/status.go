// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sandbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rectifyhq/rectify/internal/lang"
)

// StatusFileName is the status artifact written by every sandbox run.
const StatusFileName = "sandbox_status.json"

// Status is the final record of a sandbox run.
//
// The three stage booleans are always serialized, never omitted: a
// consumer must be able to distinguish "stage failed" from "file is
// from an older version". A failed build forces run and test to false.
type Status struct {
	InvocationID string        `json:"invocation_id"`
	Language     lang.Language `json:"language"`

	BuildSuccess bool `json:"build_success"`
	RunSuccess   bool `json:"run_success"`
	TestSuccess  bool `json:"test_success"`

	// TestRequested distinguishes a skipped test stage from a failed
	// one.
	TestRequested bool `json:"test_requested"`

	// FailedStage names the stage that failed, empty on full success.
	FailedStage string `json:"failed_stage,omitempty"`

	// Logs holds the raw combined output per executed stage.
	Logs map[string]string `json:"logs"`

	CreatedAt time.Time `json:"created_at"`
}

// WriteStatus persists the status file into dir.
func WriteStatus(dir string, st *Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sandbox status: %w", err)
	}
	path := filepath.Join(dir, StatusFileName)
	if err := os.WriteFile(path, append(data, '\n'), 0o640); err != nil {
		return fmt.Errorf("write sandbox status %s: %w", path, err)
	}
	return nil
}
