// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rectifyhq/rectify/internal/sandbox"
)

// runInitDockerfiles writes the sandbox Dockerfile templates so users
// can inspect or adapt them before a sandbox run.
func runInitDockerfiles(cmd *cobra.Command, args []string) error {
	configureColor()

	written, err := sandbox.InitDockerfiles(initOutput)
	if err != nil {
		return err
	}
	for _, path := range written {
		fmt.Println(path)
	}
	successColor.Printf("%d template(s) written\n", len(written))
	return nil
}
