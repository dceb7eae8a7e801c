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

	"github.com/spf13/cobra"

	"github.com/rectifyhq/rectify/internal/lang"
)

// runLanguages lists every supported language tag.
func runLanguages(cmd *cobra.Command, args []string) error {
	if outputJSON {
		out, err := json.MarshalIndent(lang.All(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode languages: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}
	for _, l := range lang.All() {
		fmt.Println(l)
	}
	return nil
}
