// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rectifyhq/rectify/internal/config"
	"github.com/rectifyhq/rectify/internal/server"
)

// runServe starts the HTTP service and blocks until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger("server")
	defer log.Close()

	cfg, err := config.FromDir(".")
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg,
		server.WithServerLogger(log),
		server.WithDebug(serveDebug))
	return srv.Run(ctx)
}
