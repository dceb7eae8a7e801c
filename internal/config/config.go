// Copyright (C) 2025 Rectify Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the optional .rectify.toml project file.
//
// Configuration is resolved in three layers: built-in defaults, the
// project file, then command-line flags. The file is optional; a
// missing file yields the defaults without error, a malformed file is
// an error the caller must surface.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the project configuration file looked up in the scan
// root.
const FileName = ".rectify.toml"

// ErrMalformed wraps TOML parse failures.
var ErrMalformed = errors.New("malformed config file")

// Duration is a time.Duration that unmarshals from TOML strings such as
// "5m" or "90s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Sandbox holds the container-validation settings.
type Sandbox struct {
	// Runtime is the container CLI used to build and run, docker by
	// default.
	Runtime string `toml:"runtime"`

	// BuildTimeout bounds the image build stage.
	BuildTimeout Duration `toml:"build_timeout"`

	// RunTimeout bounds the container run stage.
	RunTimeout Duration `toml:"run_timeout"`

	// TestTimeout bounds the in-container test stage.
	TestTimeout Duration `toml:"test_timeout"`
}

// Server holds the HTTP API settings.
type Server struct {
	Port int `toml:"port"`
}

// Config is the resolved project configuration.
type Config struct {
	// Exclusions are extra directory or file patterns skipped during a
	// project scan, on top of the built-in exclusion list.
	Exclusions []string `toml:"exclusions"`

	// Workers bounds concurrent file analyses during a scan.
	Workers int `toml:"workers"`

	Sandbox Sandbox `toml:"sandbox"`
	Server  Server  `toml:"server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	workers := runtime.GOMAXPROCS(0)
	if workers > 8 {
		workers = 8
	}
	return &Config{
		Workers: workers,
		Sandbox: Sandbox{
			Runtime:      "docker",
			BuildTimeout: Duration(5 * time.Minute),
			RunTimeout:   Duration(2 * time.Minute),
			TestTimeout:  Duration(2 * time.Minute),
		},
		Server: Server{Port: 8080},
	}
}

// Load reads a config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// FromDir loads root/.rectify.toml when present, defaults otherwise.
func FromDir(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}
	return Load(path)
}

// normalize clamps values a file could set to something unusable.
func (c *Config) normalize() {
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Sandbox.Runtime == "" {
		c.Sandbox.Runtime = "docker"
	}
	if c.Sandbox.BuildTimeout <= 0 {
		c.Sandbox.BuildTimeout = Duration(5 * time.Minute)
	}
	if c.Sandbox.RunTimeout <= 0 {
		c.Sandbox.RunTimeout = Duration(2 * time.Minute)
	}
	if c.Sandbox.TestTimeout <= 0 {
		c.Sandbox.TestTimeout = Duration(2 * time.Minute)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		c.Server.Port = 8080
	}
}
