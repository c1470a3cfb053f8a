// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the settings file when no --config flag is
// passed.
const EnvironmentVariable = "AGENT_SIDECAR_CONFIG"

// Settings is the sidecar's process-level configuration.
type Settings struct {
	// LogLevel sets the stderr logger's minimum level: "debug",
	// "info", "warn", or "error". Empty means "info".
	LogLevel string `yaml:"log_level"`

	// ShutdownGraceSeconds bounds graceful unwind after a shutdown
	// request. Zero means the built-in default (3 seconds).
	ShutdownGraceSeconds int `yaml:"shutdown_grace_seconds"`

	// ExecutablePath is the default agent executable, used when a
	// request carries no override.
	ExecutablePath string `yaml:"executable_path"`

	// MaxLineBytes bounds a single protocol or agent output line.
	// Zero means the built-in default (1 MiB).
	MaxLineBytes int `yaml:"max_line_bytes"`
}

// Load reads Settings from explicitPath, falling back to the
// AGENT_SIDECAR_CONFIG environment variable. With neither set it
// returns zero-value Settings. A named file that is missing or
// malformed is an error — a deliberately configured path must work.
func Load(explicitPath string) (Settings, error) {
	path := explicitPath
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		return Settings{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings file: %w", err)
	}

	var settings Settings
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	// Unknown keys are rejected so typos fail loudly at startup.
	decoder.KnownFields(true)
	if err := decoder.Decode(&settings); err != nil {
		return Settings{}, fmt.Errorf("parsing settings file %q: %w", path, err)
	}

	if settings.ShutdownGraceSeconds < 0 {
		return Settings{}, fmt.Errorf("shutdown_grace_seconds must not be negative: %d", settings.ShutdownGraceSeconds)
	}
	if settings.MaxLineBytes < 0 {
		return Settings{}, fmt.Errorf("max_line_bytes must not be negative: %d", settings.MaxLineBytes)
	}

	return settings, nil
}
