// Copyright 2026 The Agent Sidecar Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the sidecar's settings file.
//
// Settings come from a single YAML file named by the --config flag or
// the AGENT_SIDECAR_CONFIG environment variable. There are no
// fallbacks and no automatic discovery: with no explicit path, the
// sidecar runs on built-in defaults. This keeps configuration
// deterministic and auditable.
//
// Settings cover process-level concerns only — log level, shutdown
// grace, the default agent executable. Per-request behavior is fully
// determined by the request's own config; the settings file never
// influences it.
package config
