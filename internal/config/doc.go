// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for rigtools.
//
// Configuration lives in a single TOML file with sensible defaults,
// environment variable overrides, and advisory validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ToolsConfig: Tool group enablement and sandbox roots
//   - ServerConfig: Local HTTP API settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (RIGTOOLS_*)
//   - ~/.rigtools/config.toml (or the file named by RIGTOOLS_CONFIG)
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    // cfg still holds usable defaults
//	    fmt.Fprintln(os.Stderr, err)
//	}
//
// Access settings:
//
//	root := cfg.Tools.FilesystemRoot
//	port := cfg.Server.Port
package config
