// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local HTTP API for rigtools.
//
// This package exposes tool execution, tool settings, and health over a
// loopback JSON API so that editors, scripts, and other local clients can
// drive the same tool registry the CLI uses.
//
// # Endpoints
//
//   - GET  /api/health        - Health check with Ollama and storage probes
//   - GET  /api/tools         - List tools; ?enabled=true|false filters
//   - POST /api/tools/execute - Execute a tool by name
//   - GET  /api/settings      - Effective tool settings
//   - PUT  /api/settings      - Replace stored tool settings
//   - GET  /api/stats         - Request counters and storage counts
//
// Execution failures, including unknown tool names, come back as ok:false
// envelopes with status 200. Non-200 statuses mean the HTTP request itself
// was malformed or rejected: bad JSON, a missing tool name, a body over
// the 1 MiB cap, or a rate-limited client.
//
// Requests are rate limited per client IP with a token bucket. The TOML
// configuration file is watched for changes and tool settings reload
// live; the bind address, rate limits, and Ollama endpoint are fixed at
// startup.
//
// # Key Types
//
//   - Server: HTTP server with router, middleware, and hot reload
//   - ServerStats: atomic request and execution counters
//   - ClientLimiter: per-client token bucket rate limiter
//
// # Usage
//
//	cfg, _ := config.Load()
//	path, _ := cfg.StoragePath()
//	store, err := storage.Open(path)
//	if err != nil {
//		log.Fatal(err)
//	}
//	srv := server.New(cfg).WithStore(store)
//	if err := srv.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
