// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama API.
//
// The client covers the sidecar surface rigtools needs: a fast liveness
// probe, version lookup, model management (list, show, delete, pull with
// streaming progress), and streaming chat over newline-delimited JSON.
//
// # Key Types
//
//   - Client: thread-safe API client with zero-value config fill-in
//   - ClientError: typed errors (not running, timeout, model not found)
//   - StreamChunk: one parsed chunk of a streaming chat response
//   - PullEvent: one progress line of a streaming model download
//
// # Usage
//
// Probe the server and list installed models:
//
//	client := ollama.NewClient()
//	if err := client.Health(ctx); err != nil {
//	    // Ollama is not reachable
//	}
//	models, err := client.ListModels(ctx)
//
// Pull a model with progress reporting:
//
//	err := client.Pull(ctx, "qwen2.5:3b-instruct", func(e ollama.PullEvent) {
//	    fmt.Printf("\r%s %.0f%%", e.Status, e.Percent())
//	})
//
// Stream a chat response:
//
//	err := client.ChatStream(ctx, "", messages, nil, func(c ollama.StreamChunk) {
//	    fmt.Print(c.Content)
//	})
//
// Errors are ClientError values; use IsNotRunning, IsModelNotFound, and
// IsTimeout to branch on the cause.
package ollama
