// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
//
// This package implements every built-in tool the assistant can call:
// filesystem reads and writes confined to a user-selected root, Obsidian
// vault access, shell command execution with a safety blocklist, a
// persistent visible terminal session, DuckDuckGo web search with
// Wikidata/Wikipedia fallbacks, URL fetching, and browser opening.
// Models never execute tools; the host process does.
//
// # Key Types
//
//   - ToolDefinition: tool metadata with JSON schema, scope, and risk level
//   - ToolCall: closed set of typed argument structs, one per tool
//   - Executor: dispatches a parsed call to its handler
//   - ToolResult: uniform result envelope (ok, content, error, steps)
//   - TerminalSession: the single reusable visible terminal
//
// # Error Model
//
// Handlers return *Error values whose rendered text is stable and shown
// to the model. Execute converts every handler error into a ToolResult
// envelope with OK=false; only an unknown tool name escapes as a hard
// error.
//
// # Security
//
//   - Relative-path enforcement plus symlink-resolving root containment
//   - Substring blocklist for destructive commands (NFKC-normalized)
//   - Bounded timeouts on every network and process operation
//   - No retries anywhere
package tools
