// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diag persists diagnostic events to a rotating log file.
//
// Tool executions and server requests emit leveled events with optional
// structured metadata. Logging is fire and forget: a full disk or missing
// home directory never fails the operation being logged.
//
// # Key Types
//
//   - Sink: the logging interface consumers depend on
//   - FileSink: appends text lines to a log file with size-based rotation
//
// # Log Format
//
// One line per event:
//
//	{unix_millis} [{LEVEL}] {message} {meta_json}
//
// The meta JSON object is omitted when the event carries no metadata. The
// file rotates to a single .old sibling once it reaches 5 MB.
package diag
