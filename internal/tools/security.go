// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// security.go implements the command safety blocklist shared by run_command
// and open_terminal_and_run.
package tools

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// COMMAND BLOCKLIST
// =============================================================================

// blockedCommandMessage is returned verbatim whenever a command matches the
// blocklist.
const blockedCommandMessage = "Command blocked: this command is on the safety blocklist. Dangerous system commands are not allowed."

// blockedCommandPatterns are substrings that mark a command as destructive.
// Matching is case-insensitive against the trimmed command. The list is a
// coarse tripwire for obviously dangerous system commands, not a sandbox.
var blockedCommandPatterns = []string{
	"rm -rf /",
	"rm -rf /*",
	"del /s /q c:\\",
	"format c:",
	"format d:",
	"mkfs",
	":(){:|:&};:",
	"shutdown",
	"reboot",
	"halt",
	"poweroff",
	"init 0",
	"init 6",
	"dd if=",
	"diskpart",
	"bcdedit",
	"reg delete",
	"net user",
	"net localgroup",
	"schtasks /delete",
	"wmic os delete",
	"cipher /w:",
}

// isCommandBlocked reports whether command matches any blocklist pattern.
// SECURITY: the command is NFKC-normalized first so fullwidth or otherwise
// decomposed lookalike characters cannot slip past the substring match.
func isCommandBlocked(command string) bool {
	normalized := norm.NFKC.String(command)
	lower := strings.TrimSpace(strings.ToLower(normalized))
	for _, pattern := range blockedCommandPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
