// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import "testing"

// =============================================================================
// COMMAND BLOCKLIST TESTS
// =============================================================================

func TestIsCommandBlocked(t *testing.T) {
	tests := []struct {
		name    string
		command string
		blocked bool
	}{
		{
			name:    "recursive root delete",
			command: "rm -rf /",
			blocked: true,
		},
		{
			name:    "blocked pattern embedded in longer command",
			command: "echo done && rm -rf / --no-preserve-root",
			blocked: true,
		},
		{
			name:    "case insensitive match",
			command: "SHUTDOWN /s /t 0",
			blocked: true,
		},
		{
			name:    "windows format drive",
			command: "format c:",
			blocked: true,
		},
		{
			name:    "fork bomb",
			command: ":(){:|:&};:",
			blocked: true,
		},
		{
			name:    "dd onto device",
			command: "dd if=/dev/zero of=/dev/sda",
			blocked: true,
		},
		{
			name:    "registry delete",
			command: "REG DELETE HKLM\\Software /f",
			blocked: true,
		},
		{
			name:    "leading whitespace still matches",
			command: "   reboot",
			blocked: true,
		},
		{
			name:    "fullwidth characters normalized before match",
			command: "ｓｈｕｔｄｏｗｎ now",
			blocked: true,
		},
		{
			name:    "ordinary listing allowed",
			command: "ls -la",
			blocked: false,
		},
		{
			name:    "git status allowed",
			command: "git status",
			blocked: false,
		},
		{
			name:    "rm of a relative file allowed",
			command: "rm -f build/output.log",
			blocked: false,
		},
		{
			name:    "empty command allowed",
			command: "",
			blocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isCommandBlocked(tt.command); got != tt.blocked {
				t.Errorf("isCommandBlocked(%q) = %v, want %v", tt.command, got, tt.blocked)
			}
		})
	}
}

func TestBlockedPatternsAreLowercase(t *testing.T) {
	// The match lowercases input, so patterns themselves must stay lowercase
	// or they can never fire.
	for _, p := range blockedCommandPatterns {
		for _, r := range p {
			if r >= 'A' && r <= 'Z' {
				t.Errorf("pattern %q contains uppercase %q", p, r)
			}
		}
	}
}
