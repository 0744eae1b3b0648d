// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows

// Package tools provides the sandboxed tool system for rigtools.
// terminal_unix.go stubs open_terminal_and_run on platforms without
// windowed terminal support.
package tools

// SupportsWindowedTerminal reports whether open_terminal_and_run can open
// terminal windows on this platform.
func SupportsWindowedTerminal() bool { return false }

func (s *TerminalSession) openTerminalAndRun(_, command string, _ bool, _ string, _ bool) (string, []DiagnosticStep, error) {
	steps := []DiagnosticStep{
		warnStep("open_terminal_and_run: Windows-only; use run_command on this OS", nil),
	}
	return "", steps, errInvalidArg("open_terminal_and_run is only supported on Windows. Use run_command for: " + command)
}
