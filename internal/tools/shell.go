// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// shell.go implements the run_command tool: one-shot command execution
// through the platform shell with captured output.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// defaultCommandTimeout bounds a run_command invocation end to end.
const defaultCommandTimeout = 10 * time.Second

// =============================================================================
// RUN COMMAND
// =============================================================================

// runShellCommand executes command through the platform shell and returns a
// report containing the command, working directory, exit code, and captured
// stdout/stderr. A non-zero exit code is data, not an error; only blocked
// commands, bad working directories, and launch failures return errors.
//
// CANCELLATION: the command is killed when ctx is done or timeout elapses.
func runShellCommand(ctx context.Context, command, workingDirectory string, timeout time.Duration) (string, error) {
	if isCommandBlocked(command) {
		return "", errCommandFailed(blockedCommandMessage)
	}
	wd, err := resolveWorkingDir(workingDirectory)
	if err != nil {
		return "", err
	}
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell, flag := systemShell()
	cmd := exec.CommandContext(runCtx, shell, flag, command)
	cmd.Dir = wd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	if runErr != nil && cmd.ProcessState == nil {
		return "", errCommandFailed("Failed to execute command: " + runErr.Error())
	}
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	blocks := []string{
		"Command: " + command,
		"Working directory: " + wd,
		fmt.Sprintf("Exit code: %d", exitCode),
	}
	if stdout.Len() > 0 {
		blocks = append(blocks, "STDOUT:\n"+stdout.String())
	}
	if stderr.Len() > 0 {
		blocks = append(blocks, "STDERR:\n"+stderr.String())
	}
	if stdout.Len() == 0 && stderr.Len() == 0 {
		blocks = append(blocks, "(No output)")
	}
	return strings.Join(blocks, "\n\n"), nil
}

// resolveWorkingDir validates an explicit working directory or falls back to
// the user's home directory.
func resolveWorkingDir(requested string) (string, error) {
	trimmed := strings.TrimSpace(requested)
	if trimmed != "" {
		info, err := os.Stat(trimmed)
		if err != nil {
			return "", errInvalidArg("Working directory does not exist: " + requested)
		}
		if !info.IsDir() {
			return "", errInvalidArg("Working directory is not a directory: " + requested)
		}
		return trimmed, nil
	}
	return defaultWorkingDir(), nil
}

func defaultWorkingDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return "."
}

// systemShell returns the shell binary and its command flag for this OS.
func systemShell() (string, string) {
	if runtime.GOOS == "windows" {
		return "cmd", "/C"
	}
	return "sh", "-c"
}
