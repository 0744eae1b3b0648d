// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

// Package tools provides the sandboxed tool system for rigtools.
// terminal_windows.go implements open_terminal_and_run: it opens a visible
// terminal window and either reuses one persistent PowerShell tab or spawns
// a detached one-off tab.
package tools

import (
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// SupportsWindowedTerminal reports whether open_terminal_and_run can open
// terminal windows on this platform.
func SupportsWindowedTerminal() bool { return true }

func newConsoleAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: windows.CREATE_NEW_CONSOLE}
}

// writeToLive sends a command line to the persistent shell if it is still
// running. The process lock is held for the whole write so concurrent calls
// cannot interleave their lines.
func (s *TerminalSession) writeToLive(line string) bool {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	if !s.proc.alive() {
		return false
	}
	// Write errors are ignored; the exit watcher flags a dead shell for the
	// next call.
	_, _ = s.proc.stdin.Write([]byte(line))
	return true
}

// openTerminalAndRun opens a terminal window and runs command in it. With
// newTab false it reuses (or starts) the persistent PowerShell tab; with
// newTab true it spawns a detached window using the requested shell.
func (s *TerminalSession) openTerminalAndRun(shell, command string, keepOpen bool, workingDirectory string, newTab bool) (string, []DiagnosticStep, error) {
	if isCommandBlocked(command) {
		return "", nil, errCommandFailed(blockedCommandMessage)
	}

	var steps []DiagnosticStep
	steps = append(steps, infoStep("open_terminal_and_run: validating arguments", map[string]interface{}{
		"shell":             shell,
		"keep_open":         keepOpen,
		"new_tab":           newTab,
		"working_directory": workingDirectory,
	}))

	command = strings.TrimSpace(command)
	if command == "" {
		steps = append(steps, errorStep("open_terminal_and_run: command cannot be empty", nil))
		return "", steps, errInvalidArg("command cannot be empty")
	}

	wd := strings.TrimSpace(workingDirectory)
	if wd == "" {
		wd = s.lastWorkingDir()
	}
	if wd == "" {
		wd = defaultWorkingDir()
	}

	if !newTab {
		// USABILITY: no Set-Location on reuse so the shell stays in its
		// current directory and follow-up commands keep working from there.
		cmdPS := toPowerShellChain(command)
		if s.writeToLive(cmdPS + "\r\n") {
			steps = append(steps, infoStep("Reused existing terminal; command sent (no Set-Location).", map[string]interface{}{
				"command": cmdPS,
			}))
			content := "Ran in existing terminal (PowerShell).\nCommand: " + cmdPS
			return content, steps, nil
		}
	}

	if newTab {
		shellUsed, err := spawnDetachedTab(shell, command, keepOpen, &steps)
		if err != nil {
			return "", steps, err
		}
		steps = append(steps, infoStep("Opened new terminal tab. Shell: "+shellUsed, map[string]interface{}{
			"shell_used": shellUsed,
		}))
		content := fmt.Sprintf("Opened new terminal window.\nShell: %s\nCommand: %s\nWorking directory: %s", shellUsed, command, wd)
		return content, steps, nil
	}

	steps = append(steps, infoStep("Step: starting persistent PowerShell (reuse same tab)", nil))
	cmd := exec.Command("powershell", "-NoExit")
	cmd.SysProcAttr = newConsoleAttr()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", steps, errCommandFailed("could not take stdin")
	}
	if err := cmd.Start(); err != nil {
		return "", steps, errCommandFailed("powershell spawn failed: " + err.Error())
	}
	proc := &terminalProc{cmd: cmd, stdin: stdin}
	proc.watchExit()

	cmdPS := toPowerShellChain(command)
	full := "Set-Location " + quotePowerShellArg(wd) + "\r\n" + cmdPS + "\r\n"
	if _, err := stdin.Write([]byte(full)); err != nil {
		return "", steps, errCommandFailed("write to terminal failed: " + err.Error())
	}
	s.storeProc(proc)
	s.setLastWorkingDir(wd)
	steps = append(steps, infoStep("Persistent terminal started; future commands will reuse this tab.", map[string]interface{}{
		"working_directory": wd,
	}))
	content := fmt.Sprintf("Opened terminal (reuse same tab for next commands).\nWorking directory: %s\nCommand: %s", wd, command)
	return content, steps, nil
}

// spawnDetachedTab starts a one-off terminal window and releases the process
// handle so it outlives this program. Returns the shell actually used.
func spawnDetachedTab(shell, command string, keepOpen bool, steps *[]DiagnosticStep) (string, error) {
	switch strings.ToLower(shell) {
	case "wt":
		*steps = append(*steps, infoStep("Step: Windows Terminal (wt)", nil))
		cmd := exec.Command("wt", "powershell", "-NoExit", "-Command", command)
		cmd.SysProcAttr = newConsoleAttr()
		if err := cmd.Start(); err != nil {
			*steps = append(*steps, warnStep(fmt.Sprintf("wt failed (%s), falling back to powershell", err), nil))
			fallback := exec.Command("powershell", "-NoExit", "-Command", command)
			fallback.SysProcAttr = newConsoleAttr()
			if err2 := fallback.Start(); err2 != nil {
				return "", errCommandFailed("wt and powershell failed: " + err2.Error())
			}
			_ = fallback.Process.Release()
			return "powershell", nil
		}
		_ = cmd.Process.Release()
		return "wt", nil
	case "cmd":
		*steps = append(*steps, infoStep("Step: cmd /k", nil))
		cmd := exec.Command("cmd", "/k", command)
		cmd.SysProcAttr = newConsoleAttr()
		if err := cmd.Start(); err != nil {
			return "", errCommandFailed("cmd spawn failed: " + err.Error())
		}
		_ = cmd.Process.Release()
		return "cmd", nil
	default:
		*steps = append(*steps, infoStep("Step: PowerShell -NoExit -Command", nil))
		args := []string{"-Command", command}
		if keepOpen {
			args = []string{"-NoExit", "-Command", command}
		}
		cmd := exec.Command("powershell", args...)
		cmd.SysProcAttr = newConsoleAttr()
		if err := cmd.Start(); err != nil {
			return "", errCommandFailed("powershell spawn failed: " + err.Error())
		}
		_ = cmd.Process.Release()
		return "powershell", nil
	}
}
