// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// terminal.go defines the persistent terminal session state shared by the
// platform-specific open_terminal_and_run implementations.
package tools

import (
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// =============================================================================
// TERMINAL SESSION
// =============================================================================

// terminalProc tracks one spawned persistent shell and whether it has exited.
type terminalProc struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	exited atomic.Bool
}

// alive reports whether the shell process is still running.
func (p *terminalProc) alive() bool {
	return p != nil && !p.exited.Load()
}

// TerminalSession owns the reusable windowed terminal spawned by
// open_terminal_and_run. A process handle and its stdin pipe live behind one
// mutex, the last working directory behind another, so neither lock is ever
// held while spawning a process.
type TerminalSession struct {
	procMu sync.Mutex
	proc   *terminalProc

	wdMu   sync.Mutex
	lastWD string
}

// NewTerminalSession returns an empty session. The first
// open_terminal_and_run call populates it.
func NewTerminalSession() *TerminalSession {
	return &TerminalSession{}
}

func (s *TerminalSession) lastWorkingDir() string {
	s.wdMu.Lock()
	defer s.wdMu.Unlock()
	return s.lastWD
}

func (s *TerminalSession) setLastWorkingDir(wd string) {
	s.wdMu.Lock()
	defer s.wdMu.Unlock()
	s.lastWD = wd
}

// liveProc returns the persistent shell if one is running, else nil.
func (s *TerminalSession) liveProc() *terminalProc {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	if s.proc.alive() {
		return s.proc
	}
	return nil
}

// storeProc replaces the tracked persistent shell.
func (s *TerminalSession) storeProc(p *terminalProc) {
	s.procMu.Lock()
	defer s.procMu.Unlock()
	s.proc = p
}

// watchExit marks the proc exited once its shell terminates.
func (p *terminalProc) watchExit() {
	go func() {
		_ = p.cmd.Wait()
		p.exited.Store(true)
	}()
}

// toPowerShellChain rewrites cmd-style "&&" chains into PowerShell statement
// separators so multi-step commands work in a PowerShell tab.
func toPowerShellChain(command string) string {
	return strings.ReplaceAll(command, " && ", "; ")
}

// quotePowerShellArg single-quotes a value for interpolation into a
// PowerShell command, doubling embedded quotes.
func quotePowerShellArg(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
