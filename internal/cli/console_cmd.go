// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// console_cmd.go - "rigtools console" interactive tool console.
//
// A liner-backed REPL for poking at the tool runtime: each input line is
// a tool name followed by a JSON argument object. One executor lives for
// the whole session, so the persistent terminal session and its working
// directory carry across invocations exactly as they would for an
// assistant driving the dispatcher.
//
// Console commands:
//   :help              Show console usage
//   :tools             List enabled tools
//   :use <dir>         Switch the filesystem sandbox root
//   :vault <dir>       Switch the Obsidian vault root
//   :roots             Show the active roots
//   :quit              Exit (also Ctrl+D)

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/diag"
	"github.com/jeranaias/rigtools/internal/tools"
)

// consoleHistoryFile is the liner history path inside the config dir.
const consoleHistoryFile = "history"

// console holds the REPL state for one session.
type console struct {
	line      *liner.State
	history   string
	executor  *tools.Executor
	fsRoot    string
	vaultRoot string
}

// HandleConsole handles the "console" command (and the bare invocation).
func HandleConsole(args Args) error {
	if err := RequiresTTY("console"); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}
	fsRoot, vaultRoot := cfg.ResolveRoots()

	c := &console{
		line:      liner.NewLiner(),
		executor:  tools.NewExecutor(cfg.ExecutorConfig(diag.NewFileSink(cfg.LogPath()))),
		fsRoot:    fsRoot,
		vaultRoot: vaultRoot,
	}
	c.line.SetCtrlCAborts(true)
	c.line.SetCompleter(completeToolName)
	defer c.close()

	if dir, err := config.ConfigDir(); err == nil {
		c.history = filepath.Join(dir, consoleHistoryFile)
		if f, err := os.Open(c.history); err == nil {
			c.line.ReadHistory(f)
			f.Close()
		}
	}

	if !args.Quiet {
		fmt.Println(TitleStyle.Render("rigtools console"))
		fmt.Println(DimStyle.Render("Type a tool name and a JSON argument object, :help for commands, :quit to exit."))
		fmt.Println()
	}

	for {
		input, err := c.line.Prompt("rigtools> ")
		if errors.Is(err, liner.ErrPromptAborted) {
			continue // Ctrl+C clears the line, not the session
		}
		if err != nil {
			break // Ctrl+D or a closed terminal
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		c.line.AppendHistory(input)

		if strings.HasPrefix(input, ":") {
			if c.runConsoleCommand(input) {
				break
			}
			continue
		}

		c.runToolLine(input, args.Verbose)
	}

	fmt.Println()
	return nil
}

// close saves history and releases the terminal.
func (c *console) close() {
	if c.history != "" {
		if _, err := config.EnsureConfigDir(); err == nil {
			if f, err := os.OpenFile(c.history, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				c.line.WriteHistory(f)
				f.Close()
			}
		}
	}
	c.line.Close()
}

// runConsoleCommand executes a ":" command. Returns true to exit the REPL.
func (c *console) runConsoleCommand(input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true

	case ":help", ":h":
		fmt.Println("Console commands:")
		fmt.Println("  :tools             List enabled tools")
		fmt.Println("  :use <dir>         Switch the filesystem sandbox root")
		fmt.Println("  :vault <dir>       Switch the Obsidian vault root")
		fmt.Println("  :roots             Show the active roots")
		fmt.Println("  :quit              Exit")
		fmt.Println()
		fmt.Println("Everything else runs a tool:")
		fmt.Println(`  read_file {"path":"notes/todo.md"}`)
		fmt.Println(`  web_search {"query":"ollama quantization","max_results":3}`)
		fmt.Println(`  run_command {"command":"git status"}`)

	case ":tools":
		for _, def := range tools.AllDefinitions() {
			risk := RiskStyle(def.Risk.Color()).Render(fmt.Sprintf("%-9s", def.Risk.String()))
			fmt.Printf("  %-24s %s %s\n", def.Name, risk, DimStyle.Render(def.Scope))
		}

	case ":use":
		c.fsRoot = c.switchRoot(fields[1:], "filesystem root")

	case ":vault":
		c.vaultRoot = c.switchRoot(fields[1:], "vault root")

	case ":roots":
		fmt.Printf("  filesystem: %s\n", orUnset(c.fsRoot))
		fmt.Printf("  vault:      %s\n", orUnset(c.vaultRoot))

	default:
		fmt.Printf("%s unknown command %q, :help lists them\n", WarningStyle.Render("[?]"), fields[0])
	}
	return false
}

// switchRoot resolves a new root argument, keeping the current value on
// a bad or missing argument. Returns the root to use from here on.
func (c *console) switchRoot(args []string, what string) string {
	current := c.fsRoot
	if what == "vault root" {
		current = c.vaultRoot
	}
	if len(args) == 0 {
		fmt.Printf("%s %s is %s\n", DimStyle.Render("[i]"), what, orUnset(current))
		return current
	}
	abs, err := filepath.Abs(strings.Join(args, " "))
	if err != nil {
		fmt.Printf("%s cannot resolve %q: %v\n", ErrorStyle.Render("[ERROR]"), args[0], err)
		return current
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		fmt.Printf("%s not a directory: %s\n", ErrorStyle.Render("[ERROR]"), abs)
		return current
	}
	fmt.Printf("%s %s -> %s\n", SuccessStyle.Render("[OK]"), what, abs)
	return abs
}

// runToolLine parses "<tool> [json]" and executes it.
func (c *console) runToolLine(input string, verbose bool) {
	name, rest, _ := strings.Cut(input, " ")
	rest = strings.TrimSpace(rest)
	if rest == "" {
		rest = "{}"
	}

	var probe map[string]interface{}
	if err := json.Unmarshal([]byte(rest), &probe); err != nil {
		fmt.Printf("%s arguments must be a JSON object: %v\n", ErrorStyle.Render("[ERROR]"), err)
		return
	}

	result, err := c.executor.Execute(context.Background(), name, json.RawMessage(rest), c.fsRoot, c.vaultRoot)
	if err != nil {
		fmt.Printf("%s %v\n", ErrorStyle.Render("[ERROR]"), err)
		return
	}

	if verbose {
		for _, step := range result.DiagnosticSteps {
			fmt.Println(DimStyle.Render(fmt.Sprintf("[%s] %s", step.Level, step.Message)))
		}
	}

	if !result.OK {
		fmt.Printf("%s %s\n", ErrorStyle.Render("[ERROR]"), result.Error)
		return
	}
	fmt.Println(result.Content)
}

// completeToolName offers tool-name completion for the first word of a line.
func completeToolName(line string) []string {
	if strings.ContainsAny(line, " \t") {
		return nil
	}
	var out []string
	for _, def := range tools.AllDefinitions() {
		if strings.HasPrefix(def.Name, line) {
			out = append(out, def.Name)
		}
	}
	return out
}

// orUnset renders an empty root for display.
func orUnset(s string) string {
	if s == "" {
		return DimStyle.Render("(not configured)")
	}
	return s
}
