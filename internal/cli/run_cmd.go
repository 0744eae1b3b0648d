// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// run_cmd.go - "rigtools run" executes a single tool from the shell.
//
// This is the scripting surface of the tool runtime: one tool, one
// JSON argument object, result on stdout. Sandbox roots come from the
// config and can be overridden per invocation.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/diag"
	"github.com/jeranaias/rigtools/internal/tools"
)

// HandleRun handles the "run" command.
func HandleRun(args Args) error {
	parser := NewArgParser(args.Raw)

	toolName := parser.Positional(0)
	if toolName == "" {
		return ErrMissingArgument("tool", `rigtools run read_file --args '{"path":"notes.txt"}'`)
	}
	if !toolExists(toolName) {
		return NewNotFoundError("tool", toolName)
	}

	rawArgs := json.RawMessage(parser.FlagOrDefault("args", "{}"))
	var probe map[string]interface{}
	if err := json.Unmarshal(rawArgs, &probe); err != nil {
		return ErrInvalidFormat("args", string(rawArgs), `--args '{"path":"notes.txt"}'`)
	}

	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}

	fsRoot, vaultRoot := cfg.ResolveRoots()
	if override := parser.Flag("root"); override != "" {
		if fsRoot, err = filepath.Abs(override); err != nil {
			return NewValidationError("root", override, "not a resolvable path")
		}
	}
	if override := parser.Flag("vault"); override != "" {
		if vaultRoot, err = filepath.Abs(override); err != nil {
			return NewValidationError("vault", override, "not a resolvable path")
		}
	}

	executor := tools.NewExecutor(cfg.ExecutorConfig(diag.NewFileSink(cfg.LogPath())))

	// Ctrl+C cancels the in-flight tool instead of killing the process
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	start := time.Now()
	result, err := executor.Execute(ctx, toolName, rawArgs, fsRoot, vaultRoot)
	elapsed := time.Since(start)
	if err != nil {
		return NewCommandError("run", toolName, "execution rejected", err)
	}

	if args.JSON {
		data := RunData{
			Tool:       toolName,
			OK:         result.OK,
			Content:    result.Content,
			Error:      result.Error,
			DurationMs: elapsed.Milliseconds(),
		}
		resp := NewJSONResponse("run", data)
		if !result.OK {
			resp.Success = false
			resp.Error = &data.Error
		}
		resp.Print()
		if !result.OK {
			return NewCommandError("run", toolName, "tool reported failure", errors.New(result.Error))
		}
		return nil
	}

	if args.Verbose {
		for _, step := range result.DiagnosticSteps {
			StderrPrint("%s\n", DimStyle.Render(fmt.Sprintf("[%s] %s", step.Level, step.Message)))
		}
	}

	if !result.OK {
		return NewCommandError("run", toolName, "tool reported failure", errors.New(result.Error))
	}

	content := result.Content
	if parser.BoolFlag("pretty") && IsStdoutTTY() {
		content = renderPretty(content, pathHint(toolName, rawArgs))
	}
	fmt.Println(content)

	if !args.Quiet && IsStderrTTY() {
		StderrPrint("%s\n", DimStyle.Render(fmt.Sprintf("(%s, %s)", toolName, formatDurationShort(elapsed))))
	}
	return nil
}

// toolExists reports whether name is a known tool.
func toolExists(name string) bool {
	for _, def := range tools.AllDefinitions() {
		if def.Name == name {
			return true
		}
	}
	return false
}

// pathHint extracts the file path a read produced its content from, so
// --pretty can pick a highlighter. Empty for tools without one.
func pathHint(toolName string, rawArgs json.RawMessage) string {
	switch toolName {
	case "read_file", "obsidian_read_note":
		var call struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(rawArgs, &call); err != nil {
			return ""
		}
		if toolName == "obsidian_read_note" && filepath.Ext(call.Path) == "" {
			return call.Path + ".md"
		}
		return call.Path
	default:
		return ""
	}
}
