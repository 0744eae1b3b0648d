// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// executor.go implements the Executor: it parses tool calls, dispatches
// them to handlers, and shapes results into the envelope consumers read.
package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jeranaias/rigtools/internal/diag"
)

// =============================================================================
// RESULT ENVELOPE
// =============================================================================

// Diagnostic step levels.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// DiagnosticStep is one entry in a tool's execution trail. Steps surface in
// the result envelope and are mirrored to the diagnostics sink.
type DiagnosticStep struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

func infoStep(message string, meta map[string]interface{}) DiagnosticStep {
	return DiagnosticStep{Level: LevelInfo, Message: message, Meta: meta}
}

func warnStep(message string, meta map[string]interface{}) DiagnosticStep {
	return DiagnosticStep{Level: LevelWarn, Message: message, Meta: meta}
}

func errorStep(message string, meta map[string]interface{}) DiagnosticStep {
	return DiagnosticStep{Level: LevelError, Message: message, Meta: meta}
}

// ToolResult is the uniform tool execution envelope. OK is false exactly
// when Error is non-empty; DiagnosticSteps carry the execution trail for
// tools that emit one.
type ToolResult struct {
	OK              bool             `json:"ok"`
	Content         string           `json:"content"`
	Error           string           `json:"error,omitempty"`
	DiagnosticSteps []DiagnosticStep `json:"diagnostic_steps,omitempty"`
}

// FailureResult wraps an error into a failure envelope. Execute applies it
// to every handler error itself; hosts that want a uniform envelope for
// unknown tool names as well apply it to the returned error.
func FailureResult(err error) ToolResult {
	return ToolResult{Error: err.Error()}
}

// =============================================================================
// EXECUTOR
// =============================================================================

// ExecutorConfig holds executor dependencies. Zero values fall back to
// DefaultExecutorConfig.
type ExecutorConfig struct {
	// Session is the shared windowed terminal session
	Session *TerminalSession

	// Sink receives the diagnostic trail of every execution
	Sink diag.Sink

	// Year is appended to time-sensitive search queries
	Year int

	// CommandTimeout bounds run_command execution
	CommandTimeout time.Duration

	// Search endpoints, overridable in tests
	DuckDuckGoURL string
	WikidataURL   string
	WikipediaURL  string
}

// DefaultExecutorConfig returns the production executor configuration.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		Year:           time.Now().Year(),
		CommandTimeout: defaultCommandTimeout,
		DuckDuckGoURL:  defaultDuckDuckGoURL,
		WikidataURL:    defaultWikidataURL,
		WikipediaURL:   defaultWikipediaURL,
	}
}

// Executor runs tool calls. One executor is shared by all frontends so the
// persistent terminal session survives across invocations.
type Executor struct {
	session          *TerminalSession
	sink             diag.Sink
	year             int
	commandTimeout   time.Duration
	duckDuckGoURL    string
	wikidataURL      string
	wikipediaURL     string
	windowedTerminal bool
}

// NewExecutor creates an Executor, filling zero-value config fields with
// defaults. The windowed-terminal capability is resolved here, once.
func NewExecutor(cfg ExecutorConfig) *Executor {
	def := DefaultExecutorConfig()
	if cfg.Session == nil {
		cfg.Session = NewTerminalSession()
	}
	if cfg.Sink == nil {
		cfg.Sink = diag.Nop()
	}
	if cfg.Year == 0 {
		cfg.Year = def.Year
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.DuckDuckGoURL == "" {
		cfg.DuckDuckGoURL = def.DuckDuckGoURL
	}
	if cfg.WikidataURL == "" {
		cfg.WikidataURL = def.WikidataURL
	}
	if cfg.WikipediaURL == "" {
		cfg.WikipediaURL = def.WikipediaURL
	}
	return &Executor{
		session:          cfg.Session,
		sink:             cfg.Sink,
		year:             cfg.Year,
		commandTimeout:   cfg.CommandTimeout,
		duckDuckGoURL:    cfg.DuckDuckGoURL,
		wikidataURL:      cfg.WikidataURL,
		wikipediaURL:     cfg.WikipediaURL,
		windowedTerminal: SupportsWindowedTerminal(),
	}
}

// Execute runs one tool call against the given sandbox roots. fsRoot and
// obsRoot are the resolved filesystem and vault roots; blank means the
// corresponding tool group is unconfigured.
//
// Every failure except an unknown tool name is normalized into an
// ok:false envelope, so callers always receive a parseable result.
// Unknown tools surface as the one hard error.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage, fsRoot, obsRoot string) (ToolResult, error) {
	call, err := ParseCall(name, args)
	if err != nil {
		if IsKind(err, KindUnknownTool) {
			return ToolResult{}, err
		}
		return FailureResult(err), nil
	}
	res, err := e.dispatch(ctx, call, fsRoot, obsRoot)
	if err != nil {
		if IsKind(err, KindUnknownTool) {
			return ToolResult{}, err
		}
		res = FailureResult(err)
	}
	for _, step := range res.DiagnosticSteps {
		e.sink.Log(step.Level, step.Message, step.Meta)
	}
	return res, nil
}

func okResult(content string) ToolResult {
	return ToolResult{OK: true, Content: content}
}

func softFailure(err error) ToolResult {
	return ToolResult{Error: err.Error()}
}

func requireRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", errRootNotConfigured()
	}
	return root, nil
}

// dispatch routes a parsed call to its handler. The switch is exhaustive
// over the closed ToolCall set; ParseCall already rejected unknown names.
func (e *Executor) dispatch(ctx context.Context, call ToolCall, fsRoot, obsRoot string) (ToolResult, error) {
	switch c := call.(type) {
	case *ReadFileCall:
		root, err := requireRoot(fsRoot)
		if err != nil {
			return ToolResult{}, err
		}
		if c.Path == nil {
			return ToolResult{}, errInvalidArg("path required")
		}
		content, err := readFileContent(root, *c.Path, c.Head, c.Tail)
		if err != nil {
			return ToolResult{}, err
		}
		return okResult(content), nil

	case *WriteFileCall:
		root, err := requireRoot(fsRoot)
		if err != nil {
			return ToolResult{}, err
		}
		if c.Path == nil {
			return ToolResult{}, errInvalidArg("path required")
		}
		msg, err := writeFileContent(root, *c.Path, c.Content)
		if err != nil {
			return ToolResult{}, err
		}
		return okResult(msg), nil

	case *ListDirCall:
		root, err := requireRoot(fsRoot)
		if err != nil {
			return ToolResult{}, err
		}
		path := c.Path
		if path == "" {
			path = "."
		}
		content, err := listDirEntries(root, path, c.Depth)
		if err != nil {
			return ToolResult{}, err
		}
		return okResult(content), nil

	case *ObsidianReadNoteCall:
		root, err := requireRoot(obsRoot)
		if err != nil {
			return ToolResult{}, err
		}
		if c.Path == nil {
			return ToolResult{}, errInvalidArg("path required")
		}
		content, err := readFileContent(root, *c.Path, nil, nil)
		if err != nil {
			return ToolResult{}, err
		}
		return okResult(content), nil

	case *ObsidianWriteNoteCall:
		root, err := requireRoot(obsRoot)
		if err != nil {
			return ToolResult{}, err
		}
		if c.Path == nil {
			return ToolResult{}, errInvalidArg("path required")
		}
		msg, err := writeFileContent(root, *c.Path, c.Content)
		if err != nil {
			return ToolResult{}, err
		}
		return okResult(msg), nil

	case *ObsidianListNotesCall:
		root, err := requireRoot(obsRoot)
		if err != nil {
			return ToolResult{}, err
		}
		path := c.Path
		if path == "" {
			path = "."
		}
		content, err := listDirEntries(root, path, c.Depth)
		if err != nil {
			return ToolResult{}, err
		}
		return okResult(content), nil

	case *WebSearchCall:
		return e.runWebSearch(ctx, c)

	case *FetchURLCall:
		target := strings.TrimSpace(c.URL)
		if target == "" {
			return ToolResult{}, errInvalidArg("url required")
		}
		maxChars := fetchURLDefaultMaxChars
		if c.MaxChars != nil {
			maxChars = *c.MaxChars
		}
		text, err := fetchURLContent(ctx, target, maxChars)
		if err != nil {
			return softFailure(err), nil
		}
		return okResult(pageContentPreamble + text), nil

	case *RunCommandCall:
		if c.Command == nil {
			return ToolResult{}, errInvalidArg("command required")
		}
		command := strings.TrimSpace(*c.Command)
		if command == "" {
			return ToolResult{}, errInvalidArg("command cannot be empty")
		}
		content, err := runShellCommand(ctx, command, c.WorkingDirectory, e.commandTimeout)
		if err != nil {
			return ToolResult{}, err
		}
		return okResult(content), nil

	case *OpenTerminalCall:
		if c.Command == nil {
			return ToolResult{}, errInvalidArg("command required")
		}
		command := strings.TrimSpace(*c.Command)
		if !e.windowedTerminal {
			e.sink.Log(LevelWarn, "open_terminal_and_run: Windows-only; use run_command on this OS", nil)
			return softFailure(errInvalidArg("open_terminal_and_run is only supported on Windows. Use run_command for: " + command)), nil
		}
		shell := c.Shell
		if shell == "" {
			shell = "powershell"
		}
		keepOpen := true
		if c.KeepOpen != nil {
			keepOpen = *c.KeepOpen
		}
		newTab := false
		if c.NewTab != nil {
			newTab = *c.NewTab
		}
		content, steps, err := e.session.openTerminalAndRun(shell, command, keepOpen, c.WorkingDirectory, newTab)
		if err != nil {
			res := softFailure(err)
			res.DiagnosticSteps = steps
			return res, nil
		}
		return ToolResult{OK: true, Content: content, DiagnosticSteps: steps}, nil

	case *OpenBrowserSearchCall:
		content, err := openBrowserSearch(ctx, c, e.duckDuckGoURL)
		if err != nil {
			return softFailure(err), nil
		}
		return okResult(content), nil
	}
	return ToolResult{}, errUnknownTool(call.toolName())
}
