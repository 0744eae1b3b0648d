// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// call.go defines the closed set of typed tool calls and parses raw
// model arguments into them.
package tools

import "encoding/json"

// =============================================================================
// TOOL CALL VARIANTS
// =============================================================================

// ToolCall is the closed set of parsed tool invocations. Exactly one
// struct implements it per tool; the dispatcher switches over all of
// them. Optional parameters use pointers so that an absent argument is
// distinguishable from an explicit zero value.
type ToolCall interface {
	toolName() string
}

// ReadFileCall reads a file under the filesystem root.
type ReadFileCall struct {
	Path *string `json:"path"`
	Head *int    `json:"head"`
	Tail *int    `json:"tail"`
}

// WriteFileCall creates or overwrites a file under the filesystem root.
type WriteFileCall struct {
	Path    *string `json:"path"`
	Content string  `json:"content"`
}

// ListDirCall lists a directory under the filesystem root.
type ListDirCall struct {
	Path  string `json:"path"`
	Depth *int   `json:"depth"`
}

// ObsidianReadNoteCall reads a note from the Obsidian vault.
type ObsidianReadNoteCall struct {
	Path *string `json:"path"`
}

// ObsidianWriteNoteCall writes a note to the Obsidian vault.
type ObsidianWriteNoteCall struct {
	Path    *string `json:"path"`
	Content string  `json:"content"`
}

// ObsidianListNotesCall lists notes in a vault folder.
type ObsidianListNotesCall struct {
	Path  string `json:"path"`
	Depth *int   `json:"depth"`
}

// WebSearchCall runs the web search pipeline.
type WebSearchCall struct {
	Query               *string `json:"query"`
	MaxResults          *int    `json:"max_results"`
	IncludePageExcerpts *bool   `json:"include_page_excerpts"`
}

// FetchURLCall fetches a page and strips it to plain text.
type FetchURLCall struct {
	URL      string `json:"url"`
	MaxChars *int   `json:"max_chars"`
}

// RunCommandCall executes a shell command and captures its output.
type RunCommandCall struct {
	Command          *string `json:"command"`
	WorkingDirectory string  `json:"working_directory"`
}

// OpenTerminalCall opens a visible terminal and runs a command there.
type OpenTerminalCall struct {
	Command          *string `json:"command"`
	Shell            string  `json:"shell"`
	KeepOpen         *bool   `json:"keep_open"`
	WorkingDirectory string  `json:"working_directory"`
	NewTab           *bool   `json:"new_tab"`
}

// OpenBrowserSearchCall opens the default browser on a URL or search page.
type OpenBrowserSearchCall struct {
	URL    *string `json:"url"`
	Query  string  `json:"query"`
	Engine string  `json:"engine"`
}

func (*ReadFileCall) toolName() string          { return "read_file" }
func (*WriteFileCall) toolName() string         { return "write_file" }
func (*ListDirCall) toolName() string           { return "list_dir" }
func (*ObsidianReadNoteCall) toolName() string  { return "obsidian_read_note" }
func (*ObsidianWriteNoteCall) toolName() string { return "obsidian_write_note" }
func (*ObsidianListNotesCall) toolName() string { return "obsidian_list_notes" }
func (*WebSearchCall) toolName() string         { return "web_search" }
func (*FetchURLCall) toolName() string          { return "fetch_url" }
func (*RunCommandCall) toolName() string        { return "run_command" }
func (*OpenTerminalCall) toolName() string      { return "open_terminal_and_run" }
func (*OpenBrowserSearchCall) toolName() string { return "open_browser_search" }

// =============================================================================
// PARSING
// =============================================================================

// ParseCall maps a tool name and raw JSON arguments to a typed call.
// An unknown name yields a Tool-not-found error; malformed arguments
// yield an invalid-argument error. Unknown argument keys are ignored.
func ParseCall(name string, args json.RawMessage) (ToolCall, error) {
	var call ToolCall
	switch name {
	case "read_file":
		call = &ReadFileCall{}
	case "write_file":
		call = &WriteFileCall{}
	case "list_dir":
		call = &ListDirCall{}
	case "obsidian_read_note":
		call = &ObsidianReadNoteCall{}
	case "obsidian_write_note":
		call = &ObsidianWriteNoteCall{}
	case "obsidian_list_notes":
		call = &ObsidianListNotesCall{}
	case "web_search":
		call = &WebSearchCall{}
	case "fetch_url":
		call = &FetchURLCall{}
	case "run_command":
		call = &RunCommandCall{}
	case "open_terminal_and_run":
		call = &OpenTerminalCall{}
	case "open_browser_search":
		call = &OpenBrowserSearchCall{}
	default:
		return nil, errUnknownTool(name)
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, call); err != nil {
			return nil, errInvalidArg(err.Error())
		}
	}
	return call, nil
}
