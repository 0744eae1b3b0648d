// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// definitions.go holds the tool catalog: metadata, JSON schemas, risk
// levels, and capability-based filtering.
package tools

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// RISK LEVELS
// =============================================================================

// RiskLevel indicates how dangerous a tool operation is.
type RiskLevel int

const (
	// RiskReadOnly - reads inside the sandbox, no side effects
	RiskReadOnly RiskLevel = iota

	// RiskWrite - creates or overwrites files inside the sandbox
	RiskWrite

	// RiskNetwork - performs outbound HTTP requests
	RiskNetwork

	// RiskHigh - executes commands with the user's permissions
	RiskHigh

	// RiskLow - local side effects only (opens the default browser)
	RiskLow
)

// String returns the wire identifier for a risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskReadOnly:
		return "read_only"
	case RiskWrite:
		return "write"
	case RiskNetwork:
		return "network"
	case RiskHigh:
		return "high"
	case RiskLow:
		return "low"
	default:
		return "unknown"
	}
}

// Color returns the badge color associated with a risk level.
func (r RiskLevel) Color() string {
	switch r {
	case RiskReadOnly:
		return "#34D399" // Emerald
	case RiskWrite:
		return "#FBBF24" // Amber
	case RiskNetwork:
		return "#06B6D4" // Cyan
	case RiskHigh:
		return "#FB7185" // Rose
	case RiskLow:
		return "#A6ADC8" // Gray
	default:
		return "#A6ADC8"
	}
}

// MarshalJSON serializes the risk level as its wire identifier.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// =============================================================================
// TOOL DEFINITION
// =============================================================================

// ToolDefinition describes one tool as presented to the model.
type ToolDefinition struct {
	// ID groups related tools (e.g. "filesystem", "terminal")
	ID string `json:"id"`

	// Name is the unique tool name used for dispatch
	Name string `json:"name"`

	// Description explains when the model should call the tool
	Description string `json:"description"`

	// Scope is a human-readable reach statement shown in settings
	Scope string `json:"scope"`

	// Risk indicates how dangerous the tool is
	Risk RiskLevel `json:"risk"`

	// Schema defines the tool's parameters
	Schema Schema `json:"json_schema"`
}

// Schema defines a tool's parameters. It marshals to a JSON Schema object
// with additionalProperties always false.
type Schema struct {
	Parameters []Parameter
}

// Parameter defines a single tool parameter.
type Parameter struct {
	// Name of the parameter
	Name string

	// Type is the JSON type ("string", "integer", "boolean")
	Type string

	// Required indicates if the parameter must be provided
	Required bool

	// Description explains the parameter
	Description string

	// Minimum/Maximum bound integer parameters (zero means unset)
	Minimum int
	Maximum int

	// Default is the value applied when the parameter is omitted
	Default interface{}

	// Enum lists the allowed values for string parameters
	Enum []string
}

type schemaProperty struct {
	Type        string      `json:"type"`
	Enum        []string    `json:"enum,omitempty"`
	Minimum     int         `json:"minimum,omitempty"`
	Maximum     int         `json:"maximum,omitempty"`
	Default     interface{} `json:"default,omitempty"`
	Description string      `json:"description,omitempty"`
}

type schemaObject struct {
	Type                 string                    `json:"type"`
	Required             []string                  `json:"required,omitempty"`
	Properties           map[string]schemaProperty `json:"properties"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// MarshalJSON renders the schema as a JSON Schema object.
func (s Schema) MarshalJSON() ([]byte, error) {
	obj := schemaObject{
		Type:       "object",
		Properties: make(map[string]schemaProperty, len(s.Parameters)),
	}
	for _, p := range s.Parameters {
		if p.Required {
			obj.Required = append(obj.Required, p.Name)
		}
		obj.Properties[p.Name] = schemaProperty{
			Type:        p.Type,
			Enum:        p.Enum,
			Minimum:     p.Minimum,
			Maximum:     p.Maximum,
			Default:     p.Default,
			Description: p.Description,
		}
	}
	return json.Marshal(obj)
}

// =============================================================================
// BUILT-IN TOOL DEFINITIONS
// =============================================================================

// ReadFileTool reads a text file inside the filesystem sandbox.
var ReadFileTool = ToolDefinition{
	ID:          "filesystem",
	Name:        "read_file",
	Description: "Read a UTF-8 text file. Only within the selected root directory. Use relative path from root.",
	Scope:       "Sandboxed to user-selected root",
	Risk:        RiskReadOnly,
	Schema: Schema{Parameters: []Parameter{
		{Name: "path", Type: "string", Required: true, Description: "Relative path to file from root"},
		{Name: "head", Type: "integer", Minimum: 1, Description: "Return only first N lines"},
		{Name: "tail", Type: "integer", Minimum: 1, Description: "Return only last N lines"},
	}},
}

// WriteFileTool creates or overwrites a text file inside the sandbox.
var WriteFileTool = ToolDefinition{
	ID:          "filesystem",
	Name:        "write_file",
	Description: "Write a UTF-8 text file. Only within the selected root. Creates parent directories if needed.",
	Scope:       "Sandboxed to user-selected root",
	Risk:        RiskWrite,
	Schema: Schema{Parameters: []Parameter{
		{Name: "path", Type: "string", Required: true, Description: "Relative path from root"},
		{Name: "content", Type: "string", Required: true, Description: "File content"},
	}},
}

// ListDirTool lists directory contents inside the sandbox.
var ListDirTool = ToolDefinition{
	ID:          "filesystem",
	Name:        "list_dir",
	Description: "List directory contents (names, with / for dirs). Only within the selected root.",
	Scope:       "Sandboxed to user-selected root",
	Risk:        RiskReadOnly,
	Schema: Schema{Parameters: []Parameter{
		{Name: "path", Type: "string", Required: true, Description: "Relative path to directory from root"},
		{Name: "depth", Type: "integer", Minimum: 1, Maximum: 3, Default: 1},
	}},
}

// ObsidianReadNoteTool reads a Markdown note from the vault.
var ObsidianReadNoteTool = ToolDefinition{
	ID:          "obsidian",
	Name:        "obsidian_read_note",
	Description: "Read an Obsidian note (Markdown) from the vault. Path is vault-relative (e.g. 'Daily/2026-02-10.md'). Preserves frontmatter.",
	Scope:       "Obsidian vault path",
	Risk:        RiskReadOnly,
	Schema: Schema{Parameters: []Parameter{
		{Name: "path", Type: "string", Required: true, Description: "Vault-relative path, e.g. 'Daily/2026-02-10.md'"},
	}},
}

// ObsidianWriteNoteTool writes a Markdown note to the vault.
var ObsidianWriteNoteTool = ToolDefinition{
	ID:          "obsidian",
	Name:        "obsidian_write_note",
	Description: "Write an Obsidian note (Markdown) to the vault. Preserve frontmatter if present in content.",
	Scope:       "Obsidian vault path",
	Risk:        RiskWrite,
	Schema: Schema{Parameters: []Parameter{
		{Name: "path", Type: "string", Required: true, Description: "Vault-relative path"},
		{Name: "content", Type: "string", Required: true, Description: "Markdown content (include frontmatter if desired)"},
	}},
}

// ObsidianListNotesTool lists notes in a vault folder.
var ObsidianListNotesTool = ToolDefinition{
	ID:          "obsidian",
	Name:        "obsidian_list_notes",
	Description: "List note files in a vault folder. Path is vault-relative.",
	Scope:       "Obsidian vault path",
	Risk:        RiskReadOnly,
	Schema: Schema{Parameters: []Parameter{
		{Name: "path", Type: "string", Required: true, Description: "Vault-relative path to directory"},
		{Name: "depth", Type: "integer", Minimum: 1, Maximum: 3, Default: 1},
	}},
}

// WebSearchTool searches the web via the DuckDuckGo instant-answer API.
var WebSearchTool = ToolDefinition{
	ID:          "web_search",
	Name:        "web_search",
	Description: "Search the web (DuckDuckGo). Returns title, snippet, URL, and optional page excerpts so you can summarize the pages (not just list links). Use for current info and to summarize what each result says. Cite results.",
	Scope:       "Internet (opt-in)",
	Risk:        RiskNetwork,
	Schema: Schema{Parameters: []Parameter{
		{Name: "query", Type: "string", Required: true, Description: "Search query"},
		{Name: "max_results", Type: "integer", Minimum: 1, Maximum: 10, Default: 5},
		{Name: "include_page_excerpts", Type: "boolean", Default: true, Description: "When true (default), fetch each result URL and include a text excerpt so you can summarize the page content."},
	}},
}

// FetchURLTool fetches a page and returns its plain text.
var FetchURLTool = ToolDefinition{
	ID:          "web",
	Name:        "fetch_url",
	Description: "Fetch a URL and return the page content as plain text. Use when the user asks to summarize a link, explain a page, or gives you a URL—you receive the content as context and summarize or answer from it; the user does not need to copy-paste anything.",
	Scope:       "Internet (opt-in)",
	Risk:        RiskNetwork,
	Schema: Schema{Parameters: []Parameter{
		{Name: "url", Type: "string", Required: true, Description: "Full URL to fetch (e.g. https://example.com/article)"},
		{Name: "max_chars", Type: "integer", Minimum: 500, Maximum: 20000, Default: 12000, Description: "Max plain-text characters to return (for context window)"},
	}},
}

// RunCommandTool executes a shell command and captures its output.
var RunCommandTool = ToolDefinition{
	ID:          "terminal",
	Name:        "run_command",
	Description: "Execute a shell command. Returns stdout and stderr. One command per call. Use with caution—commands run with your user permissions.",
	Scope:       "Local system (opt-in)",
	Risk:        RiskHigh,
	Schema: Schema{Parameters: []Parameter{
		{Name: "command", Type: "string", Required: true, Description: "Command to execute (e.g. 'ls -la' or 'dir' on Windows)"},
		{Name: "working_directory", Type: "string", Description: "Optional: working directory (absolute path). Defaults to user home (root), not the app folder."},
	}},
}

// OpenTerminalTool opens a visible terminal window and runs a command there.
var OpenTerminalTool = ToolDefinition{
	ID:          "terminal",
	Name:        "open_terminal_and_run",
	Description: "Open a visible CLI and run a command. By default reuses the same terminal tab; set new_tab=true for a new tab. Default working directory is user home (root), not the app folder. Windows: PowerShell, cmd, or wt.",
	Scope:       "Local system (opt-in)",
	Risk:        RiskHigh,
	Schema: Schema{Parameters: []Parameter{
		{Name: "shell", Type: "string", Enum: []string{"powershell", "cmd", "wt"}, Default: "powershell"},
		{Name: "command", Type: "string", Required: true, Description: "Command to run in the terminal"},
		{Name: "keep_open", Type: "boolean", Default: true},
		{Name: "working_directory", Type: "string", Description: "Optional: working directory. Defaults to user home (root), not the app folder."},
		{Name: "new_tab", Type: "boolean", Default: false, Description: "If true, open a new terminal tab/window. If false (default), reuse the same terminal."},
	}},
}

// OpenBrowserSearchTool opens the default browser on a URL or search page.
var OpenBrowserSearchTool = ToolDefinition{
	ID:          "browser",
	Name:        "open_browser_search",
	Description: "Open the default browser to a URL or search page. The app also fetches the opened page (or first DuckDuckGo result) and returns its text in the tool response—use that content as context to summarize or answer; do not ask the user to paste.",
	Scope:       "Local (opens browser)",
	Risk:        RiskLow,
	Schema: Schema{Parameters: []Parameter{
		{Name: "url", Type: "string", Description: "Direct URL to open (e.g. https://duckduckgo.com/?q=...)"},
		{Name: "query", Type: "string", Description: "Search query when using engine"},
		{Name: "engine", Type: "string", Enum: []string{"duckduckgo", "bing", "google"}, Default: "duckduckgo", Description: "Search engine when using query"},
	}},
}

// =============================================================================
// CATALOG
// =============================================================================

func filesystemDefinitions() []ToolDefinition {
	return []ToolDefinition{ReadFileTool, WriteFileTool, ListDirTool}
}

func obsidianDefinitions() []ToolDefinition {
	return []ToolDefinition{ObsidianReadNoteTool, ObsidianWriteNoteTool, ObsidianListNotesTool}
}

func webSearchDefinitions() []ToolDefinition {
	return []ToolDefinition{WebSearchTool}
}

func fetchURLDefinitions() []ToolDefinition {
	return []ToolDefinition{FetchURLTool}
}

func terminalDefinitions() []ToolDefinition {
	return []ToolDefinition{RunCommandTool, OpenTerminalTool}
}

func openBrowserSearchDefinitions() []ToolDefinition {
	return []ToolDefinition{OpenBrowserSearchTool}
}

// AllDefinitions returns every tool definition regardless of settings.
func AllDefinitions() []ToolDefinition {
	out := filesystemDefinitions()
	out = append(out, obsidianDefinitions()...)
	out = append(out, webSearchDefinitions()...)
	out = append(out, fetchURLDefinitions()...)
	out = append(out, terminalDefinitions()...)
	out = append(out, openBrowserSearchDefinitions()...)
	return out
}

// =============================================================================
// CAPABILITY GATING
// =============================================================================

// Capabilities holds the per-group enablement switches from settings.
// A group whose root is required but blank stays disabled even when its
// enabled flag is set.
type Capabilities struct {
	FilesystemEnabled bool
	FilesystemRoot    string
	ObsidianEnabled   bool
	ObsidianVault     string
	WebSearchEnabled  bool
	TerminalEnabled   bool
}

// EnabledDefinitions returns the tool definitions exposed for the given
// capabilities.
func EnabledDefinitions(caps Capabilities) []ToolDefinition {
	var out []ToolDefinition
	if caps.FilesystemEnabled && strings.TrimSpace(caps.FilesystemRoot) != "" {
		out = append(out, filesystemDefinitions()...)
	}
	if caps.ObsidianEnabled && strings.TrimSpace(caps.ObsidianVault) != "" {
		out = append(out, obsidianDefinitions()...)
	}
	if caps.WebSearchEnabled {
		out = append(out, webSearchDefinitions()...)
		out = append(out, fetchURLDefinitions()...)
		out = append(out, openBrowserSearchDefinitions()...)
	}
	if caps.TerminalEnabled {
		out = append(out, terminalDefinitions()...)
	}
	return out
}
