// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for rigtools.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdConsole Command = iota
	CmdTools
	CmdRun
	CmdSearch
	CmdFetch
	CmdServe
	CmdConfig
	CmdSettings
	CmdModels
	CmdBackup
	CmdRestore
	CmdDoctor
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool // Output in JSON format
	Model   string

	// Command-specific
	Query      string
	ConfigKey  string
	ConfigVal  string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `rigtools - sandboxed tool runtime for local LLM assistants

Rigtools is the tool layer of a local, private chat assistant. It runs
entirely on your machine against a local Ollama instance.

It provides:
  - Sandboxed filesystem and Obsidian vault access
  - Web search and page fetching without API keys
  - A persistent windowed terminal session for shell commands
  - Conversation storage with encrypted backups
  - A loopback HTTP API for chat frontends

Usage:
  rigtools                     Start the interactive console (default)
  rigtools console             Interactive tool console
  rigtools tools               List tool definitions
  rigtools run <tool>          Execute a single tool
  rigtools search <query>      Search the web
  rigtools fetch <url>         Fetch a page as plain text
  rigtools serve               Start the local HTTP API
  rigtools config [get|set]    Configuration
  rigtools settings            Show effective tool settings
  rigtools models [subcommand] Manage Ollama models
  rigtools backup              Write a conversation backup
  rigtools restore <file>      Restore conversations from a backup
  rigtools doctor              System diagnostics
  rigtools version             Show version information

Tool Commands:
  rigtools tools                    List all tool definitions
    --enabled                       Only tools enabled by current config
    --json                          Output as JSON
  rigtools run <tool>               Execute one tool and print the result
    --args JSON                     Tool arguments as a JSON object
    --root DIR                      Override the filesystem sandbox root
    --vault DIR                     Override the Obsidian vault root
    --pretty                        Render markdown output (TTY only)
    --json                          Print the full result envelope as JSON
  rigtools search <query>           Web search via DuckDuckGo
    --max N                         Maximum results, 1-10 (default: 5)
    --no-excerpts                   Skip fetching page excerpts
  rigtools fetch <url>              Fetch a URL as plain text
    --max-chars N                   Truncate to N characters (default: 12000)

Model Commands:
  rigtools models list              List installed models (default)
  rigtools models pull <name>       Download a model with progress
  rigtools models rm <name>         Remove a model
  rigtools models show <name>       Show model details
    --json                          Output as JSON

Backup Commands:
  rigtools backup                   Write a backup of all conversations
    --out FILE                      Output path (default: rigtools-backup.json)
    --encrypt                       Encrypt with a passphrase (AES-256-GCM)
  rigtools restore <file>           Restore conversations from a backup
                                    Prompts for a passphrase when encrypted

Server Commands:
  rigtools serve                    Start the loopback HTTP API
    --port N                        Override the configured port

Config Commands:
  rigtools config                   Show current configuration
  rigtools config get <key>         Show one value (e.g. ollama.url)
  rigtools config set <key> <value> Change a value
  rigtools config path              Print the config file path
  rigtools config keys              List all configuration keys
  rigtools settings                 Show effective tool settings

Global Flags:
  -q, --quiet     Minimal output
  --verbose       Debug output
  --model NAME    Override default model
  --json          Output in JSON format

Examples:
  # Tool execution
  rigtools tools --enabled                      Tools the config exposes
  rigtools run list_dir --args '{"path":"."}'
  rigtools run read_file --args '{"path":"notes/todo.md"}' --pretty
  rigtools run run_command --args '{"command":"git status"}'

  # Web research
  rigtools search "rust borrow checker"
  rigtools search "ollama quantization" --max 3 --no-excerpts
  rigtools fetch https://example.com/article --max-chars 4000

  # Interactive console
  rigtools                                      Start the console
  rigtools console                              Same, explicit

  # Model management
  rigtools models pull llama3.2:1b              Download a small model
  rigtools models list --json                   Installed models as JSON

  # Backups
  rigtools backup --out chats.json              Plaintext backup
  rigtools backup --encrypt                     Encrypted backup (prompts)
  rigtools restore chats.json                   Restore conversations

  # Configuration
  rigtools config set tools.filesystem_enabled true
  rigtools config get ollama.url

  # Diagnostics
  rigtools doctor                               Run health checks
  rigtools doctor --json                        Health checks for scripts

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("rigtools version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	// Parse global flags first
	remaining, parsedArgs := parseGlobalFlags(args)

	// If no remaining args, default to the interactive console
	if len(remaining) == 0 {
		return CmdConsole, parsedArgs
	}

	// Check first argument for command
	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "console", "repl":
		return CmdConsole, parsedArgs

	case "tools", "ls":
		return CmdTools, parsedArgs

	case "run", "exec":
		// Detailed argument parsing is done in run_cmd.go HandleRun
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdRun, parsedArgs

	case "search":
		// Detailed argument parsing is done in search_cmd.go HandleSearch
		return CmdSearch, parsedArgs

	case "fetch":
		// Detailed argument parsing is done in search_cmd.go HandleFetch
		return CmdFetch, parsedArgs

	case "serve", "server":
		return CmdServe, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "settings":
		return CmdSettings, parsedArgs

	case "models", "model":
		// Detailed argument parsing is done in models_cmd.go HandleModels
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdModels, parsedArgs

	case "backup":
		// Detailed argument parsing is done in backup_cmd.go HandleBackup
		return CmdBackup, parsedArgs

	case "restore":
		// Detailed argument parsing is done in backup_cmd.go HandleRestore
		return CmdRestore, parsedArgs

	case "doctor":
		return CmdDoctor, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command. Restore it so the caller can name it in the
		// error message.
		parsedArgs.Raw = append([]string{cmd}, remaining...)
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--model":
			if i+1 < len(args) {
				i++
				parsedArgs.Model = args[i]
			}
		default:
			// Check for --model=value format
			if strings.HasPrefix(arg, "--model=") {
				parsedArgs.Model = strings.TrimPrefix(arg, "--model=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = remaining[2]
		}
	}
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleVersion handles the "version" command.
func HandleVersion() {
	PrintVersion()
}

// HandleVersionWithJSON handles the "version" command with JSON output support.
func HandleVersionWithJSON(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		resp := NewJSONResponse("version", data)
		resp.Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}

// HandleUnknown reports an unrecognized command and exits with a usage error.
func HandleUnknown(args Args) {
	name := ""
	if len(args.Raw) > 0 {
		name = args.Raw[0]
	}
	fmt.Fprintf(os.Stderr, "Unknown command: %q\n", name)
	fmt.Fprintln(os.Stderr, "Run 'rigtools help' for usage.")
	os.Exit(ExitUsageError)
}
