// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - "rigtools config" and "rigtools settings" commands.
//
// config reads and writes the TOML file; settings shows the effective
// tool settings after the stored-row overlay, which is what the
// dispatcher and server actually act on.

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/storage"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return handleConfigShow(args)
	case "get":
		return handleConfigGet(args)
	case "set":
		return handleConfigSet(args)
	case "path":
		return handleConfigPath(args)
	case "keys":
		return handleConfigKeys(args)
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand,
			"must be one of: show, get, set, path, keys",
			"rigtools config set tools.web_search_enabled true")
	}
}

func handleConfigShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}

	if args.JSON {
		resp := NewJSONResponse("config", cfg)
		return resp.Print()
	}

	fmt.Println(TitleStyle.Render("Configuration"))
	fmt.Println(cfg.String())

	warnings := cfg.Warnings()
	for _, w := range warnings {
		fmt.Printf("%s %s\n", WarningStyle.Render("[WARN]"), w.String())
	}
	if len(warnings) == 0 && !args.Quiet {
		if path, err := config.ConfigPath(); err == nil {
			fmt.Println(DimStyle.Render("File: " + path))
		}
	}
	return nil
}

func handleConfigGet(args Args) error {
	if args.ConfigKey == "" {
		return ErrMissingArgument("key", "rigtools config get ollama.url")
	}

	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}

	value, err := cfg.Get(args.ConfigKey)
	if err != nil {
		return NewNotFoundError("config key", args.ConfigKey)
	}

	if args.JSON {
		resp := NewJSONResponse("config", map[string]interface{}{args.ConfigKey: value})
		return resp.Print()
	}
	fmt.Printf("%v\n", value)
	return nil
}

func handleConfigSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return ErrMissingArgument("key and value", "rigtools config set tools.filesystem_enabled true")
	}

	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: starting from default configuration: %v\n", err)
	}

	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return NewValidationError(args.ConfigKey, args.ConfigVal, err.Error())
	}
	if err := cfg.Save(); err != nil {
		return NewCommandError("config", "set", "failed to save configuration", err)
	}

	if args.JSON {
		resp := NewJSONResponse("config", map[string]interface{}{args.ConfigKey: args.ConfigVal})
		return resp.Print()
	}
	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), args.ConfigKey, args.ConfigVal)

	for _, w := range cfg.Warnings() {
		fmt.Printf("%s %s\n", WarningStyle.Render("[WARN]"), w.String())
	}
	return nil
}

func handleConfigPath(args Args) error {
	path, err := config.ConfigPath()
	if err != nil {
		return NewCommandError("config", "path", "cannot resolve config path", err)
	}
	if args.JSON {
		resp := NewJSONResponse("config", map[string]string{"path": path})
		return resp.Print()
	}
	fmt.Println(path)
	return nil
}

func handleConfigKeys(args Args) error {
	keys := config.GetAllKeys()
	sort.Strings(keys)

	if args.JSON {
		resp := NewJSONResponse("config", keys)
		return resp.Print()
	}
	for _, k := range keys {
		fmt.Println(k)
	}
	return nil
}

// HandleSettings handles the "settings" command.
//
// Shows the effective tool settings: the TOML [tools] block overlaid
// with settings rows from the conversation database, matching what the
// server resolves per request.
func HandleSettings(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}

	base := storage.ToolSettings{
		FilesystemEnabled: cfg.Tools.FilesystemEnabled,
		FilesystemRoot:    cfg.Tools.FilesystemRoot,
		ObsidianEnabled:   cfg.Tools.ObsidianEnabled,
		ObsidianVaultPath: cfg.Tools.ObsidianVaultPath,
		WebSearchEnabled:  cfg.Tools.WebSearchEnabled,
		TerminalEnabled:   cfg.Tools.TerminalEnabled,
	}

	effective := base
	source := "config"
	if path, err := cfg.StoragePath(); err == nil {
		if store, err := storage.Open(path); err == nil {
			if overlaid, err := store.OverlayToolSettings(base); err == nil {
				effective = overlaid
				source = "config+storage"
			}
			store.Close()
		}
	}

	data := SettingsData{
		Filesystem:     effective.FilesystemEnabled,
		FilesystemRoot: effective.FilesystemRoot,
		Obsidian:       effective.ObsidianEnabled,
		ObsidianVault:  effective.ObsidianVaultPath,
		WebSearch:      effective.WebSearchEnabled,
		Terminal:       effective.TerminalEnabled,
		Source:         source,
	}

	if args.JSON {
		resp := NewJSONResponse("settings", data)
		return resp.Print()
	}

	fmt.Println(TitleStyle.Render("Effective Tool Settings"))
	printSetting("filesystem", effective.FilesystemEnabled, effective.FilesystemRoot)
	printSetting("obsidian", effective.ObsidianEnabled, effective.ObsidianVaultPath)
	printSetting("web_search", effective.WebSearchEnabled, "")
	printSetting("terminal", effective.TerminalEnabled, "")
	fmt.Println()
	fmt.Println(DimStyle.Render("Source: " + source))
	return nil
}

// printSetting renders one capability line with its optional root.
func printSetting(name string, enabled bool, root string) {
	status := DimStyle.Render("off")
	if enabled {
		status = SuccessStyle.Render("on")
	}
	line := fmt.Sprintf("  %-12s %s", name, status)
	if enabled && root != "" {
		line += "  " + DimStyle.Render(root)
	}
	if enabled && root == "" && strings.HasPrefix(name, "filesystem") {
		line += "  " + DimStyle.Render("(home directory)")
	}
	fmt.Println(line)
}
