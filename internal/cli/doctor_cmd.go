// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor_cmd.go - "rigtools doctor" system health checks.
//
// Checks the collaborators the tool runtime depends on: the Ollama
// runtime, the configured model, the sandbox roots, the conversation
// database, and the diagnostic log. Exit code 1 when any check fails.

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/detect"
	"github.com/jeranaias/rigtools/internal/storage"
	"github.com/jeranaias/rigtools/internal/tools"
)

// HandleDoctor handles the "doctor" command.
func HandleDoctor(args Args) error {
	cfg, cfgErr := config.Load()

	checks := []DoctorCheck{
		checkConfig(cfg, cfgErr),
		checkOllamaRunning(cfg),
		checkModelInstalled(cfg),
		checkGPU(),
		checkFilesystemRoot(cfg),
		checkVaultPath(cfg),
		checkStorage(cfg),
		checkLogWritable(cfg),
		checkTerminalSupport(cfg),
	}

	var passed, warned, failed int
	for _, c := range checks {
		switch c.Status {
		case "pass":
			passed++
		case "warn":
			warned++
		default:
			failed++
		}
	}
	summary := DoctorSummary{Passed: passed, Warned: warned, Failed: failed, Healthy: failed == 0}

	if args.JSON {
		resp := NewJSONResponse("doctor", DoctorData{Checks: checks, Summary: summary})
		if failed > 0 {
			resp.Success = false
		}
		if err := resp.Print(); err != nil {
			return err
		}
	} else {
		fmt.Println(TitleStyle.Render("rigtools doctor"))
		fmt.Println()
		for _, c := range checks {
			fmt.Printf("%s %-22s %s\n", RenderStatus(c.Status), c.Name, c.Message)
			if c.Fix != "" && c.Status != "pass" {
				fmt.Printf("   %s\n", DimStyle.Render("fix: "+c.Fix))
			}
		}
		fmt.Println()
		fmt.Println(DimStyle.Render(fmt.Sprintf("%d passed, %d warnings, %d failed.", passed, warned, failed)))
	}

	if failed > 0 {
		return NewCommandError("doctor", "checks", fmt.Sprintf("%d check(s) failed", failed), nil)
	}
	return nil
}

// =============================================================================
// CHECKS
// =============================================================================

func checkConfig(cfg *config.Config, err error) DoctorCheck {
	if err != nil {
		return DoctorCheck{
			Name:    "Config",
			Status:  "warn",
			Message: fmt.Sprintf("using defaults (%v)", err),
			Fix:     "rigtools config set <key> <value> writes a fresh file",
		}
	}
	if warnings := cfg.Warnings(); len(warnings) > 0 {
		return DoctorCheck{
			Name:    "Config",
			Status:  "warn",
			Message: warnings[0].String(),
		}
	}
	path, _ := config.ConfigPath()
	return DoctorCheck{Name: "Config", Status: "pass", Message: path}
}

func checkOllamaRunning(cfg *config.Config) DoctorCheck {
	client := ollamaClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		return DoctorCheck{
			Name:    "Ollama",
			Status:  "fail",
			Message: fmt.Sprintf("not reachable at %s", client.BaseURL()),
			Fix:     "ollama serve",
		}
	}

	version, err := client.Version(ctx)
	if err != nil || version == "" {
		return DoctorCheck{Name: "Ollama", Status: "pass", Message: "running at " + client.BaseURL()}
	}
	return DoctorCheck{Name: "Ollama", Status: "pass", Message: fmt.Sprintf("running, version %s", version)}
}

func checkModelInstalled(cfg *config.Config) DoctorCheck {
	client := ollamaClient(cfg)
	model := client.DefaultModel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		return DoctorCheck{
			Name:    "Default model",
			Status:  "warn",
			Message: "cannot list models while Ollama is down",
		}
	}
	for i := range models {
		if models[i].Name == model {
			return DoctorCheck{
				Name:    "Default model",
				Status:  "pass",
				Message: fmt.Sprintf("%s installed (%s)", model, models[i].FormatSize()),
			}
		}
	}
	return DoctorCheck{
		Name:    "Default model",
		Status:  "warn",
		Message: fmt.Sprintf("%s not installed", model),
		Fix:     "rigtools models pull " + model,
	}
}

func checkGPU() DoctorCheck {
	gpu := detect.Cached(context.Background())
	if !gpu.Detected() {
		return DoctorCheck{
			Name:    "GPU",
			Status:  "warn",
			Message: gpu.String() + " (inference will be slow)",
		}
	}
	return DoctorCheck{Name: "GPU", Status: "pass", Message: gpu.String()}
}

func checkFilesystemRoot(cfg *config.Config) DoctorCheck {
	if !cfg.Tools.FilesystemEnabled {
		return DoctorCheck{Name: "Filesystem root", Status: "pass", Message: "group disabled"}
	}
	root, _ := cfg.ResolveRoots()
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return DoctorCheck{
			Name:    "Filesystem root",
			Status:  "fail",
			Message: fmt.Sprintf("%s is not a directory", root),
			Fix:     "rigtools config set tools.filesystem_root <dir>",
		}
	}
	return DoctorCheck{Name: "Filesystem root", Status: "pass", Message: root}
}

func checkVaultPath(cfg *config.Config) DoctorCheck {
	if !cfg.Tools.ObsidianEnabled {
		return DoctorCheck{Name: "Obsidian vault", Status: "pass", Message: "group disabled"}
	}
	vault := cfg.Tools.ObsidianVaultPath
	if vault == "" {
		return DoctorCheck{
			Name:    "Obsidian vault",
			Status:  "fail",
			Message: "enabled without a vault path",
			Fix:     "rigtools config set tools.obsidian_vault_path <dir>",
		}
	}
	info, err := os.Stat(vault)
	if err != nil || !info.IsDir() {
		return DoctorCheck{
			Name:    "Obsidian vault",
			Status:  "fail",
			Message: fmt.Sprintf("%s is not a directory", vault),
			Fix:     "rigtools config set tools.obsidian_vault_path <dir>",
		}
	}
	return DoctorCheck{Name: "Obsidian vault", Status: "pass", Message: vault}
}

func checkStorage(cfg *config.Config) DoctorCheck {
	path, err := cfg.StoragePath()
	if err != nil {
		return DoctorCheck{Name: "Storage", Status: "fail", Message: err.Error()}
	}
	store, err := storage.Open(path)
	if err != nil {
		return DoctorCheck{
			Name:    "Storage",
			Status:  "fail",
			Message: fmt.Sprintf("cannot open %s: %v", path, err),
		}
	}
	defer store.Close()

	conversations, messages, err := store.Counts()
	if err != nil {
		return DoctorCheck{Name: "Storage", Status: "fail", Message: err.Error()}
	}
	return DoctorCheck{
		Name:    "Storage",
		Status:  "pass",
		Message: fmt.Sprintf("%s (%d conversations, %d messages)", path, conversations, messages),
	}
}

func checkLogWritable(cfg *config.Config) DoctorCheck {
	path := cfg.LogPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return DoctorCheck{Name: "Diagnostics log", Status: "warn", Message: fmt.Sprintf("cannot create %s: %v", dir, err)}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return DoctorCheck{Name: "Diagnostics log", Status: "warn", Message: fmt.Sprintf("not writable: %v", err)}
	}
	f.Close()
	return DoctorCheck{Name: "Diagnostics log", Status: "pass", Message: path}
}

func checkTerminalSupport(cfg *config.Config) DoctorCheck {
	if !cfg.Tools.TerminalEnabled {
		return DoctorCheck{Name: "Windowed terminal", Status: "pass", Message: "group disabled"}
	}
	if !tools.SupportsWindowedTerminal() {
		return DoctorCheck{
			Name:    "Windowed terminal",
			Status:  "warn",
			Message: "open_terminal_and_run is Windows-only on this platform; run_command still works",
		}
	}
	return DoctorCheck{Name: "Windowed terminal", Status: "pass", Message: "supported"}
}
