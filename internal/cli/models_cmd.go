// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models_cmd.go - "rigtools models" manages the local Ollama models.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/detect"
	"github.com/jeranaias/rigtools/internal/ollama"
)

// HandleModels handles the "models" command.
func HandleModels(args Args) error {
	parser := NewArgParser(args.Raw)

	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}
	client := ollamaClient(cfg)

	switch args.Subcommand {
	case "", "list", "ls":
		return handleModelsList(client, args)
	case "pull":
		return handleModelsPull(client, parser.Positional(1), args)
	case "rm", "remove", "delete":
		return handleModelsRemove(client, parser.Positional(1), args)
	case "show":
		return handleModelsShow(client, parser.Positional(1), args)
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand,
			"must be one of: list, pull, rm, show",
			"rigtools models pull llama3.2:1b")
	}
}

// ollamaClient builds an API client from the configuration.
func ollamaClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Ollama.URL,
		DefaultModel: cfg.Ollama.DefaultModel,
	})
}

func handleModelsList(client *ollama.Client, args Args) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	models, err := client.ListModels(ctx)
	if err != nil {
		return modelsError("list", "", err)
	}

	if args.JSON {
		resp := NewJSONResponse("models", models)
		return resp.Print()
	}

	if len(models) == 0 {
		fmt.Println("No models installed.")
		fmt.Println(DimStyle.Render("Download one with: rigtools models pull llama3.2:1b"))
		return nil
	}

	fmt.Println(TitleStyle.Render("Installed Models"))

	headers := []string{"name", "size", "params", "quant", "modified"}
	rows := make([][]string, 0, len(models))
	for i := range models {
		m := &models[i]
		rows = append(rows, []string{
			m.Name,
			m.FormatSize(),
			m.Details.ParameterSize,
			m.Details.QuantizationLevel,
			m.ModifiedAt.Format("2006-01-02"),
		})
	}
	fmt.Print(renderTable(headers, rows))

	if args.Verbose {
		gpu := detect.Cached(context.Background())
		fmt.Println()
		fmt.Println(DimStyle.Render("Hardware: " + gpu.String()))
		for i := range models {
			if !detect.Fits(models[i].Name, gpu.VramGB) {
				fmt.Println(WarningStyle.Render(fmt.Sprintf("  %s likely exceeds available VRAM", models[i].Name)))
			}
		}
	}
	return nil
}

func handleModelsPull(client *ollama.Client, name string, args Args) error {
	if name == "" {
		return ErrMissingArgument("model", "rigtools models pull llama3.2:1b")
	}

	// Ctrl+C aborts the download; partial layers are kept by Ollama and
	// resumed on the next pull.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !args.Quiet {
		fmt.Printf("Pulling %s...\n", HighlightStyle.Render(name))
	}

	start := time.Now()
	var lastStatus string
	err := client.Pull(ctx, name, func(event ollama.PullEvent) {
		if args.Quiet || args.JSON {
			return
		}
		if event.Status != lastStatus && event.Total == 0 {
			lastStatus = event.Status
			fmt.Printf("\r\033[K%s\n", DimStyle.Render(event.Status))
			return
		}
		if event.Total > 0 {
			fmt.Printf("\r\033[K%s %s", renderProgressBar(event.Percent(), 30),
				DimStyle.Render(fmt.Sprintf("%5.1f%%  %s / %s", event.Percent(),
					formatBytes(event.Completed), formatBytes(event.Total))))
		}
	})
	if !args.Quiet && !args.JSON {
		fmt.Println()
	}
	if err != nil {
		return modelsError("pull", name, err)
	}

	if args.JSON {
		resp := NewJSONResponse("models", map[string]interface{}{
			"pulled":      name,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return resp.Print()
	}
	fmt.Printf("%s Pulled %s in %s\n", SuccessStyle.Render("[OK]"), name, formatDurationShort(time.Since(start)))
	return nil
}

func handleModelsRemove(client *ollama.Client, name string, args Args) error {
	if name == "" {
		return ErrMissingArgument("model", "rigtools models rm llama3.2:1b")
	}

	if !args.JSON && CanPrompt() && !promptConfirm(fmt.Sprintf("Remove model %q?", name)) {
		fmt.Println("Aborted.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.DeleteModel(ctx, name); err != nil {
		return modelsError("rm", name, err)
	}

	if args.JSON {
		resp := NewJSONResponse("models", map[string]string{"removed": name})
		return resp.Print()
	}
	fmt.Printf("%s Removed %s\n", SuccessStyle.Render("[OK]"), name)
	return nil
}

func handleModelsShow(client *ollama.Client, name string, args Args) error {
	if name == "" {
		return ErrMissingArgument("model", "rigtools models show llama3.2:1b")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info, err := client.ShowModel(ctx, name)
	if err != nil {
		return modelsError("show", name, err)
	}

	if args.JSON {
		resp := NewJSONResponse("models", info)
		return resp.Print()
	}

	fmt.Println(TitleStyle.Render(name))
	fmt.Printf("%s %s\n", RenderLabel("Family:", 16), info.Details.Family)
	fmt.Printf("%s %s\n", RenderLabel("Parameters:", 16), info.Details.ParameterSize)
	fmt.Printf("%s %s\n", RenderLabel("Quantization:", 16), info.Details.QuantizationLevel)
	fmt.Printf("%s %s\n", RenderLabel("Format:", 16), info.Details.Format)
	if info.Parameters != "" {
		fmt.Println()
		fmt.Println(SectionStyle.Render("Parameters"))
		fmt.Println(DimStyle.Render(strings.TrimSpace(info.Parameters)))
	}
	if args.Verbose && info.Template != "" {
		fmt.Println()
		fmt.Println(SectionStyle.Render("Template"))
		fmt.Println(DimStyle.Render(strings.TrimSpace(info.Template)))
	}
	return nil
}

// modelsError maps client failures onto CLI error types so exit codes
// come out right (not-running vs missing model vs timeout).
func modelsError(action, name string, err error) error {
	switch {
	case ollama.IsModelNotFound(err):
		return NewNotFoundError("model", name)
	case ollama.IsNotRunning(err):
		return NewCommandError("models", action, "Ollama is not running (start it with: ollama serve)", err)
	default:
		return NewCommandError("models", action, "request failed", err)
	}
}

// renderProgressBar renders a fixed-width unicode progress bar.
func renderProgressBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return HighlightStyle.Render(bar)
}
