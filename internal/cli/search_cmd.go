// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// search_cmd.go - "rigtools search" and "rigtools fetch" web commands.
//
// Both are thin front-ends over the web_search and fetch_url tools so the
// research pipeline can be exercised from the shell without an assistant
// in the loop.

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/diag"
	"github.com/jeranaias/rigtools/internal/tools"
	"github.com/jeranaias/rigtools/internal/util"
)

// HandleSearch handles the "search" command.
func HandleSearch(args Args) error {
	parser := NewArgParser(args.Raw)

	query := strings.TrimSpace(JoinPositionalArgs(parser, 0))
	if query == "" {
		return ErrMissingArgument("query", `rigtools search "rust borrow checker"`)
	}

	maxResults := parser.FlagIntOrDefault("max", 5)
	if maxResults < 1 || maxResults > 10 {
		return NewValidationError("max", util.IntToString(maxResults), "must be between 1 and 10")
	}
	includeExcerpts := !parser.BoolFlag("no-excerpts")

	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}

	callArgs, err := json.Marshal(map[string]interface{}{
		"query":                 query,
		"max_results":           maxResults,
		"include_page_excerpts": includeExcerpts,
	})
	if err != nil {
		return NewCommandError("search", "encode", "failed to build arguments", err)
	}

	executor := tools.NewExecutor(cfg.ExecutorConfig(diag.NewFileSink(cfg.LogPath())))
	result, err := executor.Execute(context.Background(), "web_search", callArgs, "", "")
	if err != nil {
		return NewCommandError("search", "execute", "search rejected", err)
	}

	if args.JSON {
		resp := NewJSONResponse("search", SearchData{
			Query:      query,
			MaxResults: maxResults,
			Content:    result.Content,
		})
		return resp.Print()
	}

	var out tools.WebSearchOutput
	if err := json.Unmarshal([]byte(result.Content), &out); err != nil {
		// The envelope is always JSON; anything else is a bug worth
		// surfacing raw rather than hiding.
		fmt.Println(result.Content)
		return nil
	}

	renderSearchOutput(&out, args.Verbose)
	return nil
}

// renderSearchOutput prints a WebSearchOutput for humans.
func renderSearchOutput(out *tools.WebSearchOutput, verbose bool) {
	if !out.OK {
		fmt.Printf("%s %s\n", ErrorStyle.Render("[ERROR]"), out.Error)
		return
	}

	if out.QueryRewritten != "" && out.QueryRewritten != out.QueryOriginal {
		fmt.Println(DimStyle.Render(fmt.Sprintf("Query rewritten: %q -> %q", out.QueryOriginal, out.QueryRewritten)))
	}

	if out.ResultCount == 0 {
		fmt.Println("No results.")
		if out.SuggestOpenBrowserSearch != nil && *out.SuggestOpenBrowserSearch {
			fmt.Println(DimStyle.Render("Try: rigtools run open_browser_search --args '{\"query\":\"" + out.QueryOriginal + "\"}'"))
		}
		return
	}

	for i, item := range out.Results {
		fmt.Printf("%s %s\n", HighlightStyle.Render(fmt.Sprintf("%d.", i+1)), TitleStyle.Render(item.Title))
		if item.Snippet != "" {
			fmt.Printf("   %s\n", WrapText(item.Snippet, GetTerminalWidth()-3))
		}
		fmt.Printf("   %s\n", DimStyle.Render(item.URL))
		if verbose && item.PageExcerpt != "" {
			fmt.Printf("   %s\n", DimStyle.Render(util.TruncateRunes(item.PageExcerpt, 400)))
		}
		fmt.Println()
	}

	fmt.Println(DimStyle.Render(fmt.Sprintf("%d results via %s.", out.ResultCount, out.Provider)))
	if verbose {
		for _, step := range out.Steps {
			status := "ok"
			if !step.OK {
				status = "miss"
			}
			fmt.Println(DimStyle.Render(fmt.Sprintf("  step %-24s %-4s %s", step.Name, status, step.Detail)))
		}
	}
}

// HandleFetch handles the "fetch" command.
func HandleFetch(args Args) error {
	parser := NewArgParser(args.Raw)

	rawURL := parser.Positional(0)
	if rawURL == "" {
		return ErrMissingArgument("url", "rigtools fetch https://example.com/article")
	}

	maxChars := parser.FlagIntOrDefault("max-chars", 12000)

	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}

	callArgs, err := json.Marshal(map[string]interface{}{
		"url":       rawURL,
		"max_chars": maxChars,
	})
	if err != nil {
		return NewCommandError("fetch", "encode", "failed to build arguments", err)
	}

	executor := tools.NewExecutor(cfg.ExecutorConfig(diag.NewFileSink(cfg.LogPath())))
	result, err := executor.Execute(context.Background(), "fetch_url", callArgs, "", "")
	if err != nil {
		return NewCommandError("fetch", "execute", "fetch rejected", err)
	}
	if !result.OK {
		return NewCommandError("fetch", rawURL, "fetch failed", fmt.Errorf("%s", result.Error))
	}

	if args.JSON {
		resp := NewJSONResponse("fetch", FetchData{URL: rawURL, Content: result.Content})
		return resp.Print()
	}

	fmt.Println(result.Content)
	return nil
}
