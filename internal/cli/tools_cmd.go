// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tools_cmd.go - "rigtools tools" lists the tool definitions.

package cli

import (
	"fmt"
	"strings"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/tools"
	"github.com/jeranaias/rigtools/internal/util"
)

// HandleTools handles the "tools" command.
//
// Lists every tool definition with its risk level and scope, marking
// which ones the current configuration exposes. With --enabled only
// the exposed tools are shown.
func HandleTools(args Args) error {
	parser := NewArgParser(args.Raw)
	onlyEnabled := parser.BoolFlag("enabled")

	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}
	caps := cfg.Capabilities()

	enabled := make(map[string]bool)
	for _, def := range tools.EnabledDefinitions(caps) {
		enabled[def.Name] = true
	}

	defs := tools.AllDefinitions()
	if onlyEnabled {
		defs = tools.EnabledDefinitions(caps)
	}

	if args.JSON {
		resp := NewJSONResponse("tools", defs)
		return resp.Print()
	}

	fmt.Println(TitleStyle.Render("Tool Definitions"))

	headers := []string{"name", "risk", "status", "scope"}
	rows := make([][]string, 0, len(defs))
	for _, def := range defs {
		status := "off"
		if enabled[def.Name] {
			status = "on"
		}
		rows = append(rows, []string{def.Name, def.Risk.String(), status, def.Scope})
	}
	widths := columnWidths(headers, rows)

	for i, h := range headers {
		if i > 0 {
			fmt.Print("  ")
		}
		fmt.Print(DimStyle.Render(padCell(strings.ToUpper(h), widths[i])))
	}
	fmt.Println()

	for i, def := range defs {
		row := rows[i]

		// Pad before styling so column widths stay correct
		risk := RiskStyle(def.Risk.Color()).Render(padCell(row[1], widths[1]))
		status := padCell(row[2], widths[2])
		if enabled[def.Name] {
			status = SuccessStyle.Render(status)
		} else {
			status = DimStyle.Render(status)
		}

		fmt.Printf("%s  %s  %s  %s\n", padCell(row[0], widths[0]), risk, status, row[3])
		if args.Verbose {
			fmt.Printf("  %s\n", DimStyle.Render(util.TruncateRunes(def.Description, 120)))
		}
	}

	fmt.Println()
	if onlyEnabled {
		fmt.Println(DimStyle.Render(fmt.Sprintf("%d tools enabled.", len(defs))))
		return nil
	}
	fmt.Println(DimStyle.Render(fmt.Sprintf("%d of %d tools enabled.", len(enabled), len(defs))))
	if len(enabled) < len(defs) {
		fmt.Println(DimStyle.Render("Enable a group with: rigtools config set tools.web_search_enabled true"))
	}
	return nil
}
