// rigtools - sandboxed tool runtime for local LLM assistants.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"github.com/jeranaias/rigtools/internal/cli"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdConsole:
		cli.HandleErrorAndExit(cli.HandleConsole(args), args.JSON)
	case cli.CmdTools:
		cli.HandleErrorAndExit(cli.HandleTools(args), args.JSON)
	case cli.CmdRun:
		cli.HandleErrorAndExit(cli.HandleRun(args), args.JSON)
	case cli.CmdSearch:
		cli.HandleErrorAndExit(cli.HandleSearch(args), args.JSON)
	case cli.CmdFetch:
		cli.HandleErrorAndExit(cli.HandleFetch(args), args.JSON)
	case cli.CmdServe:
		cli.HandleErrorAndExit(cli.HandleServe(args), args.JSON)
	case cli.CmdConfig:
		cli.HandleErrorAndExit(cli.HandleConfig(args), args.JSON)
	case cli.CmdSettings:
		cli.HandleErrorAndExit(cli.HandleSettings(args), args.JSON)
	case cli.CmdModels:
		cli.HandleErrorAndExit(cli.HandleModels(args), args.JSON)
	case cli.CmdBackup:
		cli.HandleErrorAndExit(cli.HandleBackup(args), args.JSON)
	case cli.CmdRestore:
		cli.HandleErrorAndExit(cli.HandleRestore(args), args.JSON)
	case cli.CmdDoctor:
		cli.HandleErrorAndExit(cli.HandleDoctor(args), args.JSON)
	case cli.CmdVersion:
		cli.HandleVersionWithJSON(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	case cli.CmdUnknown:
		cli.HandleUnknown(args)
	}
}
