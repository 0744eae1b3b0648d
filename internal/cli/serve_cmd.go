// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - "rigtools serve" runs the loopback HTTP API.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/diag"
	"github.com/jeranaias/rigtools/internal/server"
	"github.com/jeranaias/rigtools/internal/storage"
	"github.com/jeranaias/rigtools/internal/tools"
	"github.com/jeranaias/rigtools/internal/util"
)

// HandleServe handles the "serve" command.
//
// The server runs until SIGINT/SIGTERM, then drains connections. The
// conversation store is optional: without it the settings overlay and
// stats counts degrade gracefully, so a corrupt database does not keep
// the tool API down.
func HandleServe(args Args) error {
	parser := NewArgParser(args.Raw)

	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}

	if port := parser.FlagIntOrDefault("port", 0); port != 0 {
		if port < 1 || port > 65535 {
			return NewValidationError("port", util.IntToString(port), "must be between 1 and 65535")
		}
		cfg = cfg.Clone()
		cfg.Server.Port = port
	}

	for _, w := range cfg.Warnings() {
		StderrPrint("%s %s\n", WarningStyle.Render("[WARN]"), w.String())
	}

	srv := server.New(cfg).
		WithExecutor(tools.NewExecutor(cfg.ExecutorConfig(diag.NewFileSink(cfg.LogPath()))))

	var store *storage.Store
	if path, err := cfg.StoragePath(); err != nil {
		StderrPrint("Warning: storage unavailable: %v\n", err)
	} else if store, err = storage.Open(path); err != nil {
		StderrPrint("Warning: storage unavailable: %v\n", err)
	} else {
		defer store.Close()
		srv.WithStore(store)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !args.Quiet {
		fmt.Println(TitleStyle.Render("rigtools API"))
		fmt.Printf("Listening on http://%s\n", srv.Addr())
		fmt.Println(DimStyle.Render("Ctrl+C to stop."))
	}

	if err := srv.Start(ctx); err != nil {
		return NewCommandError("serve", srv.Addr(), "server failed", err)
	}
	return nil
}
