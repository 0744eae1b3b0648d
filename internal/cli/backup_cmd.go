// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// backup_cmd.go - "rigtools backup" and "rigtools restore" commands.
//
// Backups are portable JSON exports of the conversation database,
// optionally sealed with a passphrase (PBKDF2 + AES-256-GCM). Restore
// merges by ID, so restoring into a live database is safe.

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/storage"
)

// defaultBackupFile is the backup target when --out is not given.
const defaultBackupFile = "rigtools-backup.json"

// openStore opens the conversation database from the configuration.
func openStore() (*storage.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		StderrPrint("Warning: using default configuration: %v\n", err)
	}
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, NewCommandError("storage", "open", "cannot resolve database path", err)
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, NewCommandError("storage", "open", "cannot open database", err)
	}
	return store, nil
}

// HandleBackup handles the "backup" command.
func HandleBackup(args Args) error {
	parser := NewArgParser(args.Raw)

	out := parser.FlagOrDefault("out", defaultBackupFile)
	encrypt := parser.BoolFlag("encrypt")

	passphrase := ""
	if encrypt {
		if err := RequiresTTY("encrypted backup"); err != nil {
			return err
		}
		var err error
		if passphrase, err = promptNewPassword(); err != nil {
			return err
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	conversations, messages, err := store.Counts()
	if err != nil {
		return NewCommandError("backup", out, "cannot read database", err)
	}

	if err := store.WriteBackup(out, passphrase); err != nil {
		return NewCommandError("backup", out, "failed to write backup", err)
	}

	var size int64
	if info, err := os.Stat(out); err == nil {
		size = info.Size()
	}

	data := BackupData{
		Path:          out,
		Encrypted:     encrypt,
		Conversations: conversations,
		Messages:      messages,
		SizeBytes:     size,
	}

	if args.JSON {
		resp := NewJSONResponse("backup", data)
		return resp.Print()
	}

	label := "plaintext"
	if encrypt {
		label = "encrypted"
	}
	fmt.Printf("%s Wrote %s backup to %s\n", SuccessStyle.Render("[OK]"), label, out)
	fmt.Println(DimStyle.Render(fmt.Sprintf("%d conversations, %d messages, %s",
		conversations, messages, formatBytes(size))))
	return nil
}

// HandleRestore handles the "restore" command.
func HandleRestore(args Args) error {
	parser := NewArgParser(args.Raw)

	path := parser.Positional(0)
	if path == "" {
		return ErrMissingArgument("file", "rigtools restore rigtools-backup.json")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return NewCommandError("restore", path, "cannot read backup file", err)
	}

	passphrase := ""
	if storage.IsEncrypted(raw) {
		if err := RequiresTTY("encrypted restore"); err != nil {
			return err
		}
		if passphrase, err = promptPassword("Passphrase: "); err != nil {
			return err
		}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	imported, err := store.RestoreBackup(path, passphrase)
	if err != nil {
		return NewCommandError("restore", path, "failed to restore backup", err)
	}

	if args.JSON {
		resp := NewJSONResponse("restore", RestoreData{Path: path, Imported: imported})
		return resp.Print()
	}
	fmt.Printf("%s Restored %d conversations from %s\n", SuccessStyle.Render("[OK]"), imported, path)
	return nil
}
