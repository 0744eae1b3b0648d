// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations, messages, and settings for
// rigtools in a local SQLite database.
//
// The database lives at ~/.rigtools/rigtools.db by default and is opened
// with WAL journaling on a single connection. Conversations and their
// messages are keyed by UUID; settings are plain key/value rows. Tool
// settings stored here override the TOML configuration at load time.
//
// # Key Types
//
//   - Store: handle to the SQLite database
//   - Conversation: conversation metadata plus ordered message IDs
//   - Message: a single chat message within a conversation
//   - Backup: portable JSON export, optionally passphrase-encrypted
//
// # Usage
//
// Open a store and record a conversation:
//
//	store, err := storage.Open(cfg.StoragePath())
//	conv, err := store.CreateConversation("GPU troubleshooting")
//	msg, err := store.AppendMessage(conv.ID, "user", "why is my 7900 XTX idle?")
//
// List and load conversations:
//
//	convs, err := store.ListConversations()
//	conv, msgs, err := store.GetConversation(convs[0].ID)
//
// Back up everything to a single file, encrypted with a passphrase:
//
//	err := store.WriteBackup("rigtools-backup.json", "correct horse battery")
//	n, err := store.RestoreBackup("rigtools-backup.json", "correct horse battery")
package storage
