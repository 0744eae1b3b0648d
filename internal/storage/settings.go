// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations, messages, and settings for rigtools.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings row keys for tool configuration. Key names are kept stable
// for existing databases.
const (
	keyFilesystemEnabled = "mcp_filesystem_enabled"
	keyFilesystemRoot    = "mcp_filesystem_root"
	keyObsidianEnabled   = "mcp_obsidian_enabled"
	keyObsidianVaultPath = "mcp_obsidian_vault_path"
	keyWebSearchEnabled  = "mcp_web_search_enabled"
	keyTerminalEnabled   = "mcp_terminal_enabled"
)

// ToolSettings is the tool configuration held in settings rows. It
// mirrors the [tools] block of the TOML configuration; stored rows
// override TOML values.
type ToolSettings struct {
	FilesystemEnabled bool   `json:"filesystem_enabled"`
	FilesystemRoot    string `json:"filesystem_root"`
	ObsidianEnabled   bool   `json:"obsidian_enabled"`
	ObsidianVaultPath string `json:"obsidian_vault_path"`
	WebSearchEnabled  bool   `json:"web_search_enabled"`
	TerminalEnabled   bool   `json:"terminal_enabled"`
}

// GetSetting returns the value stored under key. The second return is
// false when the key is absent.
func (s *Store) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting: %w", err)
	}
	return value, true, nil
}

// SetSetting inserts or replaces a settings row.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting: %w", err)
	}
	return nil
}

// AllSettings returns every settings row as a map.
func (s *Store) AllSettings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	return out, nil
}

// =============================================================================
// TOOL SETTINGS OVERLAY
// =============================================================================

// OverlayToolSettings applies stored tool-settings rows on top of base
// and returns the effective settings. Absent rows leave the base value
// unchanged. Boolean rows that fail to parse count as false.
func (s *Store) OverlayToolSettings(base ToolSettings) (ToolSettings, error) {
	all, err := s.AllSettings()
	if err != nil {
		return base, err
	}

	if v, ok := all[keyFilesystemEnabled]; ok {
		base.FilesystemEnabled = parseBoolSetting(v)
	}
	if v, ok := all[keyFilesystemRoot]; ok {
		base.FilesystemRoot = v
	}
	if v, ok := all[keyObsidianEnabled]; ok {
		base.ObsidianEnabled = parseBoolSetting(v)
	}
	if v, ok := all[keyObsidianVaultPath]; ok {
		base.ObsidianVaultPath = v
	}
	if v, ok := all[keyWebSearchEnabled]; ok {
		base.WebSearchEnabled = parseBoolSetting(v)
	}
	if v, ok := all[keyTerminalEnabled]; ok {
		base.TerminalEnabled = parseBoolSetting(v)
	}
	return base, nil
}

// SaveToolSettings writes all tool-settings rows in one transaction.
func (s *Store) SaveToolSettings(ts ToolSettings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	pairs := []struct {
		key   string
		value string
	}{
		{keyFilesystemEnabled, strconv.FormatBool(ts.FilesystemEnabled)},
		{keyFilesystemRoot, ts.FilesystemRoot},
		{keyObsidianEnabled, strconv.FormatBool(ts.ObsidianEnabled)},
		{keyObsidianVaultPath, ts.ObsidianVaultPath},
		{keyWebSearchEnabled, strconv.FormatBool(ts.WebSearchEnabled)},
		{keyTerminalEnabled, strconv.FormatBool(ts.TerminalEnabled)},
	}
	for _, p := range pairs {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, p.key, p.value); err != nil {
			return fmt.Errorf("failed to write setting: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

func parseBoolSetting(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}
