// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// write.go implements the write_file tool with parent directory creation.
package tools

import (
	"fmt"
	"os"
	"path/filepath"
)

// =============================================================================
// WRITE
// =============================================================================

// writeFileContent writes content to a file under root, creating parent
// directories as needed. The target must not be an existing directory.
func writeFileContent(root, path, content string) (string, error) {
	full, err := resolveUnderRootForWrite(root, path)
	if err != nil {
		return "", err
	}
	if info, statErr := os.Stat(full); statErr == nil && info.IsDir() {
		return "", errInvalidArg("Path is a directory")
	}
	if parent := filepath.Dir(full); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", errIO(err)
		}
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return "", errIO(err)
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), full), nil
}
