// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// list.go implements the list_dir tool with bounded recursion.
package tools

import (
	"os"
	"path/filepath"
	"strings"
)

// maxListDepth caps list_dir recursion regardless of the requested depth.
const maxListDepth = 3

// =============================================================================
// LIST
// =============================================================================

// listDirEntries lists a directory under root, one entry per line, sorted by
// name. Directories carry a trailing "/" and nested levels are indented two
// spaces per level. depth defaults to 1 and is capped at maxListDepth.
func listDirEntries(root, path string, depth *int) (string, error) {
	full, err := resolveUnderRoot(root, path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", errIO(err)
	}
	if !info.IsDir() {
		return "", errInvalidArg("Path is not a directory")
	}
	maxDepth := 1
	if depth != nil {
		maxDepth = *depth
	}
	if maxDepth > maxListDepth {
		maxDepth = maxListDepth
	}
	var lines []string
	if err := appendDirEntries(full, 0, maxDepth, &lines); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// appendDirEntries walks one directory level, recursing into subdirectories
// while current+1 stays below maxDepth. Unreadable directories fail the
// whole listing rather than being skipped.
func appendDirEntries(dir string, current, maxDepth int, out *[]string) error {
	if current >= maxDepth {
		return nil
	}
	// os.ReadDir returns entries sorted by filename.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errIO(err)
	}
	indent := strings.Repeat("  ", current)
	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)
		// Stat follows symlinks so a link to a directory lists as one.
		isDir := false
		if info, statErr := os.Stat(full); statErr == nil {
			isDir = info.IsDir()
		}
		marker := ""
		if isDir {
			marker = "/"
		}
		*out = append(*out, indent+name+marker)
		if isDir && current+1 < maxDepth {
			if err := appendDirEntries(full, current+1, maxDepth, out); err != nil {
				return err
			}
		}
	}
	return nil
}
