// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// read.go implements the read_file tool with size and line caps.
package tools

import (
	"fmt"
	"os"
	"strings"
)

// =============================================================================
// READ LIMITS
// =============================================================================

const (
	// maxFileSizeBytes caps the size of any file a read may touch (512 KiB)
	maxFileSizeBytes = 512 * 1024

	// maxReadLines caps the number of lines returned per read
	maxReadLines = 2000
)

// =============================================================================
// READ
// =============================================================================

// readFileContent reads a text file under root. head and tail return only
// the first or last N lines; when neither is set and the file exceeds
// maxReadLines, the output is truncated with a trailing marker.
func readFileContent(root, path string, head, tail *int) (string, error) {
	full, err := resolveUnderRoot(root, path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", errIO(err)
	}
	if !info.Mode().IsRegular() {
		return "", errInvalidArg("Path is not a file")
	}
	if info.Size() > maxFileSizeBytes {
		return "", errInvalidArg(fmt.Sprintf("File too large (max %d bytes)", maxFileSizeBytes))
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", errIO(err)
	}
	content := string(data)
	lines := splitLines(content)
	total := len(lines)
	if total > maxReadLines && head == nil && tail == nil {
		return strings.Join(lines[:maxReadLines], "\n") + "\n... (truncated, max 2000 lines)", nil
	}
	switch {
	case head != nil:
		n := clampLineCount(*head)
		if n > total {
			n = total
		}
		return strings.Join(lines[:n], "\n"), nil
	case tail != nil:
		n := clampLineCount(*tail)
		start := total - n
		if start < 0 {
			start = 0
		}
		return strings.Join(lines[start:], "\n"), nil
	default:
		return content, nil
	}
}

// clampLineCount bounds a requested head/tail count to [0, maxReadLines].
func clampLineCount(n int) int {
	if n < 0 {
		return 0
	}
	if n > maxReadLines {
		return maxReadLines
	}
	return n
}

// splitLines splits on newlines without producing a trailing empty line
// for a final newline. Carriage returns at line ends are stripped.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
