// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// sandbox.go confines every filesystem tool to a user-selected root.
package tools

import (
	"os"
	"path/filepath"
	"strings"
)

// =============================================================================
// RELATIVE PATH CHECK
// =============================================================================

// checkRelativePath normalizes a requested path and rejects anything that
// is not a plain relative path. Backslashes are treated as separators so
// Windows-style input behaves the same on every platform.
func checkRelativePath(requested string) (string, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(requested), "\\", "/")
	if strings.Contains(trimmed, "..") || strings.HasPrefix(trimmed, "/") {
		return "", errPathNotAllowed("Path must be relative and cannot contain '..'")
	}
	return trimmed, nil
}

// canonicalAbs resolves a path to its absolute, symlink-free form.
func canonicalAbs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// containsPath reports whether candidate equals root or sits below it.
// Both paths must already be canonical.
func containsPath(root, candidate string) bool {
	if candidate == root {
		return true
	}
	return strings.HasPrefix(candidate, root+string(os.PathSeparator))
}

// =============================================================================
// ROOT RESOLUTION
// =============================================================================

// resolveUnderRoot resolves a relative path against the root and validates
// containment. The target must exist (read and list operations).
// SECURITY: canonicalization resolves symlinks before the containment
// check, so a link pointing outside the root is rejected.
func resolveUnderRoot(root, requested string) (string, error) {
	canonRoot, err := canonicalAbs(root)
	if err != nil {
		return "", errPathNotAllowed("root invalid: " + err.Error())
	}
	trimmed, err := checkRelativePath(requested)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(canonRoot, filepath.FromSlash(trimmed))
	canonical, err := canonicalAbs(joined)
	if err != nil {
		return "", errPathNotAllowed("path invalid or not found: " + err.Error())
	}
	if !containsPath(canonRoot, canonical) {
		return "", errPathNotAllowed("Resolved path is outside the allowed root")
	}
	return canonical, nil
}

// resolveUnderRootForWrite resolves a relative path for writing. The
// target may not exist yet; when it does not, the closest existing parent
// is canonicalized and checked instead.
func resolveUnderRootForWrite(root, requested string) (string, error) {
	canonRoot, err := canonicalAbs(root)
	if err != nil {
		return "", errPathNotAllowed("root invalid: " + err.Error())
	}
	trimmed, err := checkRelativePath(requested)
	if err != nil {
		return "", err
	}
	full := filepath.Join(canonRoot, filepath.FromSlash(trimmed))
	if _, err := os.Stat(full); err == nil {
		canonical, err := canonicalAbs(full)
		if err != nil {
			return "", errPathNotAllowed("path invalid: " + err.Error())
		}
		if !containsPath(canonRoot, canonical) {
			return "", errPathNotAllowed("Resolved path is outside the allowed root")
		}
		return canonical, nil
	}
	parent := filepath.Dir(full)
	if _, err := os.Stat(parent); err == nil {
		canonParent, err := canonicalAbs(parent)
		if err != nil {
			return "", errPathNotAllowed("parent path invalid: " + err.Error())
		}
		if !containsPath(canonRoot, canonParent) {
			return "", errPathNotAllowed("Path is outside the allowed root")
		}
	}
	return full, nil
}
