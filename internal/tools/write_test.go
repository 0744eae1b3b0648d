// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// WRITE FILE TESTS
// =============================================================================

func TestWriteFileContent(t *testing.T) {
	t.Run("writes new file and reports bytes", func(t *testing.T) {
		root := t.TempDir()
		msg, err := writeFileContent(root, "out.txt", "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(msg, "Wrote 5 bytes to ") {
			t.Errorf("unexpected message: %q", msg)
		}
		data, err := os.ReadFile(filepath.Join(root, "out.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "hello" {
			t.Errorf("file content = %q", data)
		}
	})

	t.Run("creates missing parent directories", func(t *testing.T) {
		root := t.TempDir()
		if _, err := writeFileContent(root, "a/b/c.txt", "nested"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(filepath.Join(root, "a", "b", "c.txt"))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "nested" {
			t.Errorf("file content = %q", data)
		}
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, root, "out.txt", "old")
		if _, err := writeFileContent(root, "out.txt", "new"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, _ := os.ReadFile(filepath.Join(root, "out.txt"))
		if string(data) != "new" {
			t.Errorf("file content = %q", data)
		}
	})

	t.Run("byte count is bytes not runes", func(t *testing.T) {
		root := t.TempDir()
		msg, err := writeFileContent(root, "uni.txt", "héllo")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := fmt.Sprintf("Wrote %d bytes to ", len("héllo"))
		if !strings.HasPrefix(msg, want) {
			t.Errorf("message = %q, want prefix %q", msg, want)
		}
	})

	t.Run("directory target rejected", func(t *testing.T) {
		root := t.TempDir()
		if err := os.Mkdir(filepath.Join(root, "dir"), 0o755); err != nil {
			t.Fatal(err)
		}
		_, err := writeFileContent(root, "dir", "x")
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "Path is a directory") {
			t.Errorf("unexpected message: %v", err)
		}
	})

	t.Run("traversal rejected", func(t *testing.T) {
		root := t.TempDir()
		_, err := writeFileContent(root, "../escape.txt", "x")
		if err == nil {
			t.Fatal("expected error")
		}
		if !IsKind(err, KindPathNotAllowed) {
			t.Errorf("expected path_not_allowed, got %v", err)
		}
	})
}
