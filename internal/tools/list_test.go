// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// =============================================================================
// LIST DIR TESTS
// =============================================================================

func setupListTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"beta", "alpha", "alpha/inner"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, file := range []string{"zed.txt", "alpha/a.txt", "alpha/inner/deep.txt", "beta/b.txt"} {
		if err := os.WriteFile(filepath.Join(root, file), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestListDirEntries(t *testing.T) {
	root := setupListTree(t)

	t.Run("default depth lists one level sorted", func(t *testing.T) {
		got, err := listDirEntries(root, ".", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "alpha/\nbeta/\nzed.txt"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("depth two indents nested entries", func(t *testing.T) {
		got, err := listDirEntries(root, ".", intPtr(2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := strings.Join([]string{
			"alpha/",
			"  a.txt",
			"  inner/",
			"beta/",
			"  b.txt",
			"zed.txt",
		}, "\n")
		if got != want {
			t.Errorf("got:\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("depth three reaches deepest level", func(t *testing.T) {
		got, err := listDirEntries(root, ".", intPtr(3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(got, "    deep.txt") {
			t.Errorf("missing doubly indented entry:\n%s", got)
		}
	})

	t.Run("depth above cap behaves like cap", func(t *testing.T) {
		capped, err := listDirEntries(root, ".", intPtr(99))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		atCap, err := listDirEntries(root, ".", intPtr(maxListDepth))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if capped != atCap {
			t.Errorf("depth 99 output differs from depth %d", maxListDepth)
		}
	})

	t.Run("depth zero lists nothing", func(t *testing.T) {
		got, err := listDirEntries(root, ".", intPtr(0))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})

	t.Run("subdirectory listing", func(t *testing.T) {
		got, err := listDirEntries(root, "alpha", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "a.txt\ninner/"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("file target rejected", func(t *testing.T) {
		_, err := listDirEntries(root, "zed.txt", nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "Path is not a directory") {
			t.Errorf("unexpected message: %v", err)
		}
	})

	t.Run("empty directory lists empty", func(t *testing.T) {
		empty := t.TempDir()
		got, err := listDirEntries(empty, ".", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}
