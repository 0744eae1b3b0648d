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
// RELATIVE PATH CHECK TESTS
// =============================================================================

func TestCheckRelativePath(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		want      string
		wantError bool
	}{
		{
			name:      "plain relative path",
			requested: "notes/todo.md",
			want:      "notes/todo.md",
		},
		{
			name:      "backslashes normalized",
			requested: "notes\\sub\\todo.md",
			want:      "notes/sub/todo.md",
		},
		{
			name:      "surrounding whitespace trimmed",
			requested: "  readme.md  ",
			want:      "readme.md",
		},
		{
			name:      "parent traversal rejected",
			requested: "../secret.txt",
			wantError: true,
		},
		{
			name:      "embedded traversal rejected",
			requested: "a/../../b",
			wantError: true,
		},
		{
			name:      "absolute path rejected",
			requested: "/etc/passwd",
			wantError: true,
		},
		{
			name:      "windows style traversal rejected",
			requested: "..\\escape.txt",
			wantError: true,
		},
		{
			name:      "double dot anywhere in name rejected",
			requested: "report..txt",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checkRelativePath(tt.requested)
			if tt.wantError {
				if err == nil {
					t.Fatalf("checkRelativePath(%q) expected error, got %q", tt.requested, got)
				}
				if !IsKind(err, KindPathNotAllowed) {
					t.Errorf("expected path_not_allowed, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("checkRelativePath(%q) unexpected error: %v", tt.requested, err)
			}
			if got != tt.want {
				t.Errorf("checkRelativePath(%q) = %q, want %q", tt.requested, got, tt.want)
			}
		})
	}
}

// =============================================================================
// ROOT CONTAINMENT TESTS
// =============================================================================

func TestResolveUnderRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "file.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("existing path resolves", func(t *testing.T) {
		got, err := resolveUnderRoot(root, "sub/file.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(got, filepath.Join("sub", "file.txt")) {
			t.Errorf("resolved to %q", got)
		}
	})

	t.Run("missing path is rejected", func(t *testing.T) {
		_, err := resolveUnderRoot(root, "sub/missing.txt")
		if err == nil {
			t.Fatal("expected error for missing path")
		}
		if !IsKind(err, KindPathNotAllowed) {
			t.Errorf("expected path_not_allowed, got %v", err)
		}
	})

	t.Run("invalid root is rejected", func(t *testing.T) {
		_, err := resolveUnderRoot(filepath.Join(root, "nonexistent-root"), "file.txt")
		if err == nil {
			t.Fatal("expected error for invalid root")
		}
		if !IsKind(err, KindPathNotAllowed) {
			t.Errorf("expected path_not_allowed, got %v", err)
		}
	})

	t.Run("symlink escaping root is rejected", func(t *testing.T) {
		outside := t.TempDir()
		if err := os.WriteFile(filepath.Join(outside, "target.txt"), []byte("y"), 0o644); err != nil {
			t.Fatal(err)
		}
		link := filepath.Join(root, "escape")
		if err := os.Symlink(filepath.Join(outside, "target.txt"), link); err != nil {
			t.Skipf("cannot create symlink: %v", err)
		}
		_, err := resolveUnderRoot(root, "escape")
		if err == nil {
			t.Fatal("expected containment error")
		}
		if !IsKind(err, KindPathNotAllowed) {
			t.Errorf("expected path_not_allowed, got %v", err)
		}
	})
}

func TestResolveUnderRootForWrite(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "existing.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("existing file resolves canonically", func(t *testing.T) {
		got, err := resolveUnderRootForWrite(root, "existing.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(got, "existing.txt") {
			t.Errorf("resolved to %q", got)
		}
	})

	t.Run("new file under existing parent", func(t *testing.T) {
		got, err := resolveUnderRootForWrite(root, "new.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Base(got) != "new.txt" {
			t.Errorf("resolved to %q", got)
		}
	})

	t.Run("new file under missing parent allowed", func(t *testing.T) {
		got, err := resolveUnderRootForWrite(root, "deep/nested/new.txt")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if filepath.Base(got) != "new.txt" {
			t.Errorf("resolved to %q", got)
		}
	})

	t.Run("symlinked parent escaping root is rejected", func(t *testing.T) {
		outside := t.TempDir()
		link := filepath.Join(root, "sneaky")
		if err := os.Symlink(outside, link); err != nil {
			t.Skipf("cannot create symlink: %v", err)
		}
		_, err := resolveUnderRootForWrite(root, "sneaky/new.txt")
		if err == nil {
			t.Fatal("expected containment error")
		}
		if !IsKind(err, KindPathNotAllowed) {
			t.Errorf("expected path_not_allowed, got %v", err)
		}
	})

	t.Run("traversal rejected before touching disk", func(t *testing.T) {
		_, err := resolveUnderRootForWrite(root, "../outside.txt")
		if err == nil {
			t.Fatal("expected error")
		}
		if !IsKind(err, KindPathNotAllowed) {
			t.Errorf("expected path_not_allowed, got %v", err)
		}
	})
}
