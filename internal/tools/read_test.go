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
// READ FILE TESTS
// =============================================================================

func writeTestFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func intPtr(n int) *int { return &n }

func TestReadFileContent(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "small.txt", "hello\nworld\n")

	t.Run("full content returned verbatim", func(t *testing.T) {
		got, err := readFileContent(root, "small.txt", nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "hello\nworld\n" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("head returns first lines", func(t *testing.T) {
		got, err := readFileContent(root, "small.txt", intPtr(1), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "hello" {
			t.Errorf("got %q, want %q", got, "hello")
		}
	})

	t.Run("tail returns last lines", func(t *testing.T) {
		got, err := readFileContent(root, "small.txt", nil, intPtr(1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "world" {
			t.Errorf("got %q, want %q", got, "world")
		}
	})

	t.Run("head wins when both given", func(t *testing.T) {
		got, err := readFileContent(root, "small.txt", intPtr(1), intPtr(1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "hello" {
			t.Errorf("got %q, want %q", got, "hello")
		}
	})

	t.Run("head larger than file returns all lines", func(t *testing.T) {
		got, err := readFileContent(root, "small.txt", intPtr(100), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "hello\nworld" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("directory is not a file", func(t *testing.T) {
		_, err := readFileContent(root, ".", nil, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		if !IsKind(err, KindInvalidArg) {
			t.Errorf("expected invalid_arg, got %v", err)
		}
		if !strings.Contains(err.Error(), "Path is not a file") {
			t.Errorf("unexpected message: %v", err)
		}
	})

	t.Run("oversized file rejected", func(t *testing.T) {
		writeTestFile(t, root, "big.bin", strings.Repeat("a", maxFileSizeBytes+1))
		_, err := readFileContent(root, "big.bin", nil, nil)
		if err == nil {
			t.Fatal("expected error")
		}
		want := fmt.Sprintf("File too large (max %d bytes)", maxFileSizeBytes)
		if !strings.Contains(err.Error(), want) {
			t.Errorf("unexpected message: %v", err)
		}
	})
}

func TestReadFileContentTruncation(t *testing.T) {
	root := t.TempDir()
	var sb strings.Builder
	for i := 0; i < maxReadLines+50; i++ {
		fmt.Fprintf(&sb, "line %d\n", i)
	}
	writeTestFile(t, root, "long.txt", sb.String())

	t.Run("default read truncates with marker", func(t *testing.T) {
		got, err := readFileContent(root, "long.txt", nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasSuffix(got, "\n... (truncated, max 2000 lines)") {
			t.Errorf("missing truncation marker, tail: %q", got[len(got)-60:])
		}
		lines := strings.Split(got, "\n")
		// maxReadLines content lines plus the marker line
		if len(lines) != maxReadLines+1 {
			t.Errorf("got %d lines, want %d", len(lines), maxReadLines+1)
		}
	})

	t.Run("explicit head bypasses marker", func(t *testing.T) {
		got, err := readFileContent(root, "long.txt", intPtr(3), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "line 0\nline 1\nline 2" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("head capped at max lines", func(t *testing.T) {
		got, err := readFileContent(root, "long.txt", intPtr(maxReadLines+500), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		lines := strings.Split(got, "\n")
		if len(lines) != maxReadLines {
			t.Errorf("got %d lines, want %d", len(lines), maxReadLines)
		}
	})

	t.Run("tail returns final lines", func(t *testing.T) {
		got, err := readFileContent(root, "long.txt", nil, intPtr(2))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := fmt.Sprintf("line %d\nline %d", maxReadLines+48, maxReadLines+49)
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: nil},
		{name: "no trailing newline", input: "a\nb", want: []string{"a", "b"}},
		{name: "trailing newline dropped", input: "a\nb\n", want: []string{"a", "b"}},
		{name: "blank interior line kept", input: "a\n\nb", want: []string{"a", "", "b"}},
		{name: "crlf stripped", input: "a\r\nb\r\n", want: []string{"a", "b"}},
		{name: "single newline", input: "\n", want: []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitLines(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("splitLines(%q) = %q, want %q", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
