// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"strings"
	"testing"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParseCallUnknownTool(t *testing.T) {
	_, err := ParseCall("frobnicate", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsKind(err, KindUnknownTool) {
		t.Errorf("expected unknown-tool kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "Tool not found: frobnicate") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestParseCallMalformedJSON(t *testing.T) {
	_, err := ParseCall("read_file", []byte(`{"path":`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsKind(err, KindInvalidArg) {
		t.Errorf("expected invalid-arg kind, got %v", err)
	}
}

func TestParseCallWrongFieldType(t *testing.T) {
	_, err := ParseCall("read_file", []byte(`{"path": 42}`))
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsKind(err, KindInvalidArg) {
		t.Errorf("expected invalid-arg kind, got %v", err)
	}
}

func TestParseCallReadFile(t *testing.T) {
	call, err := ParseCall("read_file", []byte(`{"path":"notes/a.txt","head":3}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rf, ok := call.(*ReadFileCall)
	if !ok {
		t.Fatalf("wrong type %T", call)
	}
	if rf.Path == nil || *rf.Path != "notes/a.txt" {
		t.Errorf("path = %v", rf.Path)
	}
	if rf.Head == nil || *rf.Head != 3 {
		t.Errorf("head = %v", rf.Head)
	}
	if rf.Tail != nil {
		t.Errorf("tail should be absent, got %v", *rf.Tail)
	}
}

func TestParseCallWebSearch(t *testing.T) {
	call, err := ParseCall("web_search", []byte(`{"query":"go","max_results":3,"include_page_excerpts":false}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ws, ok := call.(*WebSearchCall)
	if !ok {
		t.Fatalf("wrong type %T", call)
	}
	if ws.Query == nil || *ws.Query != "go" {
		t.Errorf("query = %v", ws.Query)
	}
	if ws.MaxResults == nil || *ws.MaxResults != 3 {
		t.Errorf("max_results = %v", ws.MaxResults)
	}
	if ws.IncludePageExcerpts == nil || *ws.IncludePageExcerpts {
		t.Errorf("include_page_excerpts = %v", ws.IncludePageExcerpts)
	}
}

func TestParseCallOpenTerminal(t *testing.T) {
	call, err := ParseCall("open_terminal_and_run", []byte(`{"command":"dir","shell":"cmd","keep_open":false,"new_tab":true,"working_directory":"C:\\work"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ot, ok := call.(*OpenTerminalCall)
	if !ok {
		t.Fatalf("wrong type %T", call)
	}
	if ot.Command == nil || *ot.Command != "dir" {
		t.Errorf("command = %v", ot.Command)
	}
	if ot.Shell != "cmd" {
		t.Errorf("shell = %q", ot.Shell)
	}
	if ot.KeepOpen == nil || *ot.KeepOpen {
		t.Errorf("keep_open = %v", ot.KeepOpen)
	}
	if ot.NewTab == nil || !*ot.NewTab {
		t.Errorf("new_tab = %v", ot.NewTab)
	}
	if ot.WorkingDirectory != `C:\work` {
		t.Errorf("working_directory = %q", ot.WorkingDirectory)
	}
}

// Absent optional fields must stay distinguishable from explicit zeros.
func TestParseCallEmptyArgs(t *testing.T) {
	call, err := ParseCall("web_search", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ws := call.(*WebSearchCall)
	if ws.Query != nil || ws.MaxResults != nil || ws.IncludePageExcerpts != nil {
		t.Errorf("expected all fields absent: %+v", ws)
	}
}

func TestParseCallIgnoresUnknownKeys(t *testing.T) {
	call, err := ParseCall("fetch_url", []byte(`{"url":"https://example.com","surprise":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fu := call.(*FetchURLCall)
	if fu.URL != "https://example.com" {
		t.Errorf("url = %q", fu.URL)
	}
}

// =============================================================================
// NAME TESTS
// =============================================================================

func TestToolCallNamesMatchCatalog(t *testing.T) {
	calls := []ToolCall{
		&ReadFileCall{},
		&WriteFileCall{},
		&ListDirCall{},
		&ObsidianReadNoteCall{},
		&ObsidianWriteNoteCall{},
		&ObsidianListNotesCall{},
		&WebSearchCall{},
		&FetchURLCall{},
		&RunCommandCall{},
		&OpenTerminalCall{},
		&OpenBrowserSearchCall{},
	}

	catalog := make(map[string]bool)
	for _, d := range AllDefinitions() {
		catalog[d.Name] = true
	}
	for _, c := range calls {
		name := c.toolName()
		if !catalog[name] {
			t.Errorf("call name %q has no catalog entry", name)
		}
		parsed, err := ParseCall(name, nil)
		if err != nil {
			t.Errorf("ParseCall(%q) failed: %v", name, err)
			continue
		}
		if parsed.toolName() != name {
			t.Errorf("round trip name = %q, want %q", parsed.toolName(), name)
		}
	}
	if len(calls) != len(catalog) {
		t.Errorf("call variants = %d, catalog entries = %d", len(calls), len(catalog))
	}
}
