// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeDDG(t *testing.T, body string) *duckDuckGoResponse {
	t.Helper()
	var out duckDuckGoResponse
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &out
}

// =============================================================================
// INSTANT ANSWER PARSING TESTS
// =============================================================================

func TestParseDuckDuckGoAbstract(t *testing.T) {
	body := decodeDDG(t, `{
		"Abstract": "Joe Biden is the 46th president.",
		"AbstractURL": "https://example.com/president",
		"RelatedTopics": []
	}`)

	results := parseDuckDuckGoResults(body, 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].URL != "https://example.com/president" {
		t.Errorf("url = %q", results[0].URL)
	}
	if !strings.Contains(results[0].Snippet, "46th") {
		t.Errorf("snippet = %q", results[0].Snippet)
	}
}

func TestParseDuckDuckGoRelatedTopics(t *testing.T) {
	body := decodeDDG(t, `{
		"Abstract": "",
		"AbstractURL": "",
		"RelatedTopics": [
			{"Text": "Topic one text", "FirstURL": "https://en.wikipedia.org/wiki/One"}
		]
	}`)

	results := parseDuckDuckGoResults(body, 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if !strings.Contains(results[0].URL, "wikipedia") {
		t.Errorf("url = %q", results[0].URL)
	}
}

func TestParseDuckDuckGoNestedTopics(t *testing.T) {
	body := decodeDDG(t, `{
		"Abstract": "",
		"AbstractURL": "",
		"RelatedTopics": [
			{"Name": "Category", "Topics": [
				{"Text": "Nested one", "FirstURL": "https://example.com/1"}
			]}
		]
	}`)

	results := parseDuckDuckGoResults(body, 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].URL != "https://example.com/1" {
		t.Errorf("url = %q", results[0].URL)
	}
}

func TestParseDuckDuckGoMaxResults(t *testing.T) {
	body := decodeDDG(t, `{
		"Abstract": "",
		"AbstractURL": "",
		"RelatedTopics": [
			{"Text": "one", "FirstURL": "https://example.com/1"},
			{"Text": "two", "FirstURL": "https://example.com/2"},
			{"Text": "three", "FirstURL": "https://example.com/3"}
		]
	}`)

	results := parseDuckDuckGoResults(body, 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestParseDuckDuckGoSkipsIncompleteTopics(t *testing.T) {
	body := decodeDDG(t, `{
		"Abstract": "",
		"AbstractURL": "",
		"RelatedTopics": [
			{"Text": "no url"},
			{"FirstURL": "https://example.com/no-text"},
			{"Text": "complete", "FirstURL": "https://example.com/ok"}
		]
	}`)

	results := parseDuckDuckGoResults(body, 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].URL != "https://example.com/ok" {
		t.Errorf("url = %q", results[0].URL)
	}
}

func TestTruncateResultTitle(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := truncateResultTitle(long)
	if got != strings.Repeat("a", 117)+"…" {
		t.Errorf("got %d runes: %q", len([]rune(got)), got)
	}
	if short := truncateResultTitle("short"); short != "short" {
		t.Errorf("got %q", short)
	}
}

func TestResultTitleIsFirstLine(t *testing.T) {
	body := decodeDDG(t, `{
		"Abstract": "Line one\nLine two",
		"AbstractURL": "https://example.com/multi",
		"RelatedTopics": []
	}`)

	results := parseDuckDuckGoResults(body, 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Title != "Line one" {
		t.Errorf("title = %q", results[0].Title)
	}
}

// =============================================================================
// FIRST RESULT LOOKUP TESTS
// =============================================================================

func TestDuckDuckGoFirstResultURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Abstract": "Found it.",
			"AbstractURL": "https://example.com/top",
			"RelatedTopics": []
		}`))
	}))
	defer srv.Close()

	got, ok := duckduckgoFirstResultURL(context.Background(), srv.Client(), srv.URL, "test query")
	if !ok {
		t.Fatal("expected success")
	}
	if got != "https://example.com/top" {
		t.Errorf("url = %q", got)
	}
}

func TestDuckDuckGoFirstResultURLEmptyQuery(t *testing.T) {
	if _, ok := duckduckgoFirstResultURL(context.Background(), http.DefaultClient, "http://unused", "   "); ok {
		t.Error("expected failure for blank query")
	}
}

func TestDuckDuckGoFirstResultURLNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Abstract":"","AbstractURL":"","RelatedTopics":[]}`))
	}))
	defer srv.Close()

	if _, ok := duckduckgoFirstResultURL(context.Background(), srv.Client(), srv.URL, "anything"); ok {
		t.Error("expected failure when no results parsed")
	}
}
