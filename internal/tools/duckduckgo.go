// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// duckduckgo.go parses DuckDuckGo Instant Answer API responses into search
// results. The API is free and needs no key; coverage is shallow, which is
// why websearch.go layers fallbacks on top.
package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// defaultDuckDuckGoURL is the Instant Answer API endpoint.
const defaultDuckDuckGoURL = "https://api.duckduckgo.com"

// maxResultTitleRunes caps result titles; longer titles are cut to 117
// runes plus an ellipsis.
const maxResultTitleRunes = 120

// =============================================================================
// RESPONSE SHAPE
// =============================================================================

// duckDuckGoResponse is the subset of the Instant Answer payload we read.
type duckDuckGoResponse struct {
	Abstract      string     `json:"Abstract"`
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// ddgTopic is either a direct topic (Text + FirstURL) or a named group
// carrying nested Topics.
type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

// =============================================================================
// PARSING
// =============================================================================

// parseDuckDuckGoResults flattens an Instant Answer response into at most
// maxResults items: the abstract first (when present), then related topics
// with nested topic groups flattened one level.
func parseDuckDuckGoResults(body *duckDuckGoResponse, maxResults int) []WebSearchResultItem {
	var results []WebSearchResultItem
	if strings.TrimSpace(body.Abstract) != "" && strings.TrimSpace(body.AbstractURL) != "" {
		results = append(results, WebSearchResultItem{
			Title:   truncateResultTitle(strings.TrimSpace(firstLine(body.Abstract))),
			Snippet: strings.TrimSpace(body.Abstract),
			URL:     strings.TrimSpace(body.AbstractURL),
		})
	}
	for _, topic := range body.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if topic.Topics != nil {
			for _, sub := range topic.Topics {
				if len(results) >= maxResults {
					break
				}
				if item, ok := resultFromTopic(sub); ok {
					results = append(results, item)
				}
			}
		} else if item, ok := resultFromTopic(topic); ok {
			results = append(results, item)
		}
	}
	return results
}

// resultFromTopic converts one direct topic into a result. Topics missing
// text or a URL are skipped.
func resultFromTopic(topic ddgTopic) (WebSearchResultItem, bool) {
	if topic.Text == "" || topic.FirstURL == "" {
		return WebSearchResultItem{}, false
	}
	return WebSearchResultItem{
		Title:   truncateResultTitle(strings.TrimSpace(firstLine(topic.Text))),
		Snippet: topic.Text,
		URL:     topic.FirstURL,
	}, true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncateResultTitle(title string) string {
	runes := []rune(title)
	if len(runes) > maxResultTitleRunes {
		return string(runes[:117]) + "…"
	}
	return title
}

// =============================================================================
// FIRST RESULT LOOKUP
// =============================================================================

// duckduckgoFirstResultURL queries the Instant Answer API and returns the
// URL of the first result, if any. Used by open_browser_search to pull the
// top hit's page content back into the conversation.
func duckduckgoFirstResultURL(ctx context.Context, client *http.Client, baseURL, query string) (string, bool) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", false
	}
	if baseURL == "" {
		baseURL = defaultDuckDuckGoURL
	}
	reqURL := baseURL + "/?q=" + url.QueryEscape(trimmed) + "&format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", firefoxUserAgent)
	res, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", false
	}
	var body duckDuckGoResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return "", false
	}
	results := parseDuckDuckGoResults(&body, 1)
	if len(results) == 0 {
		return "", false
	}
	return results[0].URL, true
}
