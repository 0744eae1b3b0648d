// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// websearch.go implements the web_search tool: query rewriting, the
// DuckDuckGo request, fallback selection, page excerpts, and the structured
// JSON output the model reads.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// QUERY CLASSIFICATION
// =============================================================================

// timeSensitivePatterns mark queries that imply recency. Matching is a
// case-insensitive substring check.
var timeSensitivePatterns = []string{
	"today",
	"yesterday",
	"few days ago",
	"a few days ago",
	"latest",
	"current",
	"this week",
	"this month",
	"this year",
	"recent",
	"just",
	"super bowl",
	"superbowl",
	"winner",
	"champion",
	"score",
	"result",
}

// isTimeSensitiveQuery reports whether the query implies recency.
func isTimeSensitiveQuery(q string) bool {
	lower := strings.ToLower(q)
	for _, p := range timeSensitivePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// rewriteWebSearchQuery appends the year to time-sensitive queries so stale
// top results get pushed down. Returns the rewritten query and the recency
// window in days.
func rewriteWebSearchQuery(query string, recencyDaysDefault, year int) (string, int) {
	q := strings.TrimSpace(query)
	if q == "" || !isTimeSensitiveQuery(q) {
		return q, recencyDaysDefault
	}
	return fmt.Sprintf("%s %d", q, year), recencyDaysDefault
}

// officeholderPatterns mark queries asking who currently holds an office.
var officeholderPatterns = []string{
	"current president of",
	"who is the president of",
	"president of the",
	"current prime minister of",
	"who is the prime minister of",
	"prime minister of the",
	"current leader of",
	"who is the leader of",
	"leader of the",
}

// isOfficeholderQuery reports whether the query asks for a current
// officeholder (president, prime minister, leader of X).
func isOfficeholderQuery(q string) bool {
	lower := strings.ToLower(q)
	for _, p := range officeholderPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// normalizeOfficeholderQuery extracts the country search term, the Wikidata
// property (P35 head of state, P6 head of government), and the office label
// from an officeholder query. Common country abbreviations are expanded.
func normalizeOfficeholderQuery(q string) (country, property, officeLabel string, ok bool) {
	lower := strings.TrimSpace(strings.ToLower(q))
	var rest string
	switch {
	case strings.Contains(lower, "prime minister"):
		property, officeLabel = "P6", "prime minister"
		rest = lower
		rest = strings.ReplaceAll(rest, "current prime minister of", "")
		rest = strings.ReplaceAll(rest, "who is the prime minister of", "")
		rest = strings.ReplaceAll(rest, "prime minister of the", "")
	case strings.Contains(lower, "president"):
		property, officeLabel = "P35", "president"
		rest = lower
		rest = strings.ReplaceAll(rest, "current president of", "")
		rest = strings.ReplaceAll(rest, "who is the president of", "")
		rest = strings.ReplaceAll(rest, "president of the", "")
	case strings.Contains(lower, "leader"):
		property, officeLabel = "P35", "leader"
		rest = lower
		rest = strings.ReplaceAll(rest, "current leader of", "")
		rest = strings.ReplaceAll(rest, "who is the leader of", "")
		rest = strings.ReplaceAll(rest, "leader of the", "")
	default:
		return "", "", "", false
	}
	country = strings.TrimSpace(rest)
	country = strings.Trim(country, ".?,")
	country = strings.TrimSpace(country)
	country = strings.TrimSpace(strings.TrimPrefix(country, "the "))
	if country == "" {
		return "", "", "", false
	}
	switch country {
	case "usa", "us", "u.s.", "u.s.a.", "united states", "america":
		country = "United States"
	case "uk", "u.k.", "united kingdom", "britain", "england":
		country = "United Kingdom"
	case "france":
		country = "France"
	case "germany":
		country = "Germany"
	case "canada":
		country = "Canada"
	case "australia":
		country = "Australia"
	case "india":
		country = "India"
	case "japan":
		country = "Japan"
	}
	return country, property, officeLabel, true
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// WebSearchResultItem is one search result in the web_search output.
type WebSearchResultItem struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	URL         string `json:"url"`
	PageExcerpt string `json:"page_excerpt,omitempty"`
}

// WebSearchStep is one entry in the machine-readable steps list embedded in
// the web_search output.
type WebSearchStep struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// WebSearchOutput is the structured web_search payload serialized into the
// result content. ResultCount must equal len(Results).
type WebSearchOutput struct {
	OK             bool                  `json:"ok"`
	Provider       string                `json:"provider"`
	Query          string                `json:"query"`
	QueryOriginal  string                `json:"query_original"`
	QueryRewritten string                `json:"query_rewritten"`
	RecencyDays    int                   `json:"recency_days"`
	Status         int                   `json:"status"`
	Results        []WebSearchResultItem `json:"results"`
	ResultCount    int                   `json:"result_count"`
	Error          string                `json:"error,omitempty"`
	Steps          []WebSearchStep       `json:"steps"`

	// SuggestOpenBrowserSearch set true tells the assistant to call
	// open_browser_search and ask the user to paste the top result rather
	// than claim anything was scraped.
	SuggestOpenBrowserSearch *bool `json:"suggest_open_browser_search,omitempty"`
}

func marshalWebSearchOutput(out *WebSearchOutput) string {
	data, err := json.Marshal(out)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// =============================================================================
// WEB SEARCH
// =============================================================================

// runWebSearch executes the web_search tool. Transport, HTTP, and parse
// failures come back as ok:false envelopes with the partial step trail;
// exhausted fallbacks still produce an ok:true envelope with zero results.
func (e *Executor) runWebSearch(ctx context.Context, call *WebSearchCall) (ToolResult, error) {
	if call.Query == nil {
		return ToolResult{}, errInvalidArg("query required")
	}
	query := *call.Query
	maxResults := 5
	if call.MaxResults != nil {
		maxResults = *call.MaxResults
	}
	if maxResults > 10 {
		maxResults = 10
	}
	if maxResults < 1 {
		maxResults = 1
	}
	queryRewritten, recencyDays := rewriteWebSearchQuery(query, 30, e.year)

	var diagSteps []DiagnosticStep
	var outputSteps []WebSearchStep
	var suggestOpenBrowserSearch *bool

	diagSteps = append(diagSteps, infoStep("Step 1: validate config (provider: DuckDuckGo, no API key required)", map[string]interface{}{
		"query_original":  query,
		"query_rewritten": queryRewritten,
		"recency_days":    recencyDays,
		"max_results":     maxResults,
		"provider":        "duckduckgo",
	}))
	outputSteps = append(outputSteps, WebSearchStep{Name: "validate", OK: true, Detail: "config ok"})

	diagSteps = append(diagSteps, infoStep("Step 2: network check / request start", nil))

	client := &http.Client{Timeout: 10 * time.Second}
	reqURL := e.duckDuckGoURL + "/?q=" + url.QueryEscape(strings.TrimSpace(queryRewritten)) + "&format=json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err == nil {
		req.Header.Set("User-Agent", firefoxUserAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	var res *http.Response
	if err == nil {
		res, err = client.Do(req)
	}
	if err != nil {
		outputSteps = append(outputSteps, WebSearchStep{Name: "request", OK: false, Detail: err.Error()})
		outputSteps = append(outputSteps, WebSearchStep{Name: "done", OK: false, Detail: "request failed"})
		diagSteps = append(diagSteps, errorStep("Step 2 failed: "+err.Error(), nil))
		diagSteps = append(diagSteps, infoStep("Step 5: done (with error)", nil))
		out := WebSearchOutput{
			Provider:       "duckduckgo",
			Query:          queryRewritten,
			QueryOriginal:  query,
			QueryRewritten: queryRewritten,
			RecencyDays:    recencyDays,
			Results:        []WebSearchResultItem{},
			Error:          "web_search request failed: " + err.Error(),
			Steps:          outputSteps,
		}
		return ToolResult{
			Content:         marshalWebSearchOutput(&out),
			Error:           out.Error,
			DiagnosticSteps: diagSteps,
		}, nil
	}
	defer res.Body.Close()

	status := res.StatusCode
	diagSteps = append(diagSteps, infoStep(fmt.Sprintf("Step 3: response status %d", status), map[string]interface{}{
		"status": status,
	}))
	outputSteps = append(outputSteps, WebSearchStep{Name: "request", OK: true, Detail: fmt.Sprintf("HTTP %d", status)})

	if status < 200 || status >= 300 {
		outputSteps = append(outputSteps, WebSearchStep{Name: "parse", OK: false, Detail: "HTTP error"})
		outputSteps = append(outputSteps, WebSearchStep{Name: "done", OK: false, Detail: "status not success"})
		diagSteps = append(diagSteps, errorStep("web_search disabled or request failed", map[string]interface{}{"status": status}))
		diagSteps = append(diagSteps, infoStep("Step 5: done (with error)", nil))
		out := WebSearchOutput{
			Provider:       "duckduckgo",
			Query:          queryRewritten,
			QueryOriginal:  query,
			QueryRewritten: queryRewritten,
			RecencyDays:    recencyDays,
			Status:         status,
			Results:        []WebSearchResultItem{},
			Error:          fmt.Sprintf("HTTP %d", status),
			Steps:          outputSteps,
		}
		return ToolResult{
			Content:         marshalWebSearchOutput(&out),
			Error:           out.Error,
			DiagnosticSteps: diagSteps,
		}, nil
	}

	var body duckDuckGoResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		outputSteps = append(outputSteps, WebSearchStep{Name: "parse", OK: false, Detail: err.Error()})
		outputSteps = append(outputSteps, WebSearchStep{Name: "done", OK: false, Detail: "parse failed"})
		diagSteps = append(diagSteps, errorStep("Step 4: parse failed: "+err.Error(), nil))
		diagSteps = append(diagSteps, infoStep("Step 5: done (with error)", nil))
		out := WebSearchOutput{
			Provider:       "duckduckgo",
			Query:          queryRewritten,
			QueryOriginal:  query,
			QueryRewritten: queryRewritten,
			RecencyDays:    recencyDays,
			Status:         status,
			Results:        []WebSearchResultItem{},
			Error:          err.Error(),
			Steps:          outputSteps,
		}
		return ToolResult{
			Content:         marshalWebSearchOutput(&out),
			Error:           out.Error,
			DiagnosticSteps: diagSteps,
		}, nil
	}

	results := parseDuckDuckGoResults(&body, maxResults)
	if results == nil {
		results = []WebSearchResultItem{}
	}
	provider := "duckduckgo"

	diagSteps = append(diagSteps, infoStep(fmt.Sprintf("Step 4: parse results count %d", len(results)), map[string]interface{}{
		"result_count": len(results),
	}))
	outputSteps = append(outputSteps, WebSearchStep{Name: "parse", OK: true, Detail: fmt.Sprintf("result_count %d", len(results))})

	if len(results) == 0 {
		diagSteps = append(diagSteps, infoStep("Step 4b: fallback selection (DDG returned 0 results)", nil))
		timeSensitive := isTimeSensitiveQuery(query)
		officeholder := isOfficeholderQuery(query)
		if timeSensitive && !officeholder {
			// Wikipedia would return stale pages for "latest"-style queries;
			// better to have the user open a real search.
			yes := true
			suggestOpenBrowserSearch = &yes
			outputSteps = append(outputSteps, WebSearchStep{
				Name:   "fallback_skipped",
				OK:     false,
				Detail: "time-sensitive query: Wikipedia not used; suggest open_browser_search",
			})
		} else if officeholder {
			wdResults := wikidataOfficeholderFallback(ctx, e.wikidataURL, query)
			if len(wdResults) > 0 {
				results = wdResults
				provider = "wikidata_officeholder"
				outputSteps = append(outputSteps, WebSearchStep{
					Name:   "wikidata_officeholder",
					OK:     true,
					Detail: fmt.Sprintf("%d result(s)", len(results)),
				})
			} else if wikiResults := wikipediaFallback(ctx, e.wikipediaURL, query, true); len(wikiResults) > 0 {
				results = wikiResults
				provider = "wikipedia_fallback"
				outputSteps = append(outputSteps, WebSearchStep{
					Name:   "wikipedia_fallback",
					OK:     true,
					Detail: fmt.Sprintf("%d result(s), office summary", len(results)),
				})
			} else {
				outputSteps = append(outputSteps, WebSearchStep{
					Name:   "wikidata_officeholder",
					OK:     false,
					Detail: "no results",
				})
			}
		}
		if len(results) == 0 && suggestOpenBrowserSearch == nil {
			if wikiResults := wikipediaFallback(ctx, e.wikipediaURL, query, false); len(wikiResults) > 0 {
				results = wikiResults
				provider = "wikipedia_fallback"
				outputSteps = append(outputSteps, WebSearchStep{
					Name:   "wikipedia_fallback",
					OK:     true,
					Detail: fmt.Sprintf("%d result(s)", len(results)),
				})
			} else if !officeholder {
				outputSteps = append(outputSteps, WebSearchStep{
					Name:   "wikipedia_fallback",
					OK:     false,
					Detail: "no results",
				})
			}
		}
	}

	includeExcerpts := true
	if call.IncludePageExcerpts != nil {
		includeExcerpts = *call.IncludePageExcerpts
	}
	if includeExcerpts && len(results) > 0 {
		limit := pageExcerptMaxResults
		if limit > len(results) {
			limit = len(results)
		}
		for i := 0; i < limit; i++ {
			if excerpt, ok := fetchPageExcerpt(ctx, client, results[i].URL); ok {
				results[i].PageExcerpt = excerpt
			}
		}
		withExcerpts := 0
		for _, r := range results {
			if r.PageExcerpt != "" {
				withExcerpts++
			}
		}
		diagSteps = append(diagSteps, infoStep(fmt.Sprintf("Step 4c: page excerpts fetched for %d result(s)", withExcerpts), map[string]interface{}{
			"include_page_excerpts": true,
			"with_excerpts":         withExcerpts,
		}))
	}

	resultCount := len(results)
	diagSteps = append(diagSteps, infoStep("Step 5: done", map[string]interface{}{
		"result_count":                resultCount,
		"provider":                    provider,
		"suggest_open_browser_search": suggestOpenBrowserSearch,
	}))
	outputSteps = append(outputSteps, WebSearchStep{Name: "done", OK: true, Detail: fmt.Sprintf("%d result(s)", resultCount)})

	out := WebSearchOutput{
		OK:                       true,
		Provider:                 provider,
		Query:                    queryRewritten,
		QueryOriginal:            query,
		QueryRewritten:           queryRewritten,
		RecencyDays:              recencyDays,
		Status:                   status,
		Results:                  results,
		ResultCount:              resultCount,
		Steps:                    outputSteps,
		SuggestOpenBrowserSearch: suggestOpenBrowserSearch,
	}
	content, err := json.Marshal(&out)
	if err != nil {
		return ToolResult{}, errInvalidArg("serialize: " + err.Error())
	}
	return ToolResult{
		OK:              true,
		Content:         string(content),
		DiagnosticSteps: diagSteps,
	}, nil
}
