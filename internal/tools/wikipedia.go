// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// wikipedia.go implements the Wikipedia fallback: search for a page, then
// return its summary as a single search result.
package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultWikipediaURL is the English Wikipedia host serving both the
// search API and the page summary API.
const defaultWikipediaURL = "https://en.wikipedia.org"

const wikipediaUserAgent = "rigtools/1.0 (Wikipedia fallback)"

type wikipediaSearchResponse struct {
	Pages []struct {
		Title string `json:"title"`
	} `json:"pages"`
}

type wikipediaSummaryResponse struct {
	Extract string `json:"extract"`
}

// =============================================================================
// WIKIPEDIA FALLBACK
// =============================================================================

// wikipediaFallback searches Wikipedia and returns the top page's summary
// as one result. With preferOfficeNotList set, officeholder queries are
// rewritten to the office page ("President of X") and a top hit titled
// "List of ..." is rejected outright, because list pages summarize history
// rather than naming the current holder.
func wikipediaFallback(ctx context.Context, baseURL, query string, preferOfficeNotList bool) []WebSearchResultItem {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = defaultWikipediaURL
	}
	client := &http.Client{Timeout: 8 * time.Second}

	searchTerm := q
	if preferOfficeNotList && isOfficeholderQuery(q) {
		if country, _, officeLabel, ok := normalizeOfficeholderQuery(q); ok {
			switch officeLabel {
			case "president":
				searchTerm = "President of " + country
			case "prime minister":
				searchTerm = "Prime Minister of " + country
			default:
				searchTerm = officeLabel + " of " + country
			}
		}
	}

	searchURL := baseURL + "/w/rest.php/v1/search/page?q=" + url.QueryEscape(searchTerm) + "&limit=10"
	var search wikipediaSearchResponse
	if !wikipediaGet(ctx, client, searchURL, &search) {
		return nil
	}
	var pageTitle string
	if preferOfficeNotList {
		for _, page := range search.Pages {
			if page.Title == "" {
				continue
			}
			if strings.HasPrefix(strings.ToLower(page.Title), "list of ") {
				return nil
			}
			pageTitle = page.Title
			break
		}
	} else if len(search.Pages) > 0 {
		pageTitle = search.Pages[0].Title
	}
	if pageTitle == "" {
		return nil
	}

	slug := strings.ReplaceAll(pageTitle, " ", "_")
	var summary wikipediaSummaryResponse
	if !wikipediaGet(ctx, client, baseURL+"/api/rest_v1/page/summary/"+slug, &summary) {
		return nil
	}
	return []WebSearchResultItem{{
		Title:   pageTitle,
		Snippet: summary.Extract,
		URL:     "https://en.wikipedia.org/wiki/" + slug,
	}}
}

// wikipediaGet issues one request and decodes the JSON response into out.
func wikipediaGet(ctx context.Context, client *http.Client, rawURL string, out interface{}) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", wikipediaUserAgent)
	res, err := client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return false
	}
	return json.NewDecoder(res.Body).Decode(out) == nil
}
