// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// web.go implements the fetch_url tool and the shared page-fetch helpers
// used for search result excerpts and browser-search page capture.
package tools

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// FETCH LIMITS
// =============================================================================

const (
	// pageExcerptMaxChars caps the excerpt attached to each search result
	pageExcerptMaxChars = 2200

	// pageExcerptFetchTimeout bounds every single page fetch
	pageExcerptFetchTimeout = 8 * time.Second

	// pageExcerptMaxResults caps how many search results get excerpts
	pageExcerptMaxResults = 4

	// openBrowserFetchMaxChars caps page content captured by open_browser_search
	openBrowserFetchMaxChars = 12000

	// fetchBodyLimitBytes caps the raw response body size (512 KiB)
	fetchBodyLimitBytes = 512 * 1024

	// fetchURLDefaultMaxChars is the fetch_url default output cap
	fetchURLDefaultMaxChars = 12000

	// fetchURLMaxChars and fetchURLMinChars bound the max_chars argument
	fetchURLMaxChars = 20000
	fetchURLMinChars = 500
)

// firefoxUserAgent is sent on outbound page and search requests. Some sites
// return empty or blocked pages to unknown clients.
const firefoxUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:91.0) Gecko/20100101 Firefox/91.0"

// pageContentPreamble prefixes fetched page text so the model treats it as
// tool-provided context rather than something the user pasted.
const pageContentPreamble = "Page content (use this as context to summarize or answer; user did not paste this):\n\n"

// =============================================================================
// FETCH URL TOOL
// =============================================================================

// fetchURLContent implements the fetch_url tool body. maxChars is clamped to
// [fetchURLMinChars, fetchURLMaxChars].
func fetchURLContent(ctx context.Context, rawURL string, maxChars int) (string, error) {
	if maxChars > fetchURLMaxChars {
		maxChars = fetchURLMaxChars
	}
	if maxChars < fetchURLMinChars {
		maxChars = fetchURLMinChars
	}
	client := &http.Client{Timeout: pageExcerptFetchTimeout}
	text, ok := fetchPageText(ctx, client, rawURL, maxChars)
	if !ok {
		return "", errNetwork("fetch failed or returned no text")
	}
	return text, nil
}

// fetchPageExcerpt fetches a short plain-text excerpt of a search result.
func fetchPageExcerpt(ctx context.Context, client *http.Client, rawURL string) (string, bool) {
	return fetchPageText(ctx, client, rawURL, pageExcerptMaxChars)
}

// fetchPageText fetches rawURL and returns its visible text, truncated to
// maxChars runes. Returns false for non-http(s) URLs, request failures,
// non-2xx statuses, oversized bodies, and pages with no text.
func fetchPageText(ctx context.Context, client *http.Client, rawURL string, maxChars int) (string, bool) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", false
	}
	reqCtx, cancel := context.WithTimeout(ctx, pageExcerptFetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
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
	body, err := io.ReadAll(io.LimitReader(res.Body, fetchBodyLimitBytes+1))
	if err != nil {
		return "", false
	}
	if len(body) > fetchBodyLimitBytes {
		return "", false
	}
	stripped := stripHTMLToText(string(body))
	if stripped == "" {
		return "", false
	}
	return truncateRunes(stripped, maxChars), true
}

// =============================================================================
// TEXT EXTRACTION
// =============================================================================

// stripHTMLToText strips tags from HTML and collapses whitespace, leaving a
// single-line plain-text rendering. Good enough for excerpts; not a parser.
func stripHTMLToText(html string) string {
	out := make([]byte, 0, len(html))
	n := len(html)
	i := 0
	for i < n {
		if html[i] == '<' {
			if len(out) > 0 && out[len(out)-1] != ' ' {
				out = append(out, ' ')
			}
			i++
			for i < n && html[i] != '>' {
				i++
			}
			if i < n {
				i++
			}
			continue
		}
		c := html[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\f' || c == '\r' {
			if len(out) > 0 && out[len(out)-1] != ' ' {
				out = append(out, ' ')
			}
		} else {
			out = append(out, c)
		}
		i++
	}
	return strings.Join(strings.Fields(string(out)), " ")
}

// truncateRunes caps s at maxChars runes, marking truncation with an
// ellipsis.
func truncateRunes(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return strings.TrimSpace(string(runes[:maxChars])) + "…"
}
