// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// browser.go implements the open_browser_search tool: it opens a URL or a
// search-engine results page in the system browser and pulls page text back
// into the conversation where it can.
package tools

import (
	"context"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// =============================================================================
// BROWSER OPEN
// =============================================================================

// openURLInBrowser opens url in the default system browser and returns the
// opened URL. The browser process is detached; only spawn failures error.
func openURLInBrowser(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", errInvalidArg("url cannot be empty")
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/C", "start", "", trimmed)
	case "darwin":
		cmd = exec.Command("open", trimmed)
	default:
		cmd = exec.Command("xdg-open", trimmed)
	}
	if err := cmd.Start(); err != nil {
		return "", errCommandFailed("failed to open browser: " + err.Error())
	}
	go func() { _ = cmd.Wait() }()
	return trimmed, nil
}

// =============================================================================
// BROWSER SEARCH
// =============================================================================

// openBrowserSearch opens either an explicit URL or a search results page.
// For explicit URLs the same page is fetched back as context; for DuckDuckGo
// searches the first result page is fetched. Bing and Google searches only
// open the browser.
func openBrowserSearch(ctx context.Context, call *OpenBrowserSearchCall, ddgBaseURL string) (string, error) {
	client := &http.Client{Timeout: pageExcerptFetchTimeout + 4*time.Second}

	var openedMsg string
	var urlToFetch string
	if call.URL != nil {
		target := strings.TrimSpace(*call.URL)
		if target == "" {
			return "", errInvalidArg("open_browser_search requires non-empty url or query")
		}
		opened, err := openURLInBrowser(target)
		if err != nil {
			return "", err
		}
		openedMsg = "Opened browser: " + opened
		urlToFetch = target
	} else {
		query := strings.TrimSpace(call.Query)
		if query == "" {
			return "", errInvalidArg("open_browser_search requires url or query")
		}
		engine := strings.ToLower(call.Engine)
		if engine == "" {
			engine = "duckduckgo"
		}
		encoded := url.QueryEscape(query)
		var searchURL string
		switch engine {
		case "bing":
			searchURL = "https://www.bing.com/search?q=" + encoded
		case "google":
			searchURL = "https://www.google.com/search?q=" + encoded
		default:
			searchURL = "https://duckduckgo.com/?q=" + encoded
		}
		if _, err := openURLInBrowser(searchURL); err != nil {
			return "", err
		}
		openedMsg = "Opened browser: " + searchURL
		if engine == "duckduckgo" {
			if first, ok := duckduckgoFirstResultURL(ctx, client, ddgBaseURL, query); ok {
				urlToFetch = first
			}
		}
	}

	out := openedMsg
	if urlToFetch != "" {
		if content, ok := fetchPageText(ctx, client, urlToFetch, openBrowserFetchMaxChars); ok && strings.TrimSpace(content) != "" {
			out += "\n\n" + pageContentPreamble + content
		}
	}
	return out, nil
}
