// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the sandboxed tool system for rigtools.
// wikidata.go resolves current-officeholder queries against the Wikidata
// API when the regular search provider returns nothing. Wikidata claims are
// kept current by editors, so "who is the president of X" stays answerable
// without a paid search API.
package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultWikidataURL is the Wikidata action API endpoint.
const defaultWikidataURL = "https://www.wikidata.org/w/api.php"

const wikidataUserAgent = "rigtools/1.0 (Wikidata officeholder)"

// =============================================================================
// RESPONSE SHAPES
// =============================================================================

type wikidataSearchResponse struct {
	Search []struct {
		ID string `json:"id"`
	} `json:"search"`
}

type wikidataEntitiesResponse struct {
	Entities map[string]wikidataEntity `json:"entities"`
}

type wikidataEntity struct {
	Claims map[string][]struct {
		Mainsnak struct {
			Datavalue struct {
				Value struct {
					ID string `json:"id"`
				} `json:"value"`
			} `json:"datavalue"`
		} `json:"mainsnak"`
	} `json:"claims"`
	Labels map[string]struct {
		Value string `json:"value"`
	} `json:"labels"`
	Sitelinks map[string]struct {
		Title string `json:"title"`
	} `json:"sitelinks"`
}

// =============================================================================
// OFFICEHOLDER LOOKUP
// =============================================================================

// wikidataOfficeholderFallback answers officeholder queries in three API
// calls: search the country entity, read its P35/P6 claim for the person,
// then fetch the person's label and Wikipedia sitelink. Any failure along
// the chain returns no results; the caller treats that as a miss.
func wikidataOfficeholderFallback(ctx context.Context, baseURL, query string) []WebSearchResultItem {
	countrySearch, property, officeLabel, ok := normalizeOfficeholderQuery(query)
	if !ok {
		return nil
	}
	if baseURL == "" {
		baseURL = defaultWikidataURL
	}
	client := &http.Client{Timeout: 10 * time.Second}

	countryID, ok := wikidataSearchEntityID(ctx, client, baseURL, countrySearch)
	if !ok {
		return nil
	}
	personID, ok := wikidataClaimEntityID(ctx, client, baseURL, countryID, property)
	if !ok {
		return nil
	}
	name, wikiURL, ok := wikidataPersonSummary(ctx, client, baseURL, personID)
	if !ok {
		return nil
	}

	resultURL := "https://www.wikidata.org/wiki/" + personID
	if wikiURL != "" {
		resultURL = wikiURL
	}
	snippet := "Current " + officeLabel + " of " + countrySearch + " is " + name + ". Source: " + resultURL
	return []WebSearchResultItem{{
		Title:   name,
		Snippet: snippet,
		URL:     resultURL,
	}}
}

// wikidataSearchEntityID finds the entity ID for a search term.
func wikidataSearchEntityID(ctx context.Context, client *http.Client, baseURL, search string) (string, bool) {
	params := url.Values{
		"action":   {"wbsearchentities"},
		"format":   {"json"},
		"language": {"en"},
		"type":     {"item"},
		"search":   {search},
		"limit":    {"1"},
	}
	var body wikidataSearchResponse
	if !wikidataGet(ctx, client, baseURL, params, &body) {
		return "", false
	}
	if len(body.Search) == 0 || body.Search[0].ID == "" {
		return "", false
	}
	return body.Search[0].ID, true
}

// wikidataClaimEntityID reads the first value of a claim (P35 head of
// state, P6 head of government) on an entity.
func wikidataClaimEntityID(ctx context.Context, client *http.Client, baseURL, entityID, property string) (string, bool) {
	params := url.Values{
		"action":    {"wbgetentities"},
		"format":    {"json"},
		"ids":       {entityID},
		"props":     {"claims"},
		"languages": {"en"},
	}
	var body wikidataEntitiesResponse
	if !wikidataGet(ctx, client, baseURL, params, &body) {
		return "", false
	}
	claims := body.Entities[entityID].Claims[property]
	if len(claims) == 0 {
		return "", false
	}
	id := claims[0].Mainsnak.Datavalue.Value.ID
	if id == "" {
		return "", false
	}
	return id, true
}

// wikidataPersonSummary returns the English label (or "Unknown") and the
// English Wikipedia URL (or "") for a person entity. The bool is false only
// when the request itself fails.
func wikidataPersonSummary(ctx context.Context, client *http.Client, baseURL, personID string) (string, string, bool) {
	params := url.Values{
		"action":    {"wbgetentities"},
		"format":    {"json"},
		"ids":       {personID},
		"props":     {"labels|sitelinks"},
		"languages": {"en"},
	}
	var body wikidataEntitiesResponse
	if !wikidataGet(ctx, client, baseURL, params, &body) {
		return "", "", false
	}
	entity := body.Entities[personID]
	name := entity.Labels["en"].Value
	if name == "" {
		name = "Unknown"
	}
	wikiURL := ""
	if title := entity.Sitelinks["enwiki"].Title; title != "" {
		wikiURL = "https://en.wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_")
	}
	return name, wikiURL, true
}

// wikidataGet issues one API request and decodes the JSON response into out.
func wikidataGet(ctx context.Context, client *http.Client, baseURL string, params url.Values, out interface{}) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", wikidataUserAgent)
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
