// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local HTTP API for rigtools.
package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/ollama"
	"github.com/jeranaias/rigtools/internal/storage"
	"github.com/jeranaias/rigtools/internal/tools"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newTestServer returns a Server with defaults and a fresh store.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := storage.Open(filepath.Join(t.TempDir(), "rigtools.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(config.Default()).WithStore(st)
}

// healthyOllama returns a client backed by a stub that answers /api/tags.
func healthyOllama(t *testing.T) *ollama.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(srv.Close)
	return ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: srv.URL})
}

// deadOllama returns a client pointing at a closed listener.
func deadOllama() *ollama.Client {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()
	return ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: url})
}

// =============================================================================
// SERVER STATS TESTS
// =============================================================================

func TestNewServer_Defaults(t *testing.T) {
	s := New(nil)

	if got := s.Addr(); got != "127.0.0.1:8787" {
		t.Errorf("Addr() = %q, want 127.0.0.1:8787", got)
	}
	if s.stats == nil {
		t.Error("stats should be initialized")
	}
	if s.limiter == nil {
		t.Error("limiter should be initialized")
	}
}

func TestServerStats_Record(t *testing.T) {
	stats := NewServerStats()

	stats.RecordRequest()
	stats.RecordRequest()
	stats.RecordExecution(true)
	stats.RecordExecution(false)
	stats.RecordRateLimited()

	got := stats.GetStats()
	if got.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", got.TotalRequests)
	}
	if got.ToolExecutions != 2 {
		t.Errorf("ToolExecutions = %d, want 2", got.ToolExecutions)
	}
	if got.ToolFailures != 1 {
		t.Errorf("ToolFailures = %d, want 1", got.ToolFailures)
	}
	if got.RateLimited != 1 {
		t.Errorf("RateLimited = %d, want 1", got.RateLimited)
	}
	if got.StartTime.IsZero() {
		t.Error("StartTime should be set")
	}
}

func TestServerStats_Uptime(t *testing.T) {
	stats := NewServerStats()
	time.Sleep(10 * time.Millisecond)

	if stats.Uptime() <= 0 {
		t.Error("Uptime() should be positive")
	}
}

// =============================================================================
// HEALTH TESTS
// =============================================================================

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t).WithOllamaClient(healthyOllama(t))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if health.Status != "ok" {
		t.Errorf("Status = %q, want ok", health.Status)
	}
	if health.Version != Version {
		t.Errorf("Version = %q, want %q", health.Version, Version)
	}
	if health.OllamaStatus != "ok" {
		t.Errorf("OllamaStatus = %q, want ok", health.OllamaStatus)
	}
	if health.StorageStatus != "ok" {
		t.Errorf("StorageStatus = %q, want ok", health.StorageStatus)
	}
	if health.ToolsEnabled != 0 {
		t.Errorf("ToolsEnabled = %d, want 0", health.ToolsEnabled)
	}
}

func TestHandleHealth_OllamaDown(t *testing.T) {
	s := newTestServer(t).WithOllamaClient(deadOllama())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	var health HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&health); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if health.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", health.Status)
	}
	if health.OllamaStatus != "unavailable" {
		t.Errorf("OllamaStatus = %q, want unavailable", health.OllamaStatus)
	}
}

// =============================================================================
// TOOLS LISTING TESTS
// =============================================================================

// toolsBody mirrors ToolsResponse with risk decoded as its wire string.
type toolsBody struct {
	Tools []struct {
		Name    string `json:"name"`
		Risk    string `json:"risk"`
		Enabled bool   `json:"enabled"`
	} `json:"tools"`
	Count int `json:"count"`
}

func TestHandleTools(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	rec := httptest.NewRecorder()
	s.handleTools(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body toolsBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if want := len(tools.AllDefinitions()); body.Count != want {
		t.Errorf("Count = %d, want %d", body.Count, want)
	}
	for _, tool := range body.Tools {
		if tool.Enabled {
			t.Errorf("tool %s enabled with default settings", tool.Name)
		}
		if tool.Risk == "" {
			t.Errorf("tool %s has empty risk", tool.Name)
		}
	}
}

func TestHandleTools_EnabledFilter(t *testing.T) {
	s := newTestServer(t)
	if err := s.store.SaveToolSettings(storage.ToolSettings{WebSearchEnabled: true}); err != nil {
		t.Fatalf("SaveToolSettings() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tools?enabled=true", nil)
	rec := httptest.NewRecorder()
	s.handleTools(rec, req)

	var body toolsBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body.Count != 3 {
		t.Fatalf("Count = %d, want 3", body.Count)
	}
	want := map[string]bool{"web_search": true, "fetch_url": true, "open_browser_search": true}
	for _, tool := range body.Tools {
		if !want[tool.Name] {
			t.Errorf("unexpected enabled tool %s", tool.Name)
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tools?enabled=false", nil)
	rec = httptest.NewRecorder()
	s.handleTools(rec, req)

	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if wantCount := len(tools.AllDefinitions()) - 3; body.Count != wantCount {
		t.Errorf("Count = %d, want %d", body.Count, wantCount)
	}
}

func TestHandleTools_BadFilter(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tools?enabled=banana", nil)
	rec := httptest.NewRecorder()
	s.handleTools(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// =============================================================================
// EXECUTE TESTS
// =============================================================================

func executeReq(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/api/tools/execute", strings.NewReader(body))
}

func TestHandleExecute_UnknownTool(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleExecute(rec, executeReq(`{"tool":"nosuch","args":{}}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var res tools.ToolResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if res.OK {
		t.Error("OK = true, want false")
	}
	if res.Error != "Tool not found: nosuch" {
		t.Errorf("Error = %q, want %q", res.Error, "Tool not found: nosuch")
	}
}

func TestHandleExecute_RootNotConfigured(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleExecute(rec, executeReq(`{"tool":"read_file","args":{"path":"x.txt"}}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var res tools.ToolResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if res.OK {
		t.Error("OK = true, want false")
	}
	if res.Error != "Root not configured" {
		t.Errorf("Error = %q, want %q", res.Error, "Root not configured")
	}
}

func TestHandleExecute_ReadFile(t *testing.T) {
	s := newTestServer(t)

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "hello.txt"), []byte("hi from the api"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	err := s.store.SaveToolSettings(storage.ToolSettings{
		FilesystemEnabled: true,
		FilesystemRoot:    root,
	})
	if err != nil {
		t.Fatalf("SaveToolSettings() error = %v", err)
	}

	rec := httptest.NewRecorder()
	s.handleExecute(rec, executeReq(`{"tool":"read_file","args":{"path":"hello.txt"}}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var res tools.ToolResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if !res.OK {
		t.Fatalf("OK = false, error = %q", res.Error)
	}
	if res.Content != "hi from the api" {
		t.Errorf("Content = %q, want %q", res.Content, "hi from the api")
	}
	if got := s.stats.GetStats().ToolExecutions; got != 1 {
		t.Errorf("ToolExecutions = %d, want 1", got)
	}
}

func TestHandleExecute_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleExecute(rec, executeReq(`{not json`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleExecute_MissingTool(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleExecute(rec, executeReq(`{"args":{}}`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleExecute_BodyTooLarge(t *testing.T) {
	s := newTestServer(t)

	// A valid JSON prefix forces the decoder past the body cap
	body := `{"tool":"read_file","args":{"path":"` + strings.Repeat("a", MaxRequestBodySize) + `"}}`
	rec := httptest.NewRecorder()
	s.handleExecute(rec, executeReq(body))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestHandleSettings_RoundTrip(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	s.handleGetSettings(rec, req)

	var ts storage.ToolSettings
	if err := json.NewDecoder(rec.Body).Decode(&ts); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if ts.FilesystemEnabled || ts.WebSearchEnabled || ts.TerminalEnabled {
		t.Errorf("settings = %+v, want all disabled", ts)
	}

	put := httptest.NewRequest(http.MethodPut, "/api/settings",
		strings.NewReader(`{"filesystem_enabled":true,"filesystem_root":"/tmp/x","web_search_enabled":true}`))
	rec = httptest.NewRecorder()
	s.handlePutSettings(rec, put)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec = httptest.NewRecorder()
	s.handleGetSettings(rec, req)

	if err := json.NewDecoder(rec.Body).Decode(&ts); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if !ts.FilesystemEnabled {
		t.Error("FilesystemEnabled = false after PUT")
	}
	if ts.FilesystemRoot != "/tmp/x" {
		t.Errorf("FilesystemRoot = %q, want /tmp/x", ts.FilesystemRoot)
	}
	if !ts.WebSearchEnabled {
		t.Error("WebSearchEnabled = false after PUT")
	}
	if ts.TerminalEnabled {
		t.Error("TerminalEnabled = true, want false")
	}
}

func TestHandlePutSettings_NoStore(t *testing.T) {
	s := New(config.Default())

	req := httptest.NewRequest(http.MethodPut, "/api/settings",
		strings.NewReader(`{"filesystem_enabled":true}`))
	rec := httptest.NewRecorder()
	s.handlePutSettings(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

// =============================================================================
// STATS ENDPOINT TESTS
// =============================================================================

func TestHandleStats(t *testing.T) {
	s := newTestServer(t)

	conv, err := s.store.CreateConversation("test")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if _, err := s.store.AppendMessage(conv.ID, "user", "hello"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	s.stats.RecordRequest()
	s.stats.RecordExecution(false)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	s.handleStats(rec, req)

	var resp StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.TotalRequests != 1 {
		t.Errorf("TotalRequests = %d, want 1", resp.TotalRequests)
	}
	if resp.ToolExecutions != 1 {
		t.Errorf("ToolExecutions = %d, want 1", resp.ToolExecutions)
	}
	if resp.ToolFailures != 1 {
		t.Errorf("ToolFailures = %d, want 1", resp.ToolFailures)
	}
	if resp.Conversations != 1 {
		t.Errorf("Conversations = %d, want 1", resp.Conversations)
	}
	if resp.Messages != 1 {
		t.Errorf("Messages = %d, want 1", resp.Messages)
	}
}

// =============================================================================
// RATE LIMIT INTEGRATION TEST
// =============================================================================

func TestServer_RateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RatePerSecond = 0.001
	cfg.Server.RateBurst = 1
	s := New(cfg)

	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		StatsMiddleware(s.stats),
		RateLimitMiddleware(s.limiter, s.stats),
	)(s.router)

	srv := httptest.NewServer(handler)
	defer srv.Close()

	var ok, limited int
	for i := 0; i < 5; i++ {
		resp, err := http.Get(srv.URL + "/api/stats")
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusOK:
			ok++
		case http.StatusTooManyRequests:
			limited++
		default:
			t.Fatalf("unexpected status %d", resp.StatusCode)
		}
	}

	if ok != 1 {
		t.Errorf("ok responses = %d, want 1", ok)
	}
	if limited != 4 {
		t.Errorf("limited responses = %d, want 4", limited)
	}
	if got := s.stats.GetStats().RateLimited; got != 4 {
		t.Errorf("RateLimited = %d, want 4", got)
	}
	if got := s.stats.GetStats().TotalRequests; got != 5 {
		t.Errorf("TotalRequests = %d, want 5", got)
	}
}
