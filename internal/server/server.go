// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// server.go wires the endpoints: health, tool listing and execution,
// settings, and usage statistics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/rigtools/internal/config"
	"github.com/jeranaias/rigtools/internal/diag"
	"github.com/jeranaias/rigtools/internal/ollama"
	"github.com/jeranaias/rigtools/internal/storage"
	"github.com/jeranaias/rigtools/internal/tools"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is used when the configuration leaves the port unset.
	DefaultPort = 8787

	// MaxRequestBodySize caps request bodies at 1 MiB.
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is reported by GET /api/health.
	Version = "0.1.0"

	// shutdownGrace bounds connection draining on shutdown.
	shutdownGrace = 5 * time.Second
)

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats tracks request counters. Counters are updated atomically;
// StartTime is set once and read-only after that.
type ServerStats struct {
	TotalRequests  int64     `json:"total_requests"`
	ToolExecutions int64     `json:"tool_executions"`
	ToolFailures   int64     `json:"tool_failures"`
	RateLimited    int64     `json:"rate_limited"`
	StartTime      time.Time `json:"start_time"`
}

// NewServerStats creates a ServerStats with the start time set.
func NewServerStats() *ServerStats {
	return &ServerStats{StartTime: time.Now()}
}

// RecordRequest counts one incoming request.
func (s *ServerStats) RecordRequest() {
	atomic.AddInt64(&s.TotalRequests, 1)
}

// RecordExecution counts one tool execution and its outcome.
func (s *ServerStats) RecordExecution(ok bool) {
	atomic.AddInt64(&s.ToolExecutions, 1)
	if !ok {
		atomic.AddInt64(&s.ToolFailures, 1)
	}
}

// RecordRateLimited counts one request rejected by the rate limiter.
func (s *ServerStats) RecordRateLimited() {
	atomic.AddInt64(&s.RateLimited, 1)
}

// GetStats returns a copy of the current counters.
func (s *ServerStats) GetStats() ServerStats {
	return ServerStats{
		TotalRequests:  atomic.LoadInt64(&s.TotalRequests),
		ToolExecutions: atomic.LoadInt64(&s.ToolExecutions),
		ToolFailures:   atomic.LoadInt64(&s.ToolFailures),
		RateLimited:    atomic.LoadInt64(&s.RateLimited),
		StartTime:      s.StartTime,
	}
}

// Uptime returns the time elapsed since the stats were created.
func (s *ServerStats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the local HTTP API. It binds loopback by default and exposes
// tool execution, settings, and health over JSON.
type Server struct {
	router *http.ServeMux
	server *http.Server

	store  *storage.Store
	exec   *tools.Executor
	ollama *ollama.Client

	stats   *ServerStats
	limiter *ClientLimiter

	// cfg is swapped on hot reload; handlers read it through the mutex
	// and must not hold the pointer across requests
	cfg *config.Config
	mu  sync.RWMutex
}

// New creates a Server from the given configuration. A nil cfg uses the
// built-in defaults. The store, executor, and Ollama client can be
// replaced with the With* setters before Start.
func New(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		router: http.NewServeMux(),
		exec:   tools.NewExecutor(cfg.ExecutorConfig(diag.Nop())),
		ollama: ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.Ollama.URL,
			DefaultModel: cfg.Ollama.DefaultModel,
		}),
		stats:   NewServerStats(),
		limiter: NewClientLimiter(cfg.Server.RatePerSecond, cfg.Server.RateBurst),
		cfg:     cfg,
	}

	s.setupRoutes()
	return s
}

// WithStore sets the store backing the settings overlay and stats counts.
func (s *Server) WithStore(st *storage.Store) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = st
	return s
}

// WithExecutor sets a custom tool executor.
func (s *Server) WithExecutor(e *tools.Executor) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exec = e
	return s
}

// WithOllamaClient sets a custom Ollama client.
func (s *Server) WithOllamaClient(c *ollama.Client) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ollama = c
	return s
}

// Addr returns the host:port the server binds.
func (s *Server) Addr() string {
	cfg := s.configSnapshot()
	host := cfg.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Server.Port
	if port == 0 {
		port = DefaultPort
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/health", s.handleHealth)
	s.router.HandleFunc("GET /api/tools", s.handleTools)
	s.router.HandleFunc("POST /api/tools/execute", s.handleExecute)
	s.router.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.router.HandleFunc("PUT /api/settings", s.handlePutSettings)
	s.router.HandleFunc("GET /api/stats", s.handleStats)
}

// ============================================================================
// SETTINGS RESOLUTION
// ============================================================================

// configSnapshot returns the current configuration.
func (s *Server) configSnapshot() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// setConfig replaces the configuration after a hot reload.
func (s *Server) setConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// baseToolSettings projects the TOML tool configuration into settings
// form, ready for the stored-row overlay.
func baseToolSettings(cfg *config.Config) storage.ToolSettings {
	return storage.ToolSettings{
		FilesystemEnabled: cfg.Tools.FilesystemEnabled,
		FilesystemRoot:    cfg.Tools.FilesystemRoot,
		ObsidianEnabled:   cfg.Tools.ObsidianEnabled,
		ObsidianVaultPath: cfg.Tools.ObsidianVaultPath,
		WebSearchEnabled:  cfg.Tools.WebSearchEnabled,
		TerminalEnabled:   cfg.Tools.TerminalEnabled,
	}
}

// effectiveSettings returns the TOML base overlaid with stored settings
// rows. Rows are read fresh on every call so edits apply immediately.
func (s *Server) effectiveSettings() (storage.ToolSettings, error) {
	s.mu.RLock()
	cfg := s.cfg
	store := s.store
	s.mu.RUnlock()

	base := baseToolSettings(cfg)
	if store == nil {
		return base, nil
	}
	return store.OverlayToolSettings(base)
}

// capabilities converts settings into the tool registry's capability view.
func capabilities(ts storage.ToolSettings) tools.Capabilities {
	return tools.Capabilities{
		FilesystemEnabled: ts.FilesystemEnabled,
		FilesystemRoot:    ts.FilesystemRoot,
		ObsidianEnabled:   ts.ObsidianEnabled,
		ObsidianVault:     ts.ObsidianVaultPath,
		WebSearchEnabled:  ts.WebSearchEnabled,
		TerminalEnabled:   ts.TerminalEnabled,
	}
}

// resolveRoots returns the sandbox roots handed to the executor. The
// filesystem root falls back to the home directory when the group is
// enabled with a blank root; a disabled group gets a blank root.
func resolveRoots(ts storage.ToolSettings) (fsRoot, vaultRoot string) {
	if ts.FilesystemEnabled {
		fsRoot = ts.FilesystemRoot
		if strings.TrimSpace(fsRoot) == "" {
			fsRoot = config.DefaultFilesystemRoot()
		}
	}
	if ts.ObsidianEnabled && ts.ObsidianVaultPath != "" {
		vaultRoot = ts.ObsidianVaultPath
	}
	return fsRoot, vaultRoot
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse is the GET /api/health payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	OllamaStatus  string `json:"ollama_status"`
	StorageStatus string `json:"storage_status"`
	ToolsEnabled  int    `json:"tools_enabled"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	cfg := s.cfg
	store := s.store
	client := s.ollama
	s.mu.RUnlock()

	health := HealthResponse{
		Status:        "ok",
		Version:       Version,
		UptimeSeconds: int64(s.stats.Uptime().Seconds()),
	}

	ts := baseToolSettings(cfg)
	if store == nil {
		health.StorageStatus = "not_configured"
	} else if overlaid, err := store.OverlayToolSettings(ts); err != nil {
		health.StorageStatus = "unavailable"
		health.Status = "degraded"
	} else {
		health.StorageStatus = "ok"
		ts = overlaid
	}
	health.ToolsEnabled = len(tools.EnabledDefinitions(capabilities(ts)))

	if client == nil {
		health.OllamaStatus = "not_configured"
	} else if err := client.Health(r.Context()); err != nil {
		health.OllamaStatus = "unavailable"
		health.Status = "degraded"
	} else {
		health.OllamaStatus = "ok"
	}

	writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// TOOLS HANDLERS
// ============================================================================

// ToolInfo is one entry of the GET /api/tools payload: a definition plus
// whether the current settings expose it.
type ToolInfo struct {
	tools.ToolDefinition
	Enabled bool `json:"enabled"`
}

// ToolsResponse is the GET /api/tools payload.
type ToolsResponse struct {
	Tools []ToolInfo `json:"tools"`
	Count int        `json:"count"`
}

// handleTools handles GET /api/tools. The optional enabled=true|false
// query filters by current exposure.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	ts, err := s.effectiveSettings()
	if err != nil {
		log.Printf("SETTINGS_READ_FAILED | error=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load tool settings")
		return
	}

	var filter *bool
	if v := r.URL.Query().Get("enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "enabled must be true or false")
			return
		}
		filter = &b
	}

	enabled := make(map[string]bool)
	for _, d := range tools.EnabledDefinitions(capabilities(ts)) {
		enabled[d.Name] = true
	}

	all := tools.AllDefinitions()
	out := make([]ToolInfo, 0, len(all))
	for _, d := range all {
		if filter != nil && *filter != enabled[d.Name] {
			continue
		}
		out = append(out, ToolInfo{ToolDefinition: d, Enabled: enabled[d.Name]})
	}

	writeJSON(w, http.StatusOK, ToolsResponse{Tools: out, Count: len(out)})
}

// ExecuteRequest is the POST /api/tools/execute payload.
type ExecuteRequest struct {
	Tool string          `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// handleExecute handles POST /api/tools/execute. Every execution
// failure, including an unknown tool name, is returned as an ok:false
// envelope with status 200; non-200 statuses mean the HTTP request
// itself was malformed.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", MaxRequestBodySize))
			return
		}
		log.Printf("EXECUTE_BAD_REQUEST | error=%v", err)
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if strings.TrimSpace(req.Tool) == "" {
		writeError(w, http.StatusBadRequest, "Request must name a tool")
		return
	}

	ts, err := s.effectiveSettings()
	if err != nil {
		log.Printf("SETTINGS_READ_FAILED | error=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load tool settings")
		return
	}
	fsRoot, vaultRoot := resolveRoots(ts)

	s.mu.RLock()
	exec := s.exec
	s.mu.RUnlock()

	start := time.Now()
	res, err := exec.Execute(r.Context(), req.Tool, req.Args, fsRoot, vaultRoot)
	if err != nil {
		// Unknown tool names are the executor's one hard error; the API
		// returns them in the same envelope as every other failure.
		res = tools.FailureResult(err)
	}
	s.stats.RecordExecution(res.OK)

	log.Printf("TOOL_EXECUTED | tool=%s ok=%t latency=%dms",
		req.Tool, res.OK, time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, res)
}

// ============================================================================
// SETTINGS HANDLERS
// ============================================================================

// handleGetSettings handles GET /api/settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ts, err := s.effectiveSettings()
	if err != nil {
		log.Printf("SETTINGS_READ_FAILED | error=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load tool settings")
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

// handlePutSettings handles PUT /api/settings. The payload replaces the
// stored settings rows; the TOML file is not touched.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "Settings storage is not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var ts storage.ToolSettings
	if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", MaxRequestBodySize))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := store.SaveToolSettings(ts); err != nil {
		log.Printf("SETTINGS_SAVE_FAILED | error=%v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	log.Printf("SETTINGS_SAVED | filesystem=%t obsidian=%t web=%t terminal=%t",
		ts.FilesystemEnabled, ts.ObsidianEnabled, ts.WebSearchEnabled, ts.TerminalEnabled)
	writeJSON(w, http.StatusOK, ts)
}

// ============================================================================
// STATS HANDLER
// ============================================================================

// StatsResponse is the GET /api/stats payload. Conversation and message
// counts stay zero when no store is attached.
type StatsResponse struct {
	TotalRequests  int64 `json:"total_requests"`
	ToolExecutions int64 `json:"tool_executions"`
	ToolFailures   int64 `json:"tool_failures"`
	RateLimited    int64 `json:"rate_limited"`
	UptimeSeconds  int64 `json:"uptime_seconds"`
	Conversations  int64 `json:"conversations"`
	Messages       int64 `json:"messages"`
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.stats.GetStats()

	resp := StatsResponse{
		TotalRequests:  stats.TotalRequests,
		ToolExecutions: stats.ToolExecutions,
		ToolFailures:   stats.ToolFailures,
		RateLimited:    stats.RateLimited,
		UptimeSeconds:  int64(s.stats.Uptime().Seconds()),
	}

	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store != nil {
		conversations, messages, err := store.Counts()
		if err != nil {
			log.Printf("STORAGE_COUNTS_FAILED | error=%v", err)
		} else {
			resp.Conversations = conversations
			resp.Messages = messages
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start runs the server until ctx is canceled or the listener fails.
// Cancellation triggers a graceful shutdown; Start returns nil once the
// remaining connections drain.
func (s *Server) Start(ctx context.Context) error {
	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		StatsMiddleware(s.stats),
		RateLimitMiddleware(s.limiter, s.stats),
	)(s.router)

	addr := s.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go s.limiter.sweepLoop(ctx)
	s.watchConfig(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	log.Printf("SERVER_START | addr=%s version=%s", addr, Version)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve on %s: %w", addr, err)
	case <-ctx.Done():
	}

	log.Printf("SERVER_SHUTDOWN | draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}
	return nil
}

// watchConfig starts the configuration hot reload when the standard
// config location resolves. A watch that cannot start is logged and
// skipped; the server keeps its startup configuration.
func (s *Server) watchConfig(ctx context.Context) {
	path, err := config.ConfigPath()
	if err != nil {
		log.Printf("CONFIG_WATCH_UNAVAILABLE | error=%v", err)
		return
	}
	w, err := newSettingsWatcher(path, func() { s.reloadConfig(path) })
	if err != nil {
		log.Printf("CONFIG_WATCH_UNAVAILABLE | error=%v", err)
		return
	}
	go func() {
		defer w.Close()
		w.run(ctx)
	}()
}

// reloadConfig re-reads the TOML file and swaps the active
// configuration. A file that fails to load leaves the previous
// configuration in place. The bind address, rate limits, and Ollama
// endpoint stay as they were at startup; tool settings apply live.
func (s *Server) reloadConfig(path string) {
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		log.Printf("CONFIG_RELOAD_FAILED | path=%s error=%v", path, err)
		return
	}
	s.setConfig(cfg)
	log.Printf("CONFIG_RELOADED | path=%s", path)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"code":    status,
		},
	})
}
