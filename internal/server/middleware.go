// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local HTTP API for rigtools.
// middleware.go implements the handler chain: panic recovery, security
// headers, request logging, request counting, and per-client rate limits.
package server

import (
	"context"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// MIDDLEWARE CHAIN
// =============================================================================

// Chain composes middlewares into one. The first argument becomes the
// outermost handler.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// =============================================================================
// RECOVERY
// =============================================================================

// RecoveryMiddleware catches panics in downstream handlers, logs the
// stack trace, and answers with a JSON 500 instead of dropping the
// connection.
func RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Printf("PANIC_RECOVERED | method=%s path=%s error=%v\n%s",
						r.Method, r.URL.Path, err, debug.Stack())
					writeError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// SECURITY HEADERS
// =============================================================================

// SecurityHeadersMiddleware adds response headers that keep API payloads
// out of browser rendering paths and caches.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Content-Security-Policy", "default-src 'self'")
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// REQUEST LOGGING
// =============================================================================

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every request with its status and latency.
func LoggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Printf("%s %s | %d | %.3fs | client=%s",
				r.Method, r.URL.Path, rec.status,
				time.Since(start).Seconds(), GetClientIP(r))
		})
	}
}

// =============================================================================
// REQUEST COUNTING
// =============================================================================

// StatsMiddleware counts every incoming request, including ones the rate
// limiter later rejects.
func StatsMiddleware(stats *ServerStats) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			stats.RecordRequest()
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// Limiter housekeeping intervals. Idle client buckets are dropped so the
// map cannot grow without bound.
const (
	limiterSweepInterval = 5 * time.Minute
	limiterMaxIdle       = 10 * time.Minute
)

// ClientLimiter hands out a token bucket per client address.
type ClientLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter

	seenMu   sync.Mutex
	lastSeen map[string]time.Time
}

// NewClientLimiter creates a limiter allowing perSecond sustained
// requests with the given burst per client. Non-positive values fall
// back to 10 per second with a burst of 20.
func NewClientLimiter(perSecond float64, burst int) *ClientLimiter {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &ClientLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
}

// Allow reports whether the client may proceed, consuming one token when
// it can.
func (cl *ClientLimiter) Allow(client string) bool {
	return cl.limiterFor(client).Allow()
}

// limiterFor returns the bucket for a client, creating it on first use.
func (cl *ClientLimiter) limiterFor(client string) *rate.Limiter {
	cl.mu.RLock()
	lim, ok := cl.limiters[client]
	cl.mu.RUnlock()

	if !ok {
		cl.mu.Lock()
		// Re-check after acquiring the write lock
		if lim, ok = cl.limiters[client]; !ok {
			lim = rate.NewLimiter(cl.limit, cl.burst)
			cl.limiters[client] = lim
		}
		cl.mu.Unlock()
	}

	cl.seenMu.Lock()
	cl.lastSeen[client] = time.Now()
	cl.seenMu.Unlock()

	return lim
}

// sweep drops buckets that have been idle longer than maxIdle.
func (cl *ClientLimiter) sweep(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	cl.seenMu.Lock()
	var stale []string
	for client, seen := range cl.lastSeen {
		if seen.Before(cutoff) {
			stale = append(stale, client)
			delete(cl.lastSeen, client)
		}
	}
	cl.seenMu.Unlock()

	if len(stale) == 0 {
		return
	}

	cl.mu.Lock()
	for _, client := range stale {
		delete(cl.limiters, client)
	}
	cl.mu.Unlock()
}

// sweepLoop runs sweep on an interval until ctx is canceled.
func (cl *ClientLimiter) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cl.sweep(limiterMaxIdle)
		}
	}
}

func (cl *ClientLimiter) size() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.limiters)
}

// RateLimitMiddleware enforces the per-client token bucket. Rejected
// requests get a JSON 429 with a Retry-After hint.
func RateLimitMiddleware(limiter *ClientLimiter, stats *ServerStats) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := GetClientIP(r)
			if !limiter.Allow(client) {
				if stats != nil {
					stats.RecordRateLimited()
				}
				w.Header().Set("Retry-After", "1")
				log.Printf("RATE_LIMIT_EXCEEDED | client=%s path=%s", client, r.URL.Path)
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// CLIENT ADDRESS
// =============================================================================

// GetClientIP returns the client address used as the rate-limit key.
//
// SECURITY: Forwarded headers are honored only when the direct peer is
// loopback; accepting them from arbitrary peers would let clients choose
// their own rate-limit key.
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not carry a port
		host = r.RemoteAddr
	}

	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return host
	}

	// The first entry of X-Forwarded-For is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	return host
}
