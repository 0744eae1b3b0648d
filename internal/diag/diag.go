// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package diag persists diagnostic events to a rotating log file.
// diag.go implements the Sink interface and its file-backed implementation.
package diag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// rotateSizeBytes is the log size that triggers rotation (5 MB).
const rotateSizeBytes = 5 * 1024 * 1024

// Diagnostic levels.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Sink receives diagnostic events.
type Sink interface {
	Log(level, message string, meta map[string]interface{})
}

// =============================================================================
// NOP SINK
// =============================================================================

type nopSink struct{}

func (nopSink) Log(string, string, map[string]interface{}) {}

// Nop returns a sink that discards everything.
func Nop() Sink { return nopSink{} }

// =============================================================================
// FILE SINK
// =============================================================================

// FileSink appends diagnostic lines to a log file, rotating it to a .old
// sibling at 5 MB. All write errors are swallowed.
type FileSink struct {
	mu   sync.Mutex
	path string
}

// DefaultLogPath returns ~/.rigtools/logs/rigtools.log, or "" when no home
// directory can be determined.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".rigtools", "logs", "rigtools.log")
}

// NewFileSink creates a file sink. An empty path means DefaultLogPath; if
// that is also empty the sink discards everything.
func NewFileSink(path string) *FileSink {
	if path == "" {
		path = DefaultLogPath()
	}
	return &FileSink{path: path}
}

// Log appends one event line.
func (s *FileSink) Log(level, message string, meta map[string]interface{}) {
	if s == nil || s.path == "" {
		return
	}
	ts := time.Now().UnixMilli()
	line := fmt.Sprintf("%d [%s] %s", ts, level, message)
	if len(meta) > 0 {
		if encoded, err := json.Marshal(meta); err == nil {
			line += " " + string(encoded)
		}
	}
	line += "\n"

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}
	s.rotateIfNeeded()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line)
}

// rotateIfNeeded moves the log aside once it reaches the rotation size.
// Only one generation is kept.
func (s *FileSink) rotateIfNeeded() {
	info, err := os.Stat(s.path)
	if err != nil || info.Size() < rotateSizeBytes {
		return
	}
	old := s.path + ".old"
	_ = os.Remove(old)
	_ = os.Rename(s.path, old)
}
