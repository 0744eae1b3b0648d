// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama API.
package ollama

import (
	"time"

	"github.com/jeranaias/rigtools/internal/util"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Message represents a chat message in the conversation.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Options contains model parameters for inference. Nil fields are
// omitted so the server applies its own defaults.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"` // 0.0-2.0
	NumPredict  *int     `json:"num_predict,omitempty"` // Max tokens to generate
}

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// ShowModelRequest is the request for the /api/show endpoint.
type ShowModelRequest struct {
	Model string `json:"model"`
}

// DeleteModelRequest is the request for the /api/delete endpoint.
type DeleteModelRequest struct {
	Model string `json:"model"`
}

// PullRequest is the request for the /api/pull endpoint.
type PullRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// VersionResponse is the response from the /api/version endpoint.
type VersionResponse struct {
	Version string `json:"version"`
}

// ModelInfo describes one locally installed model.
type ModelInfo struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails contains detailed information about a model.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the response from the /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ShowModelResponse is the response from the /api/show endpoint.
type ShowModelResponse struct {
	License    string       `json:"license"`
	Modelfile  string       `json:"modelfile"`
	Parameters string       `json:"parameters"`
	Template   string       `json:"template"`
	Details    ModelDetails `json:"details"`
}

// PullEvent is one progress line from a streaming model pull.
type PullEvent struct {
	Status    string `json:"status,omitempty"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Percent returns download progress as 0-100, or 0 when total is unknown.
func (e PullEvent) Percent() float64 {
	if e.Total <= 0 {
		return 0
	}
	return float64(e.Completed) / float64(e.Total) * 100
}

// APIError is the error body shape the Ollama API returns.
type APIError struct {
	Error string `json:"error"`
}

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk represents a single chunk from a streaming chat response.
type StreamChunk struct {
	// Content carried by this chunk
	Content string

	// Model that produced the stream
	Model string

	// Done marks the final chunk; the stats below are only set on it
	Done       bool
	DoneReason string

	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration

	PromptTokens     int
	CompletionTokens int

	// Error if any occurred during streaming
	Error error
}

// TokensPerSecond calculates the generation speed from a final chunk.
func (c StreamChunk) TokensPerSecond() float64 {
	if c.EvalDuration == 0 {
		return 0
	}
	return float64(c.CompletionTokens) / c.EvalDuration.Seconds()
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatSize formats the model size in human-readable form.
func (m *ModelInfo) FormatSize() string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)

	switch {
	case m.Size >= gb:
		return util.FloatToStringPrec(float64(m.Size)/gb, 1) + " GB"
	case m.Size >= mb:
		return util.FloatToStringPrec(float64(m.Size)/mb, 1) + " MB"
	case m.Size >= kb:
		return util.FloatToStringPrec(float64(m.Size)/kb, 1) + " KB"
	default:
		return util.Int64ToString(m.Size) + " B"
	}
}
