// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama API.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(baseURL string) *Client {
	return NewClientWithConfig(&ClientConfig{BaseURL: baseURL})
}

// closedServerURL returns a URL with nothing listening on it.
func closedServerURL(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return url
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestClient_ConfigFillIn(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{})

	if client.BaseURL() != "http://127.0.0.1:11434" {
		t.Errorf("BaseURL = %q", client.BaseURL())
	}
	if client.DefaultModel() != "qwen2.5:3b-instruct" {
		t.Errorf("DefaultModel = %q", client.DefaultModel())
	}
	if client.config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", client.config.Timeout)
	}
	if client.config.HealthTimeout != 2*time.Second {
		t.Errorf("HealthTimeout = %v, want 2s", client.config.HealthTimeout)
	}

	// Nil config behaves like the default
	client = NewClientWithConfig(nil)
	if client.BaseURL() != "http://127.0.0.1:11434" {
		t.Errorf("BaseURL = %q", client.BaseURL())
	}

	// Explicit values survive
	client = NewClientWithConfig(&ClientConfig{BaseURL: "http://10.0.0.2:11434", DefaultModel: "llama3.2:1b"})
	if client.BaseURL() != "http://10.0.0.2:11434" {
		t.Errorf("BaseURL = %q", client.BaseURL())
	}
	if client.DefaultModel() != "llama3.2:1b" {
		t.Errorf("DefaultModel = %q", client.DefaultModel())
	}
}

// =============================================================================
// HEALTH TESTS
// =============================================================================

func TestClient_Health(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	if err := newTestClient(server.URL).Health(context.Background()); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if gotPath != "/api/tags" {
		t.Errorf("Health probed %q, want /api/tags", gotPath)
	}
}

func TestClient_HealthNotRunning(t *testing.T) {
	err := newTestClient(closedServerURL(t)).Health(context.Background())
	if !IsNotRunning(err) {
		t.Errorf("Expected not-running error, got %v", err)
	}
}

func TestClient_HealthBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := newTestClient(server.URL).Health(context.Background())
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if IsNotRunning(err) {
		t.Error("A responding server should not count as not-running")
	}
}

func TestClient_Version(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			t.Errorf("Path = %q, want /api/version", r.URL.Path)
		}
		w.Write([]byte(`{"version":"0.5.7"}`))
	}))
	defer server.Close()

	version, err := newTestClient(server.URL).Version(context.Background())
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if version != "0.5.7" {
		t.Errorf("Version = %q, want %q", version, "0.5.7")
	}
}

// =============================================================================
// MODEL OPERATION TESTS
// =============================================================================

func TestClient_ListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[
			{"name":"qwen2.5:3b-instruct","size":1929912432,"digest":"abc123",
			 "details":{"family":"qwen2","parameter_size":"3.1B","quantization_level":"Q4_K_M"}},
			{"name":"llama3.2:1b","size":1321098329}
		]}`))
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("Expected 2 models, got %d", len(models))
	}
	if models[0].Name != "qwen2.5:3b-instruct" {
		t.Errorf("Name = %q", models[0].Name)
	}
	if models[0].Details.ParameterSize != "3.1B" {
		t.Errorf("ParameterSize = %q", models[0].Details.ParameterSize)
	}
	if models[1].Size != 1321098329 {
		t.Errorf("Size = %d", models[1].Size)
	}
}

func TestClient_ShowModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ShowModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Model != "qwen2.5:3b-instruct" {
			t.Errorf("Request model = %q", req.Model)
		}
		w.Write([]byte(`{"modelfile":"FROM qwen2.5","details":{"family":"qwen2"}}`))
	}))
	defer server.Close()

	show, err := newTestClient(server.URL).ShowModel(context.Background(), "qwen2.5:3b-instruct")
	if err != nil {
		t.Fatalf("ShowModel failed: %v", err)
	}
	if show.Details.Family != "qwen2" {
		t.Errorf("Family = %q", show.Details.Family)
	}
}

func TestClient_ShowModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ShowModel(context.Background(), "no-such-model")
	if !IsModelNotFound(err) {
		t.Errorf("Expected model-not-found error, got %v", err)
	}
}

func TestClient_DeleteModel(t *testing.T) {
	var gotMethod, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		var req DeleteModelRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
	}))
	defer server.Close()

	if err := newTestClient(server.URL).DeleteModel(context.Background(), "llama3.2:1b"); err != nil {
		t.Fatalf("DeleteModel failed: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("Method = %q, want DELETE", gotMethod)
	}
	if gotModel != "llama3.2:1b" {
		t.Errorf("Model = %q", gotModel)
	}
}

func TestClient_DeleteModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model is in use"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).DeleteModel(context.Background(), "busy-model")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "model is in use") {
		t.Errorf("Error should carry the API message, got %q", err.Error())
	}
}

// =============================================================================
// PULL TESTS
// =============================================================================

func TestClient_Pull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req PullRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "qwen2.5:3b-instruct" {
			t.Errorf("Request name = %q", req.Name)
		}
		io.WriteString(w, `{"status":"pulling manifest"}`+"\n")
		io.WriteString(w, `this line is not json`+"\n")
		io.WriteString(w, `{"status":"downloading","digest":"sha256:aa","total":1000,"completed":250}`+"\n")
		io.WriteString(w, `{"status":"success"}`+"\n")
	}))
	defer server.Close()

	var events []PullEvent
	err := newTestClient(server.URL).Pull(context.Background(), "qwen2.5:3b-instruct", func(e PullEvent) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}

	// Malformed line skipped, three real events kept in order
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d: %+v", len(events), events)
	}
	if events[0].Status != "pulling manifest" {
		t.Errorf("First status = %q", events[0].Status)
	}
	if events[1].Completed != 250 || events[1].Total != 1000 {
		t.Errorf("Progress = %d/%d", events[1].Completed, events[1].Total)
	}
	if got := events[1].Percent(); got != 25 {
		t.Errorf("Percent() = %v, want 25", got)
	}
	if events[2].Status != "success" {
		t.Errorf("Final status = %q", events[2].Status)
	}
}

func TestClient_PullStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"pulling manifest"}`+"\n")
		io.WriteString(w, `{"error":"pull model manifest: file does not exist"}`+"\n")
	}))
	defer server.Close()

	var events []PullEvent
	err := newTestClient(server.URL).Pull(context.Background(), "no-such-model", func(e PullEvent) {
		events = append(events, e)
	})
	if err == nil {
		t.Fatal("Expected error from error event")
	}
	if !strings.Contains(err.Error(), "file does not exist") {
		t.Errorf("Error = %q", err.Error())
	}
	if len(events) != 1 {
		t.Errorf("Expected 1 event before the error, got %d", len(events))
	}
}

// =============================================================================
// CHAT STREAM TESTS
// =============================================================================

func TestClient_ChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if !req.Stream {
			t.Error("Request should ask for streaming")
		}
		// Empty model in the call is replaced by the client default
		if req.Model != "qwen2.5:3b-instruct" {
			t.Errorf("Request model = %q", req.Model)
		}
		io.WriteString(w, `{"model":"qwen2.5:3b-instruct","message":{"role":"assistant","content":"Hel"},"done":false}`+"\n")
		io.WriteString(w, `{"message":{"role":"assistant","content":"lo"},"done":false}`+"\n")
		io.WriteString(w, `{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","eval_count":2,"eval_duration":1000000000,"prompt_eval_count":5}`+"\n")
	}))
	defer server.Close()

	var content strings.Builder
	var final StreamChunk
	err := newTestClient(server.URL).ChatStream(context.Background(), "",
		[]Message{{Role: "user", Content: "Say hello"}}, nil,
		func(chunk StreamChunk) {
			content.WriteString(chunk.Content)
			if chunk.Done {
				final = chunk
			}
		})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if content.String() != "Hello" {
		t.Errorf("Accumulated content = %q, want %q", content.String(), "Hello")
	}
	if !final.Done || final.DoneReason != "stop" {
		t.Errorf("Final chunk = %+v", final)
	}
	if final.CompletionTokens != 2 || final.PromptTokens != 5 {
		t.Errorf("Token counts = %d/%d", final.PromptTokens, final.CompletionTokens)
	}
	if final.Model != "qwen2.5:3b-instruct" {
		t.Errorf("Model = %q", final.Model)
	}
	if got := final.TokensPerSecond(); got != 2 {
		t.Errorf("TokensPerSecond = %v, want 2", got)
	}
}

func TestClient_ChatStreamOptions(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"message":{"content":""},"done":true}`+"\n")
	}))
	defer server.Close()

	temp := 0.0
	numPredict := 512
	err := newTestClient(server.URL).ChatStream(context.Background(), "llama3.2:1b",
		[]Message{{Role: "user", Content: "hi"}},
		&Options{Temperature: &temp, NumPredict: &numPredict},
		func(StreamChunk) {})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	// A zero temperature must survive serialization
	body := string(gotBody)
	if !strings.Contains(body, `"temperature":0`) {
		t.Errorf("Body should carry temperature 0: %s", body)
	}
	if !strings.Contains(body, `"num_predict":512`) {
		t.Errorf("Body should carry num_predict: %s", body)
	}
}

func TestClient_ChatStreamAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model requires more system memory"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).ChatStream(context.Background(), "big-model", nil, nil, func(StreamChunk) {})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "more system memory") {
		t.Errorf("Error should carry the API message, got %q", err.Error())
	}
}

func TestClient_ChatStreamCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":{"content":"first"},"done":false}`+"\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var chunks int
	err := newTestClient(server.URL).ChatStream(ctx, "m", nil, nil, func(chunk StreamChunk) {
		chunks++
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if chunks != 1 {
		t.Errorf("Expected 1 chunk before cancel, got %d", chunks)
	}
}

// =============================================================================
// STREAM READER TESTS
// =============================================================================

func TestStreamReader_SkipsMalformedLines(t *testing.T) {
	input := `{"message":{"content":"a"},"done":false}` + "\n" +
		"garbage\n" +
		"\n" +
		`{"message":{"content":"b"},"done":true}` + "\n"

	var got []string
	reader := NewStreamReader(strings.NewReader(input))
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		got = append(got, chunk.Content)
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Chunks = %v", got)
	}
}

func TestStreamReader_UnterminatedFinalLine(t *testing.T) {
	input := `{"message":{"content":"tail"},"done":true}` // no trailing newline

	var got []string
	reader := NewStreamReader(strings.NewReader(input))
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		got = append(got, chunk.Content)
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(got) != 1 || got[0] != "tail" {
		t.Errorf("Chunks = %v", got)
	}
}

// =============================================================================
// ERROR HELPER TESTS
// =============================================================================

func TestClientError_Helpers(t *testing.T) {
	if !IsNotRunning(ErrNotRunning) {
		t.Error("IsNotRunning(ErrNotRunning) should be true")
	}
	if !IsTimeout(ErrTimeout) {
		t.Error("IsTimeout(ErrTimeout) should be true")
	}
	if !IsModelNotFound(ErrModelNotFound) {
		t.Error("IsModelNotFound(ErrModelNotFound) should be true")
	}

	// Wrapped errors are still recognized
	wrapped := fmt.Errorf("probing: %w", ErrNotRunning)
	if !IsNotRunning(wrapped) {
		t.Error("IsNotRunning should see through wrapping")
	}
	if IsTimeout(wrapped) {
		t.Error("IsTimeout should not match a not-running error")
	}
	if IsNotRunning(errors.New("plain")) {
		t.Error("IsNotRunning should be false for unrelated errors")
	}
}

func TestClientError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ClientError{Type: ErrTypeConnection, Message: "failed to connect", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if err.Error() != "failed to connect: connection refused" {
		t.Errorf("Error() = %q", err.Error())
	}
}

// =============================================================================
// FORMATTING TESTS
// =============================================================================

func TestModelInfo_FormatSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{1929912432, "1.8 GB"},
	}
	for _, tc := range tests {
		m := &ModelInfo{Size: tc.size}
		if got := m.FormatSize(); got != tc.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}
