// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

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
)

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReaderSingleEvent(t *testing.T) {
	input := "data: {\"hello\":\"world\"}\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != `{"hello":"world"}` {
		t.Errorf("data = %q", data)
	}

	if _, _, err := reader.ReadEvent(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestSSEReaderMultipleEvents(t *testing.T) {
	input := "data: one\n\ndata: two\n\ndata: [DONE]\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	want := []string{"one", "two", "[DONE]"}
	for _, expect := range want {
		_, data, err := reader.ReadEvent()
		if err != nil {
			t.Fatalf("ReadEvent: %v", err)
		}
		if string(data) != expect {
			t.Errorf("data = %q, want %q", data, expect)
		}
	}
}

func TestSSEReaderCRLF(t *testing.T) {
	input := "data: chunk\r\n\r\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "chunk" {
		t.Errorf("data = %q, want %q", data, "chunk")
	}
}

func TestSSEReaderEventType(t *testing.T) {
	input := "event: ping\ndata: {}\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	eventType, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if eventType != "ping" {
		t.Errorf("eventType = %q, want %q", eventType, "ping")
	}
	if string(data) != "{}" {
		t.Errorf("data = %q, want %q", data, "{}")
	}
}

func TestSSEReaderDataBeforeEOF(t *testing.T) {
	// No trailing blank line; buffered data must still flush.
	input := "data: last"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "last" {
		t.Errorf("data = %q, want %q", data, "last")
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func sseBody(tokens []string) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`, tok))
		sb.WriteString("\n\n")
	}
	sb.WriteString("data: [DONE]\n\n")
	return sb.String()
}

func TestChatStreamDeliversTokensInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody([]string{"Hel", "lo", " world"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")

	var got []string
	err := client.ChatStream(context.Background(), "test-model", []ChatMessage{NewUserMessage("hi")}, func(chunk StreamChunk) {
		got = append(got, chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	if strings.Join(got, "") != "Hello world" {
		t.Errorf("accumulated = %q, want %q", strings.Join(got, ""), "Hello world")
	}
}

func TestChatStreamSkipsMalformedChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {not json\n\n")
		io.WriteString(w, `data: {"choices":[{"delta":{"content":"ok"}}]}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")

	var got strings.Builder
	err := client.ChatStream(context.Background(), "m", nil, func(chunk StreamChunk) {
		got.WriteString(chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if got.String() != "ok" {
		t.Errorf("accumulated = %q, want %q", got.String(), "ok")
	}
}

func TestChatStreamStopsOnFinishReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"choices":[{"delta":{"content":"done"},"finish_reason":"stop"}]}`+"\n\n")
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")

	calls := 0
	err := client.ChatStream(context.Background(), "m", nil, func(chunk StreamChunk) {
		calls++
		if !chunk.IsDone() {
			t.Error("expected final chunk to report done")
		}
	})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}
	if calls != 1 {
		t.Errorf("callback called %d times, want 1", calls)
	}
}

func TestChatStreamContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody([]string{"never"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")
	err := client.ChatStream(ctx, "m", nil, func(StreamChunk) {})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestChatStreamAccumulate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody([]string{"a", "b", "c"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")
	got, err := client.ChatStreamAccumulate(context.Background(), "m", nil)
	if err != nil {
		t.Fatalf("ChatStreamAccumulate: %v", err)
	}
	if got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}

// =============================================================================
// NON-STREAMING TESTS
// =============================================================================

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","model":"m","choices":[{"message":{"role":"assistant","content":"pong"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")
	resp, err := client.Chat(context.Background(), "m", []ChatMessage{NewUserMessage("ping")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.GetContent() != "pong" {
		t.Errorf("GetContent() = %q, want %q", resp.GetContent(), "pong")
	}
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusNotFound, ErrModelNotFound},
	}

	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			io.WriteString(w, `{"error":{"message":"nope","code":"bad"}}`)
		}))

		client := NewClient(srv.URL + "/v1").WithMaxRetries(1)
		_, err := client.Chat(context.Background(), "m", nil)
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: err = %v, want %v", tc.status, err, tc.want)
		}
		srv.Close()
	}
}

func TestChatRetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"recovered"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")
	resp, err := client.Chat(context.Background(), "m", nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.GetContent() != "recovered" {
		t.Errorf("GetContent() = %q", resp.GetContent())
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestChatDoesNotRetryClientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"message":"no such model"}}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")
	_, err := client.Chat(context.Background(), "m", nil)
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("err = %v, want ErrModelNotFound", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		io.WriteString(w, `{"data":[{"id":"gpt-4o-mini"},{"id":"llama-3-70b"}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")
	models, err := client.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("len(models) = %d, want 2", len(models))
	}
	if models[0].ID != "gpt-4o-mini" {
		t.Errorf("models[0].ID = %q", models[0].ID)
	}
}

func TestAuthorizationHeaderOnlyWithKey(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, `{"data":[]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/v1")
	client.ListModels(context.Background())
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty without key", gotAuth)
	}

	client.WithAPIKey("secret")
	client.ListModels(context.Background())
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret")
	}
}

// =============================================================================
// ACCUMULATOR TESTS
// =============================================================================

func TestStreamAccumulator(t *testing.T) {
	acc := NewStreamAccumulator()
	cb := acc.Callback()

	for _, tok := range []string{"Hel", "lo"} {
		var chunk StreamChunk
		raw := fmt.Sprintf(`{"choices":[{"delta":{"content":%q}}]}`, tok)
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			t.Fatal(err)
		}
		cb(chunk)
	}

	if acc.GetContent() != "Hello" {
		t.Errorf("GetContent() = %q, want %q", acc.GetContent(), "Hello")
	}
	if acc.TokenCount != 2 {
		t.Errorf("TokenCount = %d, want 2", acc.TokenCount)
	}
	if acc.TTFT() <= 0 {
		t.Errorf("TTFT() = %v, want > 0", acc.TTFT())
	}
}

func TestDefaultBaseURL(t *testing.T) {
	client := NewClient("")
	if client.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL() = %q, want %q", client.BaseURL(), DefaultBaseURL)
	}
}
