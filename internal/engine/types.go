// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage represents a single message in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", or "system"
	Content string `json:"content"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// ChatRequest represents a request to the chat completions endpoint.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse represents a non-streaming chat completions response.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// GetContent returns the content of the first choice, or empty string if none.
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// StreamChunk represents a single chunk of a streaming response.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the content from the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// IsDone returns true if the stream has finished.
func (c *StreamChunk) IsDone() bool {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason != ""
	}
	return false
}

// GetFinishReason returns the finish reason if streaming is complete.
func (c *StreamChunk) GetFinishReason() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason
	}
	return ""
}

// StreamCallback is called for each received chunk, in arrival order.
type StreamCallback func(chunk StreamChunk)

// ModelInfo describes a model offered by the gateway.
type ModelInfo struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by,omitempty"`
}

// modelsResponse is the wire shape of the models listing.
type modelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// FallbackModels returns a small built-in model list used when the
// gateway's /models endpoint is unreachable. The IDs cover the models
// most free-tier gateways route by default.
func FallbackModels() []ModelInfo {
	return []ModelInfo{
		{ID: "gpt-4o-mini", OwnedBy: "openai"},
		{ID: "gpt-4o", OwnedBy: "openai"},
		{ID: "gpt-4", OwnedBy: "openai"},
		{ID: "claude-3-haiku", OwnedBy: "anthropic"},
		{ID: "llama-3.1-70b", OwnedBy: "meta"},
		{ID: "mixtral-8x7b", OwnedBy: "mistralai"},
	}
}

// apiErrorResponse represents an error body from the gateway.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// COMPLETER INTERFACE
// =============================================================================

// Completer is the completion surface the rest of the app depends on.
// *Client implements it; tests substitute fakes.
type Completer interface {
	Chat(ctx context.Context, model string, messages []ChatMessage) (*ChatResponse, error)
	ChatStream(ctx context.Context, model string, messages []ChatMessage, callback StreamCallback) error
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// =============================================================================
// ERRORS
// =============================================================================

// Error variables for common gateway failures.
var (
	// ErrUnreachable indicates the gateway could not be contacted at all.
	ErrUnreachable = errors.New("completion gateway unreachable")

	// ErrAuthFailed indicates the gateway rejected the configured key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// GatewayError represents an error response from the gateway.
type GatewayError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("gateway error (HTTP %d): %s", e.Status, e.Message)
}

// StreamError represents an error that occurred mid-stream, preserving
// any partial content received before the failure.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}
