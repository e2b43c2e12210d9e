// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/freechat-tui/internal/engine"
	"github.com/jeranaias/freechat-tui/internal/model"
)

// FallbackNotice is what the assistant message says when the engine fails.
const FallbackNotice = "Sorry, I couldn't get a response from the model. Please try again."

// Error variables for send failures.
var (
	// ErrEmptyMessage indicates the user text was empty or whitespace.
	// Empty input appends nothing to the conversation.
	ErrEmptyMessage = errors.New("empty message")

	// ErrBusy indicates a send is already in flight for the conversation.
	ErrBusy = errors.New("a response is already in progress for this conversation")
)

// =============================================================================
// SEND OPTIONS
// =============================================================================

// SendOptions controls a single exchange.
type SendOptions struct {
	// Model identifies the completion model. Empty uses the engine default.
	Model string

	// Streaming requests token-by-token delivery. When false the engine
	// is asked for one complete response and OnToken fires exactly once
	// with the full text.
	Streaming bool

	// OnToken is called for each text chunk, in arrival order, after the
	// chunk has been appended to the assistant message. May be nil.
	OnToken func(token string)
}

// Result describes a completed exchange.
type Result struct {
	// Assistant is the finalized assistant message.
	Assistant *model.Message

	// Fallback is true when the engine failed and the assistant message
	// carries the fallback notice or partial content.
	Fallback bool

	// Err is the underlying engine error, if any. The conversation is
	// consistent regardless.
	Err error
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// ChatSession runs exchanges against a completion engine.
type ChatSession struct {
	completer engine.Completer

	mu       sync.Mutex
	inFlight map[string]bool // conversation ID -> send in progress
}

// NewChatSession creates a session backed by the given completer.
func NewChatSession(completer engine.Completer) *ChatSession {
	return &ChatSession{
		completer: completer,
		inFlight:  make(map[string]bool),
	}
}

// Send runs one exchange: it appends the user message and a placeholder
// assistant message, then fills the assistant message from the engine.
//
// The assistant message is always finalized before Send returns: with the
// full response on success, with partial content on cancellation, and with
// the fallback notice when the engine fails before producing anything.
// Exactly two messages are appended per call.
//
// One send at a time per conversation; a second concurrent call returns
// ErrBusy without touching the conversation.
func (s *ChatSession) Send(ctx context.Context, conv *model.Conversation, userText string, opts SendOptions) (*Result, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, ErrEmptyMessage
	}

	if !s.acquire(conv.ID) {
		return nil, ErrBusy
	}
	defer s.release(conv.ID)

	conv.AddUserMessage(userText)
	history := toEngineMessages(conv)
	assistant := conv.AddAssistantMessage()

	stats := model.NewStatistics()

	var err error
	if opts.Streaming {
		err = s.streamExchange(ctx, conv, opts, history, stats)
	} else {
		err = s.singleExchange(ctx, conv, opts, history, stats)
	}

	if err != nil {
		return s.finalizeFailed(conv, assistant, stats, err), nil
	}

	stats.Finalize(stats.CompletionTokens)
	conv.FinalizeLast(stats)

	return &Result{Assistant: assistant}, nil
}

// streamExchange feeds streamed tokens into the placeholder message.
func (s *ChatSession) streamExchange(ctx context.Context, conv *model.Conversation, opts SendOptions, history []engine.ChatMessage, stats *model.Statistics) error {
	return s.completer.ChatStream(ctx, opts.Model, history, func(chunk engine.StreamChunk) {
		token := chunk.GetContent()
		if token == "" {
			return
		}
		stats.RecordFirstToken()
		stats.CompletionTokens++
		conv.AppendToLast(token)
		if opts.OnToken != nil {
			opts.OnToken(token)
		}
	})
}

// singleExchange requests one complete response and delivers it as a
// single chunk.
func (s *ChatSession) singleExchange(ctx context.Context, conv *model.Conversation, opts SendOptions, history []engine.ChatMessage, stats *model.Statistics) error {
	resp, err := s.completer.Chat(ctx, opts.Model, history)
	if err != nil {
		return err
	}

	content := resp.GetContent()
	stats.RecordFirstToken()
	stats.CompletionTokens = resp.Usage.CompletionTokens
	conv.AppendToLast(content)
	if opts.OnToken != nil {
		opts.OnToken(content)
	}
	return nil
}

// finalizeFailed closes out a failed exchange. Partial content survives;
// a completely empty message gets the fallback notice.
func (s *ChatSession) finalizeFailed(conv *model.Conversation, assistant *model.Message, stats *model.Statistics, err error) *Result {
	log.Warn().Err(err).Str("conversation", conv.ID).Msg("completion failed, finalizing with fallback")

	stats.Finalize(stats.CompletionTokens)
	if assistant.IsEmpty() && !errors.Is(err, context.Canceled) {
		conv.AppendToLast(FallbackNotice)
	}
	conv.FinalizeLast(stats)

	return &Result{Assistant: assistant, Fallback: true, Err: err}
}

// IsBusy reports whether a send is in flight for the conversation.
func (s *ChatSession) IsBusy(convID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[convID]
}

func (s *ChatSession) acquire(convID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[convID] {
		return false
	}
	s.inFlight[convID] = true
	return true
}

func (s *ChatSession) release(convID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, convID)
}

// toEngineMessages converts conversation history to the wire format.
// The streaming placeholder has not been appended yet, so every message
// in the conversation is included.
func toEngineMessages(conv *model.Conversation) []engine.ChatMessage {
	out := make([]engine.ChatMessage, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		out = append(out, engine.ChatMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
		})
	}
	return out
}
