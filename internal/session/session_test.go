// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jeranaias/freechat-tui/internal/engine"
	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/storage"
)

// =============================================================================
// FAKE COMPLETER
// =============================================================================

// fakeCompleter implements engine.Completer for tests.
type fakeCompleter struct {
	chunks    []string
	response  string
	err       error
	failAfter int // fail after this many chunks (-1 = never)

	mu      sync.Mutex
	started chan struct{} // closed when a stream begins, if set
	release chan struct{} // stream blocks until closed, if set
}

func newFakeCompleter(chunks ...string) *fakeCompleter {
	return &fakeCompleter{chunks: chunks, failAfter: -1}
}

func (f *fakeCompleter) Chat(ctx context.Context, model string, messages []engine.ChatMessage) (*engine.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	var resp engine.ChatResponse
	raw := fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, f.response)
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *fakeCompleter) ChatStream(ctx context.Context, model string, messages []engine.ChatMessage, callback engine.StreamCallback) error {
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil && f.failAfter < 0 {
		return f.err
	}

	for i, text := range f.chunks {
		if f.failAfter >= 0 && i == f.failAfter {
			return f.err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		var chunk engine.StreamChunk
		raw := fmt.Sprintf(`{"choices":[{"delta":{"content":%q}}]}`, text)
		if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
			return err
		}
		callback(chunk)
	}
	return nil
}

func (f *fakeCompleter) ListModels(ctx context.Context) ([]engine.ModelInfo, error) {
	return []engine.ModelInfo{{ID: "fake-model"}}, nil
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSendStreamingAppendsTwoMessages(t *testing.T) {
	sess := NewChatSession(newFakeCompleter("Hel", "lo", " world"))
	conv := model.NewConversation()

	var tokens []string
	result, err := sess.Send(context.Background(), conv, "hi there", SendOptions{
		Streaming: true,
		OnToken:   func(tok string) { tokens = append(tokens, tok) },
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount() = %d, want 2", conv.MessageCount())
	}
	if conv.Messages[0].Role != model.RoleUser || conv.Messages[0].Content != "hi there" {
		t.Errorf("user message = %+v", conv.Messages[0])
	}
	if got := conv.Messages[1].Content; got != "Hello world" {
		t.Errorf("assistant content = %q, want %q", got, "Hello world")
	}
	if conv.Messages[1].IsStreaming {
		t.Error("assistant message should be finalized")
	}
	if result.Fallback {
		t.Error("Fallback = true on success")
	}
	if strings.Join(tokens, "") != "Hello world" {
		t.Errorf("tokens delivered out of order or dropped: %v", tokens)
	}
}

func TestSendNonStreamingSingleChunk(t *testing.T) {
	fake := newFakeCompleter()
	fake.response = "complete answer"
	sess := NewChatSession(fake)
	conv := model.NewConversation()

	var tokens []string
	_, err := sess.Send(context.Background(), conv, "question", SendOptions{
		Streaming: false,
		OnToken:   func(tok string) { tokens = append(tokens, tok) },
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if len(tokens) != 1 || tokens[0] != "complete answer" {
		t.Errorf("tokens = %v, want one full chunk", tokens)
	}
	if conv.Messages[1].Content != "complete answer" {
		t.Errorf("assistant content = %q", conv.Messages[1].Content)
	}
}

func TestSendEmptyInputIgnored(t *testing.T) {
	sess := NewChatSession(newFakeCompleter("x"))
	conv := model.NewConversation()

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := sess.Send(context.Background(), conv, input, SendOptions{Streaming: true})
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Send(%q) = %v, want ErrEmptyMessage", input, err)
		}
	}

	if conv.MessageCount() != 0 {
		t.Errorf("MessageCount() = %d, empty input must append nothing", conv.MessageCount())
	}
}

func TestSendEngineFailureFinalizesWithFallback(t *testing.T) {
	fake := newFakeCompleter()
	fake.err = errors.New("gateway exploded")
	sess := NewChatSession(fake)
	conv := model.NewConversation()

	result, err := sess.Send(context.Background(), conv, "hello", SendOptions{Streaming: true})
	if err != nil {
		t.Fatalf("Send must not propagate engine errors, got %v", err)
	}

	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount() = %d, want exactly 2 per exchange", conv.MessageCount())
	}
	assistant := conv.Messages[1]
	if assistant.IsStreaming {
		t.Error("assistant message should be finalized after failure")
	}
	if assistant.Content != FallbackNotice {
		t.Errorf("assistant content = %q, want fallback notice", assistant.Content)
	}
	if !result.Fallback {
		t.Error("Fallback = false, want true")
	}
	if result.Err == nil {
		t.Error("Err should carry the engine error")
	}
}

func TestSendMidStreamFailureKeepsPartialContent(t *testing.T) {
	fake := newFakeCompleter("partial ", "content")
	fake.err = errors.New("connection dropped")
	fake.failAfter = 2
	sess := NewChatSession(fake)
	conv := model.NewConversation()

	result, err := sess.Send(context.Background(), conv, "hi", SendOptions{Streaming: true})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	assistant := conv.Messages[1]
	if assistant.Content != "partial content" {
		t.Errorf("assistant content = %q, want partial content preserved", assistant.Content)
	}
	if !result.Fallback {
		t.Error("Fallback = false on mid-stream failure")
	}
}

func TestSendCancellationFinalizesPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fake := newFakeCompleter("some", " text")
	sess := NewChatSession(fake)
	conv := model.NewConversation()

	opts := SendOptions{
		Streaming: true,
		OnToken: func(string) {
			cancel() // cancel after the first token lands
		},
	}

	if _, err := sess.Send(ctx, conv, "hi", opts); err != nil {
		t.Fatalf("Send: %v", err)
	}

	assistant := conv.Messages[1]
	if assistant.IsStreaming {
		t.Error("assistant message should be finalized after cancel")
	}
	if assistant.Content != "some" {
		t.Errorf("assistant content = %q, want partial %q", assistant.Content, "some")
	}
}

func TestSendRejectsConcurrentSends(t *testing.T) {
	fake := newFakeCompleter("slow")
	fake.started = make(chan struct{})
	fake.release = make(chan struct{})
	sess := NewChatSession(fake)
	conv := model.NewConversation()

	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.Send(context.Background(), conv, "first", SendOptions{Streaming: true})
	}()

	<-fake.started
	if !sess.IsBusy(conv.ID) {
		t.Error("IsBusy = false while a send is in flight")
	}

	_, err := sess.Send(context.Background(), conv, "second", SendOptions{Streaming: true})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Send = %v, want ErrBusy", err)
	}

	close(fake.release)
	<-done

	if sess.IsBusy(conv.ID) {
		t.Error("IsBusy = true after send finished")
	}
	// The rejected send must not have touched the conversation.
	if conv.MessageCount() != 2 {
		t.Errorf("MessageCount() = %d, want 2", conv.MessageCount())
	}
}

func TestSendHistoryExcludesPlaceholder(t *testing.T) {
	var captured []engine.ChatMessage
	fake := &capturingCompleter{inner: newFakeCompleter("ok"), captured: &captured}
	sess := NewChatSession(fake)

	conv := model.NewConversation()
	conv.AddUserMessage("earlier question")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("earlier answer")
	asst.FinalizeStream(nil)

	if _, err := sess.Send(context.Background(), conv, "followup", SendOptions{Streaming: true}); err != nil {
		t.Fatal(err)
	}

	if len(captured) != 3 {
		t.Fatalf("history length = %d, want 3 (two earlier + new user)", len(captured))
	}
	if captured[2].Role != "user" || captured[2].Content != "followup" {
		t.Errorf("last history entry = %+v", captured[2])
	}
}

// capturingCompleter records the history passed to ChatStream.
type capturingCompleter struct {
	inner    *fakeCompleter
	captured *[]engine.ChatMessage
}

func (c *capturingCompleter) Chat(ctx context.Context, model string, messages []engine.ChatMessage) (*engine.ChatResponse, error) {
	*c.captured = messages
	return c.inner.Chat(ctx, model, messages)
}

func (c *capturingCompleter) ChatStream(ctx context.Context, model string, messages []engine.ChatMessage, callback engine.StreamCallback) error {
	*c.captured = messages
	return c.inner.ChatStream(ctx, model, messages, callback)
}

func (c *capturingCompleter) ListModels(ctx context.Context) ([]engine.ModelInfo, error) {
	return c.inner.ListModels(ctx)
}

// =============================================================================
// WORKSPACE TESTS
// =============================================================================

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	store, err := storage.NewConversationStoreWithPath(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatal(err)
	}
	return NewWorkspace(store)
}

func TestWorkspaceNewConversation(t *testing.T) {
	ws := newTestWorkspace(t)

	conv := ws.NewConversation()
	if ws.Current() != conv {
		t.Error("new conversation should become current")
	}
	if !ws.IsDirty() {
		t.Error("workspace should be dirty after creating a conversation")
	}
}

func TestWorkspaceSaveClearsDirty(t *testing.T) {
	ws := newTestWorkspace(t)
	ws.NewConversation().AddUserMessage("persist me")

	if err := ws.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ws.IsDirty() {
		t.Error("workspace should be clean after save")
	}
}

func TestWorkspaceDeleteMovesSelection(t *testing.T) {
	ws := newTestWorkspace(t)
	a := ws.NewConversation()
	b := ws.NewConversation()

	if ws.Current() != b {
		t.Fatal("most recent conversation should be current")
	}
	if !ws.Delete(b.ID) {
		t.Fatal("Delete returned false")
	}
	if ws.Current() != a {
		t.Error("selection should move to remaining conversation")
	}
	if ws.Delete("conv_missing") {
		t.Error("Delete of unknown ID should return false")
	}
}

func TestWorkspaceRoundTrip(t *testing.T) {
	store, err := storage.NewConversationStoreWithPath(filepath.Join(t.TempDir(), "conversations.json"))
	if err != nil {
		t.Fatal(err)
	}

	ws := NewWorkspace(store)
	conv := ws.NewConversation()
	conv.AddUserMessage("remember this")
	if err := ws.Save(); err != nil {
		t.Fatal(err)
	}

	ws2 := NewWorkspace(store)
	if len(ws2.Conversations()) != 1 {
		t.Fatalf("reloaded %d conversations, want 1", len(ws2.Conversations()))
	}
	if ws2.Current() == nil || ws2.Current().Title != "remember this" {
		t.Errorf("current = %+v", ws2.Current())
	}
}
