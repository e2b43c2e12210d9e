// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %v, want %v", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if msg.IsStreaming {
		t.Error("user message should not be streaming")
	}
	if msg.ID == "" {
		t.Error("expected generated ID")
	}
	if msg.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestNewAssistantMessageStartsStreaming(t *testing.T) {
	msg := NewAssistantMessage()

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %v, want %v", msg.Role, RoleAssistant)
	}
	if !msg.IsStreaming {
		t.Error("assistant message should start streaming")
	}
	if msg.Content != "" {
		t.Errorf("Content = %q, want empty", msg.Content)
	}
}

func TestMessageStreamingLifecycle(t *testing.T) {
	msg := NewAssistantMessage()

	msg.AppendToken("Hel")
	msg.AppendToken("lo")
	msg.AppendToken(" world")

	if got := msg.DisplayContent(); got != "Hello world" {
		t.Errorf("DisplayContent() during stream = %q, want %q", got, "Hello world")
	}
	if msg.Content != "" {
		t.Error("Content should be empty before finalize")
	}

	msg.FinalizeStream(nil)

	if msg.IsStreaming {
		t.Error("message should not be streaming after finalize")
	}
	if msg.Content != "Hello world" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello world")
	}
	if got := msg.DisplayContent(); got != "Hello world" {
		t.Errorf("DisplayContent() after finalize = %q, want %q", got, "Hello world")
	}
}

func TestMessageAppendAfterFinalizeIsNoOp(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("done")
	msg.FinalizeStream(nil)

	msg.AppendToken(" extra")

	if msg.Content != "done" {
		t.Errorf("Content = %q, want %q", msg.Content, "done")
	}
}

func TestMessageFinalizeIdempotent(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("once")
	msg.FinalizeStream(nil)
	msg.FinalizeStream(nil)

	if msg.Content != "once" {
		t.Errorf("Content = %q, want %q", msg.Content, "once")
	}
}

func TestMessageFinalizeWith(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("partial")

	msg.FinalizeWith("replaced entirely", nil)

	if msg.Content != "replaced entirely" {
		t.Errorf("Content = %q, want %q", msg.Content, "replaced entirely")
	}
	if msg.IsStreaming {
		t.Error("message should be finalized")
	}

	// FinalizeWith on a finalized message must not overwrite.
	msg.FinalizeWith("again", nil)
	if msg.Content != "replaced entirely" {
		t.Errorf("Content = %q after second FinalizeWith, want unchanged", msg.Content)
	}
}

func TestMessageFinalizeRecordsStatistics(t *testing.T) {
	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(42)

	msg := NewAssistantMessage()
	msg.AppendToken("x")
	msg.FinalizeStream(stats)

	if msg.TokenCount != 42 {
		t.Errorf("TokenCount = %d, want 42", msg.TokenCount)
	}
	if msg.TTFT <= 0 {
		t.Errorf("TTFT = %v, want > 0", msg.TTFT)
	}
	if msg.TotalDuration <= 0 {
		t.Errorf("TotalDuration = %v, want > 0", msg.TotalDuration)
	}
}

func TestMessagePreview(t *testing.T) {
	msg := NewUserMessage("line one\nline two with trailing   ")
	got := msg.Preview(80)
	if strings.Contains(got, "\n") {
		t.Errorf("Preview() = %q, should be single line", got)
	}

	long := NewUserMessage(strings.Repeat("a", 200))
	got = long.Preview(50)
	if len([]rune(got)) > 50 {
		t.Errorf("Preview() length = %d runes, want <= 50", len([]rune(got)))
	}
}

func TestRoleDisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
		{Role("tool"), "tool"},
	}
	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.role, got, tc.want)
		}
	}
}

// =============================================================================
// STATISTICS TESTS
// =============================================================================

func TestStatisticsRecordFirstTokenOnce(t *testing.T) {
	stats := NewStatistics()
	stats.RecordFirstToken()
	first := stats.FirstTokenTime

	time.Sleep(time.Millisecond)
	stats.RecordFirstToken()

	if !stats.FirstTokenTime.Equal(first) {
		t.Error("RecordFirstToken should only record the first call")
	}
}

func TestStatisticsFinalize(t *testing.T) {
	stats := NewStatistics()
	time.Sleep(5 * time.Millisecond)
	stats.Finalize(100)

	if stats.TotalDuration <= 0 {
		t.Errorf("TotalDuration = %v, want > 0", stats.TotalDuration)
	}
	if stats.CompletionTokens != 100 {
		t.Errorf("CompletionTokens = %d, want 100", stats.CompletionTokens)
	}
	if stats.TokensPerSecond <= 0 {
		t.Errorf("TokensPerSecond = %v, want > 0", stats.TokensPerSecond)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversation(t *testing.T) {
	conv := NewConversation()

	if conv.ID == "" {
		t.Error("expected generated ID")
	}
	if conv.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", conv.Title, DefaultTitle)
	}
	if !conv.IsEmpty() {
		t.Error("new conversation should be empty")
	}
}

func TestConversationTitleSetOnce(t *testing.T) {
	conv := NewConversation()

	conv.AddUserMessage("What is the capital of France?")
	if conv.Title != "What is the capital of France?" {
		t.Errorf("Title = %q, want first message text", conv.Title)
	}

	conv.AddUserMessage("And of Germany?")
	if conv.Title != "What is the capital of France?" {
		t.Errorf("Title = %q, changed by second message", conv.Title)
	}
}

func TestConversationTitleTruncated(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage(strings.Repeat("x", 200))

	if got := len([]rune(conv.Title)); got > TitlePreviewLength {
		t.Errorf("Title length = %d runes, want <= %d", got, TitlePreviewLength)
	}
	if !strings.HasSuffix(conv.Title, "...") {
		t.Errorf("Title = %q, want truncation suffix", conv.Title)
	}
}

func TestConversationTitleMultiline(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("first line\nsecond line")

	if strings.Contains(conv.Title, "\n") {
		t.Errorf("Title = %q, should be single line", conv.Title)
	}
}

func TestConversationOrdering(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("one")
	conv.AddAssistantMessage()
	conv.FinalizeLast(nil)
	conv.AddUserMessage("two")

	if conv.MessageCount() != 3 {
		t.Fatalf("MessageCount() = %d, want 3", conv.MessageCount())
	}
	if conv.Messages[0].Content != "one" || conv.Messages[2].Content != "two" {
		t.Error("messages out of order")
	}
}

func TestConversationStreamingHelpers(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage()

	if !conv.HasStreamingMessage() {
		t.Error("expected streaming message")
	}

	conv.AppendToLast("Hel")
	conv.AppendToLast("lo")
	conv.FinalizeLast(nil)

	if conv.HasStreamingMessage() {
		t.Error("stream should be finalized")
	}
	if got := conv.LastMessage().Content; got != "Hello" {
		t.Errorf("LastMessage().Content = %q, want %q", got, "Hello")
	}

	// AppendToLast after finalize is a no-op.
	conv.AppendToLast("!")
	if got := conv.LastMessage().Content; got != "Hello" {
		t.Errorf("Content = %q after post-finalize append, want %q", got, "Hello")
	}
}

func TestConversationMarkTitleSet(t *testing.T) {
	conv := NewConversation()
	conv.Title = "Loaded title"
	conv.MarkTitleSet()

	conv.AddUserMessage("should not retitle")
	if conv.Title != "Loaded title" {
		t.Errorf("Title = %q, want %q", conv.Title, "Loaded title")
	}
}

func TestConversationUpdatedAtBumps(t *testing.T) {
	conv := NewConversation()
	before := conv.UpdatedAt
	time.Sleep(time.Millisecond)
	conv.AddUserMessage("tick")

	if !conv.UpdatedAt.After(before) {
		t.Error("UpdatedAt should advance on AddMessage")
	}
}
