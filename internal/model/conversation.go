// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/freechat-tui/internal/util"
)

// TitlePreviewLength is the maximum rune length of a derived title.
const TitlePreviewLength = 50

// DefaultTitle is the title a conversation carries before its first
// user message arrives.
const DefaultTitle = "New chat"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation represents a full chat session: an ordered, append-only
// sequence of messages plus metadata.
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []*Message `json:"messages"`
	Model     string     `json:"model,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// titleSet tracks whether Title was derived from a user message.
	// Not persisted; reconstructed on load from Title state.
	titleSet bool `json:"-"`
}

// NewConversation creates an empty conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        "conv_" + uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  make([]*Message, 0, 8),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message and bumps UpdatedAt.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
}

// AddUserMessage appends a user message and derives the title if this is
// the first one.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	c.maybeSetTitle(content)
	return msg
}

// AddAssistantMessage appends a streaming assistant message.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// AppendToLast appends a token to the last message if it is streaming.
func (c *Conversation) AppendToLast(token string) {
	if last := c.LastMessage(); last != nil && last.IsStreaming {
		last.AppendToken(token)
		c.UpdatedAt = time.Now()
	}
}

// FinalizeLast completes the stream on the last message.
func (c *Conversation) FinalizeLast(stats *Statistics) {
	if last := c.LastMessage(); last != nil && last.IsStreaming {
		last.FinalizeStream(stats)
		c.UpdatedAt = time.Now()
	}
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if the conversation has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// HasStreamingMessage reports whether a message is currently streaming.
func (c *Conversation) HasStreamingMessage() bool {
	last := c.LastMessage()
	return last != nil && last.IsStreaming
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// maybeSetTitle sets the title from the first user message, exactly once.
// Later user messages and edits never change it again.
func (c *Conversation) maybeSetTitle(content string) {
	if c.titleSet || c.Title != DefaultTitle && c.Title != "" {
		return
	}

	cleaned := util.CleanLine(content)
	if cleaned == "" {
		return
	}

	c.Title = util.TruncateRunes(cleaned, TitlePreviewLength)
	c.titleSet = true
}

// MarkTitleSet records that the title was already derived. Called after
// loading a conversation from disk so a resumed chat never retitles.
func (c *Conversation) MarkTitleSet() {
	if c.Title != DefaultTitle && c.Title != "" {
		c.titleSet = true
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// Preview returns a short preview of the last message for list display.
func (c *Conversation) Preview(maxLen int) string {
	last := c.LastMessage()
	if last == nil {
		return ""
	}
	return last.Preview(maxLen)
}

// UserMessageCount returns the number of user messages.
func (c *Conversation) UserMessageCount() int {
	count := 0
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			count++
		}
	}
	return count
}

// EstimateTokens returns a rough token estimate for the whole conversation.
func (c *Conversation) EstimateTokens() int {
	total := 0
	for _, msg := range c.Messages {
		total += msg.EstimateTokens()
	}
	return total
}
