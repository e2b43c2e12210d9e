// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/ui/styles"
)

// streamingCursor marks the live end of a streaming bubble.
const streamingCursor = "▌"

// =============================================================================
// MESSAGE BUBBLE
// =============================================================================

// MessageBubble renders one chat message as a styled bubble.
type MessageBubble struct {
	Message       *model.Message
	Width         int
	ShowTimestamp bool
	Markdown      *MarkdownRenderer // nil disables markdown rendering
	Highlight     bool              // chroma code blocks when markdown is off

	theme *styles.Theme
}

// NewMessageBubble creates a bubble for the given message.
func NewMessageBubble(msg *model.Message, theme *styles.Theme) *MessageBubble {
	return &MessageBubble{
		Message: msg,
		Width:   80,
		theme:   theme,
	}
}

// SetWidth sets the available width for the bubble.
func (b *MessageBubble) SetWidth(width int) {
	b.Width = width
}

// View renders the bubble.
func (b *MessageBubble) View() string {
	switch b.Message.Role {
	case model.RoleUser:
		return b.renderUser()
	case model.RoleAssistant:
		return b.renderAssistant()
	default:
		return b.renderSystem()
	}
}

func (b *MessageBubble) renderUser() string {
	content := b.Message.DisplayContent()
	wrapped := wordWrap(content, b.contentWidth())

	bubble := b.theme.UserBubble.Render(wrapped)
	label := b.theme.BubbleLabel.Render(b.Message.Role.DisplayName())

	header := label
	if b.ShowTimestamp {
		header += " " + b.theme.BubbleTimestamp.Render(b.Message.Timestamp.Format("15:04"))
	}

	// User bubbles sit on the right.
	block := header + "\n" + bubble
	return lipgloss.NewStyle().
		Width(b.Width).
		Align(lipgloss.Right).
		Render(block)
}

func (b *MessageBubble) renderAssistant() string {
	content := b.Message.DisplayContent()

	if b.Message.IsStreaming {
		// No markdown mid-stream; partial fences render as garbage.
		content = wordWrap(content, b.contentWidth()) + streamingCursor
	} else if b.Markdown != nil {
		content = b.Markdown.Render(content)
	} else if b.Highlight && strings.Contains(content, "```") {
		content = b.renderHighlighted(content)
	} else {
		content = wordWrap(content, b.contentWidth())
	}

	bubble := b.theme.AssistantBubble.Render(content)
	label := b.theme.BubbleLabel.Render(b.Message.Role.DisplayName())

	header := label
	if b.ShowTimestamp {
		header += " " + b.theme.BubbleTimestamp.Render(b.Message.Timestamp.Format("15:04"))
	}
	if stats := b.renderStats(); stats != "" {
		header += " " + stats
	}

	return header + "\n" + bubble
}

// renderHighlighted renders prose word-wrapped and fenced code blocks
// through the chroma code renderer. Used when markdown rendering is
// disabled but syntax highlighting is on.
func (b *MessageBubble) renderHighlighted(content string) string {
	var out []string
	var prose []string

	flushProse := func() {
		if len(prose) > 0 {
			out = append(out, wordWrap(strings.Join(prose, "\n"), b.contentWidth()))
			prose = nil
		}
	}

	var block *CodeBlock
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if block == nil {
				flushProse()
				block = &CodeBlock{
					Language: strings.TrimSpace(strings.TrimPrefix(trimmed, "```")),
					MaxWidth: b.contentWidth(),
				}
			} else {
				block.Code = strings.TrimSuffix(block.Code, "\n")
				out = append(out, block.Render())
				block = nil
			}
			continue
		}
		if block != nil {
			block.Code += line + "\n"
		} else {
			prose = append(prose, line)
		}
	}
	if block != nil {
		// Unterminated fence; render what arrived.
		block.Code = strings.TrimSuffix(block.Code, "\n")
		out = append(out, block.Render())
	}
	flushProse()

	return strings.Join(out, "\n")
}

func (b *MessageBubble) renderSystem() string {
	content := wordWrap(b.Message.DisplayContent(), b.contentWidth())
	return b.theme.SystemBubble.Render(content)
}

// renderStats shows generation metrics under finalized assistant messages.
func (b *MessageBubble) renderStats() string {
	m := b.Message
	if m.IsStreaming || m.TokensPerSec <= 0 {
		return ""
	}
	return b.theme.BubbleTimestamp.Render(
		fmt.Sprintf("%d tok · %.1f tok/s", m.TokenCount, m.TokensPerSec))
}

func (b *MessageBubble) contentWidth() int {
	w := b.Width - 8 // borders, padding, breathing room
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// WORD WRAP
// =============================================================================

// wordWrap wraps text at width, preserving existing newlines. Width is
// measured in display cells so CJK text wraps correctly.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	if runewidth.StringWidth(line) <= width {
		return []string{line}
	}

	var wrapped []string
	var current strings.Builder
	currentWidth := 0

	for _, word := range strings.Fields(line) {
		wordWidth := runewidth.StringWidth(word)

		if currentWidth > 0 && currentWidth+1+wordWidth > width {
			wrapped = append(wrapped, current.String())
			current.Reset()
			currentWidth = 0
		}

		if currentWidth > 0 {
			current.WriteString(" ")
			currentWidth++
		}

		// A single word longer than the width gets hard-broken.
		for wordWidth > width {
			head := runewidth.Truncate(word, width-currentWidth, "")
			current.WriteString(head)
			wrapped = append(wrapped, current.String())
			current.Reset()
			currentWidth = 0
			word = strings.TrimPrefix(word, head)
			wordWidth = runewidth.StringWidth(word)
		}

		current.WriteString(word)
		currentWidth += wordWidth
	}

	if current.Len() > 0 {
		wrapped = append(wrapped, current.String())
	}
	if len(wrapped) == 0 {
		wrapped = []string{""}
	}
	return wrapped
}
