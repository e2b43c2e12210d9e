// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/ui/components"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full interface.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	header := m.renderHeader()
	body := m.viewport.View()
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), body)
	}

	input := m.input.View()
	status := m.statusbar.View()

	sections := []string{header, body}
	if banner := m.renderError(); banner != "" {
		sections = append(sections, banner)
	}
	sections = append(sections, input, status)
	screen := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.showPicker {
		return m.overlayPicker(screen)
	}
	return screen
}

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("freechat")
	modelName := m.theme.HeaderModel.Render(m.activeModel)

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(modelName) - 4
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(title + strings.Repeat(" ", gap) + modelName)
}

func (m Model) renderError() string {
	if m.errTitle == "" {
		return ""
	}
	text := m.errTitle
	if m.errText != "" {
		text += ": " + m.errText
	}
	return m.theme.StatusError.Render("✗ " + text + "  (esc to dismiss)")
}

// overlayPicker centers the picker box over a dimmed screen. lipgloss
// has no true compositing, so the picker replaces the center region.
func (m Model) overlayPicker(screen string) string {
	box := m.picker.View()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "))
}

// =============================================================================
// VIEWPORT CONTENT
// =============================================================================

// refreshViewport rebuilds the transcript. While streaming it renders
// from the snapshot taken at submit time plus the pending user message
// and the accumulated stream text, never touching the conversation the
// runner goroutine owns.
func (m *Model) refreshViewport() {
	if m.searchResults != "" {
		m.viewport.SetContent(m.searchResults)
		return
	}

	var messages []*model.Message
	if m.streaming {
		messages = m.snapshot
	} else if conv := m.workspace.Current(); conv != nil {
		messages = conv.Messages
	}

	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(m.renderBubble(msg, width))
		sb.WriteString("\n\n")
	}

	if m.streaming {
		if m.pendingUser != nil {
			sb.WriteString(m.renderBubble(m.pendingUser, width))
			sb.WriteString("\n\n")
		}
		live := model.NewAssistantMessage()
		live.AppendToken(m.streamText)
		sb.WriteString(m.renderBubble(live, width))
		sb.WriteString("\n")
		sb.WriteString(m.theme.ThinkingText.Render(m.spinner.View() + " generating"))
		sb.WriteString("\n")
	}

	if sb.Len() == 0 {
		sb.WriteString(m.theme.ThinkingText.Render("Start a conversation. Type a message and press Enter."))
	}

	m.viewport.SetContent(sb.String())
}

func (m *Model) renderBubble(msg *model.Message, width int) string {
	bubble := components.NewMessageBubble(msg, m.theme)
	bubble.SetWidth(width)
	bubble.ShowTimestamp = m.cfg.UI.ShowTimestamps
	if m.cfg.UI.MarkdownRendering && !msg.IsStreaming {
		bubble.Markdown = m.markdown
	}
	bubble.Highlight = m.cfg.UI.SyntaxHighlighting
	return bubble.View()
}
