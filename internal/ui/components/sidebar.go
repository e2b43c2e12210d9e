// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/freechat-tui/internal/model"
	"github.com/jeranaias/freechat-tui/internal/ui/styles"
	"github.com/jeranaias/freechat-tui/internal/util"
)

// =============================================================================
// CONVERSATION SIDEBAR
// =============================================================================

// Sidebar renders the conversation list with keyboard selection.
type Sidebar struct {
	Width  int
	Height int

	conversations []*model.Conversation
	cursor        int
	currentID     string

	theme *styles.Theme
}

// NewSidebar creates a sidebar.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{
		Width:  32,
		Height: 20,
		theme:  theme,
	}
}

// SetConversations replaces the list, keeping the cursor in bounds.
func (s *Sidebar) SetConversations(convs []*model.Conversation, currentID string) {
	s.conversations = convs
	s.currentID = currentID

	if s.cursor >= len(convs) {
		s.cursor = len(convs) - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
	for i, conv := range convs {
		if conv.ID == currentID {
			s.cursor = i
			break
		}
	}
}

// CursorUp moves selection up.
func (s *Sidebar) CursorUp() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// CursorDown moves selection down.
func (s *Sidebar) CursorDown() {
	if s.cursor < len(s.conversations)-1 {
		s.cursor++
	}
}

// Selected returns the conversation under the cursor, or nil.
func (s *Sidebar) Selected() *model.Conversation {
	if s.cursor < 0 || s.cursor >= len(s.conversations) {
		return nil
	}
	return s.conversations[s.cursor]
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	var sb strings.Builder
	sb.WriteString(s.theme.SidebarTitle.Render("Conversations"))
	sb.WriteString("\n")
	sb.WriteString(s.theme.SidebarSeparator.Render(strings.Repeat("─", s.Width-2)))
	sb.WriteString("\n")

	if len(s.conversations) == 0 {
		sb.WriteString(s.theme.SidebarPreview.Render("No conversations yet"))
		return s.theme.Sidebar.Width(s.Width).Height(s.Height).Render(sb.String())
	}

	// Two lines per entry plus header.
	visible := (s.Height - 3) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if s.cursor >= visible {
		start = s.cursor - visible + 1
	}

	for i := start; i < len(s.conversations) && i < start+visible; i++ {
		conv := s.conversations[i]

		title := conv.Title
		if title == "" {
			title = model.DefaultTitle
		}
		title = util.TruncateWidth(title, s.Width-4)

		marker := "  "
		if conv.ID == s.currentID {
			marker = "• "
		}

		line := marker + title
		if i == s.cursor {
			sb.WriteString(s.theme.SidebarSelected.Width(s.Width - 2).Render(line))
		} else {
			sb.WriteString(s.theme.SidebarItem.Render(line))
		}
		sb.WriteString("\n")

		preview := util.TruncateWidth(conv.Preview(s.Width-6), s.Width-6)
		sb.WriteString(s.theme.SidebarPreview.Render("    " + preview))
		sb.WriteString("\n")
	}

	return s.theme.Sidebar.Width(s.Width).Height(s.Height).Render(sb.String())
}
