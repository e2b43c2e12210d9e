// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/freechat-tui/internal/ui/styles"
	"github.com/jeranaias/freechat-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusState is what the bar reports about the app.
type StatusState int

const (
	StatusIdle StatusState = iota
	StatusStreaming
	StatusOffline
)

// StatusBar renders the bottom status line: connection state, active
// model, unsaved indicator, and key hints.
type StatusBar struct {
	Width     int
	Model     string
	State     StatusState
	Dirty     bool
	Streaming bool // streaming toggle, not activity

	theme *styles.Theme
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Width: 80,
		theme: theme,
	}
}

// View renders the bar.
func (s *StatusBar) View() string {
	var left []string

	switch s.State {
	case StatusStreaming:
		left = append(left, s.theme.StatusBusy.Render("● generating"))
	case StatusOffline:
		left = append(left, s.theme.StatusError.Render("● offline"))
	default:
		left = append(left, s.theme.StatusOK.Render("● ready"))
	}

	left = append(left, s.theme.HeaderModel.Render(util.TruncateWidth(s.Model, 30)))

	if s.Streaming {
		left = append(left, s.theme.ShortcutDesc.Render("stream:on"))
	} else {
		left = append(left, s.theme.ShortcutDesc.Render("stream:off"))
	}

	if s.Dirty {
		left = append(left, s.theme.StatusDirty.Render("*unsaved"))
	}

	leftStr := strings.Join(left, "  ")
	rightStr := s.renderShortcuts()

	gap := s.Width - lipgloss.Width(leftStr) - lipgloss.Width(rightStr) - 2
	if gap < 1 {
		gap = 1
	}

	return s.theme.StatusBar.Width(s.Width).Render(
		leftStr + strings.Repeat(" ", gap) + rightStr)
}

func (s *StatusBar) renderShortcuts() string {
	pairs := [][2]string{
		{"^N", "new"},
		{"^S", "save"},
		{"^P", "model"},
		{"Tab", "chats"},
		{"Esc", "stop"},
	}

	var parts []string
	for _, p := range pairs {
		parts = append(parts,
			s.theme.ShortcutKey.Render(p[0])+s.theme.ShortcutDesc.Render(" "+p[1]))
	}
	return strings.Join(parts, " ")
}
