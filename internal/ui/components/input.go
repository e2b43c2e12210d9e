// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/freechat-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE INPUT
// =============================================================================

// Input wraps a textinput with the chat prompt chrome.
type Input struct {
	field textinput.Model
	theme *styles.Theme

	Width    int
	disabled bool
}

// NewInput creates the message input, focused.
func NewInput(theme *styles.Theme) *Input {
	field := textinput.New()
	field.Placeholder = "Type a message..."
	field.PlaceholderStyle = theme.InputPlaceholder
	field.Prompt = ""
	field.CharLimit = 4096
	field.Focus()

	return &Input{
		field: field,
		theme: theme,
		Width: 80,
	}
}

// Update forwards key events to the underlying field.
func (in *Input) Update(msg tea.Msg) tea.Cmd {
	if in.disabled {
		return nil
	}
	var cmd tea.Cmd
	in.field, cmd = in.field.Update(msg)
	return cmd
}

// Value returns the current text.
func (in *Input) Value() string {
	return in.field.Value()
}

// Reset clears the field.
func (in *Input) Reset() {
	in.field.Reset()
}

// SetDisabled blocks editing while a response is streaming.
func (in *Input) SetDisabled(disabled bool) {
	in.disabled = disabled
	if disabled {
		in.field.Blur()
	} else {
		in.field.Focus()
	}
}

// Disabled reports whether input is blocked.
func (in *Input) Disabled() bool {
	return in.disabled
}

// SetWidth resizes the field to fit the container.
func (in *Input) SetWidth(width int) {
	in.Width = width
	// Prompt glyph and container padding eat a few cells.
	in.field.Width = width - 8
	if in.field.Width < 10 {
		in.field.Width = 10
	}
}

// View renders the input box. A character counter appears once the
// message is long enough for the limit to matter.
func (in *Input) View() string {
	prompt := in.theme.InputPrompt.Render("❯ ")
	line := prompt + in.field.View()
	if n := len([]rune(in.field.Value())); n >= in.field.CharLimit/2 {
		counter := in.theme.InputPlaceholder.Render(fmt.Sprintf(" %d/%d", n, in.field.CharLimit))
		line += counter
	}
	return in.theme.InputContainer.Width(in.Width - 2).Render(line)
}
