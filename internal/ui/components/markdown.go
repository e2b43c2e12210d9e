// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer renders assistant messages as terminal markdown.
// Rendering failures fall back to the raw text; a chat message must
// never disappear because glamour choked on it.
type MarkdownRenderer struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
	width    int
	dark     bool
}

// NewMarkdownRenderer creates a renderer for the given wrap width.
func NewMarkdownRenderer(width int, dark bool) *MarkdownRenderer {
	m := &MarkdownRenderer{width: width, dark: dark}
	m.rebuild()
	return m
}

// SetWidth changes the wrap width, rebuilding the renderer if needed.
func (m *MarkdownRenderer) SetWidth(width int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if width == m.width || width <= 0 {
		return
	}
	m.width = width
	m.rebuild()
}

func (m *MarkdownRenderer) rebuild() {
	style := glamour.WithStandardStyle("light")
	if m.dark {
		style = glamour.WithStandardStyle("dark")
	}

	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(m.width),
		glamour.WithEmoji(),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = renderer
}

// Render renders markdown to styled terminal output.
func (m *MarkdownRenderer) Render(markdown string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer == nil {
		return markdown
	}

	out, err := m.renderer.Render(markdown)
	if err != nil {
		return markdown
	}

	// Glamour pads with blank lines; bubbles handle their own spacing.
	return strings.Trim(out, "\n")
}
