// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/freechat-tui/internal/engine"
	"github.com/jeranaias/freechat-tui/internal/ui/styles"
	"github.com/jeranaias/freechat-tui/internal/util"
)

// =============================================================================
// MODEL PICKER
// =============================================================================

// ModelPicker is the overlay for choosing the active model.
type ModelPicker struct {
	Width  int
	Height int

	models  []engine.ModelInfo
	cursor  int
	loading bool

	theme *styles.Theme
}

// NewModelPicker creates a picker in the loading state.
func NewModelPicker(theme *styles.Theme) *ModelPicker {
	return &ModelPicker{
		Width:   44,
		Height:  16,
		loading: true,
		theme:   theme,
	}
}

// SetModels installs the fetched model list.
func (p *ModelPicker) SetModels(models []engine.ModelInfo, current string) {
	p.models = models
	p.loading = false
	p.cursor = 0
	for i, m := range models {
		if m.ID == current {
			p.cursor = i
			break
		}
	}
}

// CursorUp moves selection up.
func (p *ModelPicker) CursorUp() {
	if p.cursor > 0 {
		p.cursor--
	}
}

// CursorDown moves selection down.
func (p *ModelPicker) CursorDown() {
	if p.cursor < len(p.models)-1 {
		p.cursor++
	}
}

// Selected returns the model ID under the cursor, or "".
func (p *ModelPicker) Selected() string {
	if p.cursor < 0 || p.cursor >= len(p.models) {
		return ""
	}
	return p.models[p.cursor].ID
}

// View renders the overlay box.
func (p *ModelPicker) View() string {
	var sb strings.Builder
	sb.WriteString(p.theme.PickerTitle.Render("Select model"))
	sb.WriteString("\n\n")

	switch {
	case p.loading:
		sb.WriteString(p.theme.ThinkingText.Render("Fetching models..."))
	case len(p.models) == 0:
		sb.WriteString(p.theme.SidebarPreview.Render("No models available"))
	default:
		visible := p.Height - 6
		if visible < 1 {
			visible = 1
		}
		start := 0
		if p.cursor >= visible {
			start = p.cursor - visible + 1
		}
		for i := start; i < len(p.models) && i < start+visible; i++ {
			name := util.TruncateWidth(p.models[i].ID, p.Width-8)
			if i == p.cursor {
				sb.WriteString(p.theme.PickerSelected.Render("❯ " + name))
			} else {
				sb.WriteString(p.theme.PickerItem.Render("  " + name))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(p.theme.SidebarPreview.Render("enter select · esc close"))

	return p.theme.PickerBox.Width(p.Width - 2).Render(sb.String())
}
