// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderModel lipgloss.Style

	// Message bubbles
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	SystemBubble    lipgloss.Style
	ErrorBubble     lipgloss.Style
	BubbleLabel     lipgloss.Style
	BubbleTimestamp lipgloss.Style

	// Input area
	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	StatusOK     lipgloss.Style
	StatusBusy   lipgloss.Style
	StatusError  lipgloss.Style
	StatusDirty  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Sidebar (conversation list)
	Sidebar          lipgloss.Style
	SidebarTitle     lipgloss.Style
	SidebarItem      lipgloss.Style
	SidebarSelected  lipgloss.Style
	SidebarPreview   lipgloss.Style
	SidebarSeparator lipgloss.Style

	// Model picker
	PickerBox      lipgloss.Style
	PickerTitle    lipgloss.Style
	PickerItem     lipgloss.Style
	PickerSelected lipgloss.Style

	// Spinner and loading
	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style
}

// NewTheme builds a theme from the current terminal.
func NewTheme() *Theme {
	output := termenv.DefaultOutput()
	return NewThemeWithProfile(output.Profile, output.HasDarkBackground())
}

// NewThemeForMode builds a theme for a configured mode: "dark",
// "light", or "auto" (detect from the terminal background).
func NewThemeForMode(mode string) *Theme {
	output := termenv.DefaultOutput()
	switch mode {
	case "dark":
		return NewThemeWithProfile(output.Profile, true)
	case "light":
		return NewThemeWithProfile(output.Profile, false)
	default:
		return NewThemeWithProfile(output.Profile, output.HasDarkBackground())
	}
}

// ApplyMode rebuilds the theme in place for a new mode. Components
// holding a pointer to the theme pick up the new styles on their
// next render.
func (t *Theme) ApplyMode(mode string) {
	width, height := t.Width, t.Height
	*t = *NewThemeForMode(mode)
	t.Width = width
	t.Height = height
}

// NewThemeWithProfile builds a theme for an explicit profile and
// background, useful for tests and forced light/dark modes.
func NewThemeWithProfile(profile termenv.Profile, isDark bool) *Theme {
	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderModel = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		Background(AssistantBubbleBg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)
	t.SystemBubble = lipgloss.NewStyle().
		Foreground(SystemBubbleFg).
		Background(SystemBubbleBg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(SystemBubbleBorder).
		Padding(0, 1)
	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(Rose).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)
	t.BubbleLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)
	t.BubbleTimestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusOK = lipgloss.NewStyle().Foreground(Emerald)
	t.StatusBusy = lipgloss.NewStyle().Foreground(Amber)
	t.StatusError = lipgloss.NewStyle().Foreground(Rose)
	t.StatusDirty = lipgloss.NewStyle().Foreground(Amber)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.Sidebar = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.SidebarItem = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.SidebarSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple).
		Bold(true)
	t.SidebarPreview = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.SidebarSeparator = lipgloss.NewStyle().
		Foreground(OverlayDim)

	t.PickerBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)
	t.PickerTitle = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.PickerItem = lipgloss.NewStyle().
		Foreground(TextPrimary)
	t.PickerSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Purple)

	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.ThinkingText = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	return t
}

// SetSize records the current terminal dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}
